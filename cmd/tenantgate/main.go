// マルチテナントSaaSバックエンドのエントリポイント。
// Cognitoの JWT で認証し、生成AI・Linear・Slackへリクエストを中継する。
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nao1215/tenantgate/cmd/tenantgate/app"
)

func main() {
	if err := app.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "tenantgate: %v\n", err)
		os.Exit(1)
	}
}
