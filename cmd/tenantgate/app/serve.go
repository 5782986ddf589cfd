package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/tenantgate/internal/gateway"
)

// newServeCmd はHTTPサーバーを起動するserveコマンドを生成する。
func newServeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server. The server stops gracefully on SIGINT or SIGTERM.

Relays whose credentials are not configured stay available and answer with
a descriptive message instead of failing the request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, rt)
		},
	}
}

// runServe はサーバーとシグナル監視を並行して実行する。
func runServe(cmd *cobra.Command, rt *runtime) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	srv, err := gateway.Open(ctx, rt.settings, rt.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			rt.logger.Error("リソースの解放に失敗しました", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return srv.Run(gctx)
	})
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			rt.logger.Info("シグナルを受信しました", zap.String("signal", sig.String()))
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	return g.Wait()
}
