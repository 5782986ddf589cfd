package incident

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nao1215/tenantgate/pkg/migration"
)

//go:embed migrations
var migrationsFS embed.FS

// timeLayout は created_at の保存形式。固定幅にして文字列順と時刻順を一致させる。
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store はSQLiteに保存するインシデント台帳。
type Store struct {
	db *sql.DB
}

// OpenStore はpathのSQLiteデータベースを開き、スキーマを適用する。
// pathに ":memory:" を指定するとインメモリデータベースになる。
func OpenStore(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// SQLiteの書き込みは単一接続に直列化する
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("データベース接続の確認に失敗: %w", err)
	}
	if err := migration.Run(ctx, db, migrationsFS, "migrations", logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return &Store{db: db}, nil
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert は台帳にレコードを追加する。
func (s *Store) Insert(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incidents (id, tenant_id, title, description, priority, linear_issue, slack_sent, reported_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TenantID, r.Title, r.Description, r.Priority, r.LinearIssue, r.SlackSent, r.ReportedBy,
		r.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("インシデントの記録に失敗: %w", err)
	}
	return nil
}

// List はテナントのレコードを新しい順に最大limit件返す。
func (s *Store) List(ctx context.Context, tenantID string, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, title, description, priority, linear_issue, slack_sent, reported_by, created_at
		FROM incidents
		WHERE tenant_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("インシデントの取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			r         Record
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.TenantID, &r.Title, &r.Description, &r.Priority,
			&r.LinearIssue, &r.SlackSent, &r.ReportedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("インシデントの読み取りに失敗: %w", err)
		}
		if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("作成日時の解析に失敗: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("インシデントの取得に失敗: %w", err)
	}
	return records, nil
}
