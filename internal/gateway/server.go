package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/tenantgate/internal/ai"
	"github.com/nao1215/tenantgate/internal/auth"
	"github.com/nao1215/tenantgate/internal/config"
	"github.com/nao1215/tenantgate/internal/incident"
	"github.com/nao1215/tenantgate/internal/linear"
	"github.com/nao1215/tenantgate/internal/slack"
	"github.com/nao1215/tenantgate/pkg/metrics"
	"github.com/nao1215/tenantgate/pkg/middleware"
	"github.com/nao1215/tenantgate/pkg/tenant"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 10 * time.Second

// TextGenerator は生成AIへの中継。
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) string
	Summarize(ctx context.Context, text string) string
}

// IncidentReporter はインシデント報告と台帳の参照。
type IncidentReporter interface {
	Report(ctx context.Context, r incident.Report) incident.Result
	List(ctx context.Context, tenantID string, limit int) ([]incident.Record, error)
}

// Dependencies はサーバーが利用する外部依存。
type Dependencies struct {
	// Verifier はBearerトークンを検証する。
	Verifier middleware.TokenVerifier
	// Generator は生成AIへの中継。
	Generator TextGenerator
	// Incidents はインシデント報告。
	Incidents IncidentReporter
	// Metrics はメトリクス。nilの場合は記録しない。
	Metrics *metrics.Metrics
}

// Server はゲートウェイのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はサーバー設定。
	cfg *config.Settings
	// logger は構造化ロガー。
	logger *zap.Logger
	// deps は外部依存。
	deps Dependencies
	// closers はサーバー停止時に解放するリソース。
	closers []func() error
}

// NewServer は新しいゲートウェイサーバーを生成する。
func NewServer(cfg *config.Settings, logger *zap.Logger, deps Dependencies) *Server {
	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(tenant.Middleware())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(deps.Metrics.Middleware())

	s := &Server{
		router: router,
		cfg:    cfg,
		logger: logger,
		deps:   deps,
	}
	s.setupRoutes()
	return s
}

// Open は設定から外部APIクライアントと台帳を組み立て、サーバーを生成する。
// 台帳を開いた場合はCloseで閉じる必要がある。
func Open(ctx context.Context, cfg *config.Settings, logger *zap.Logger) (*Server, error) {
	m := metrics.New()

	var store *incident.Store
	if cfg.IncidentDBPath != "" {
		var err error
		store, err = incident.OpenStore(ctx, cfg.IncidentDBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("インシデント台帳の初期化に失敗: %w", err)
		}
		logger.Info("インシデント台帳を開きました", zap.String("path", cfg.IncidentDBPath))
	}

	deps := Dependencies{
		Verifier:  auth.NewVerifier(cfg.JWKSEndpoint(), cfg.CognitoClientID, logger),
		Generator: ai.NewService(ai.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel), logger, m),
		Incidents: incident.NewService(
			linear.NewClient(cfg.LinearAPIURL, cfg.LinearAPIKey, cfg.LinearTeamID, logger, m),
			slack.NewNotifier(cfg.SlackWebhookURL, logger, m),
			store,
			logger,
		),
		Metrics: m,
	}

	s := NewServer(cfg, logger, deps)
	if store != nil {
		s.closers = append(s.closers, store.Close)
	}
	return s, nil
}

// Handler はサーバーのHTTPハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルに停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("サーバーを起動します",
			zap.String("project", s.cfg.ProjectName),
			zap.String("addr", srv.Addr),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("サーバーの起動に失敗: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("サーバーを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバーの停止に失敗: %w", err)
	}
	return nil
}

// Close はサーバーが保持するリソースを解放する。
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to Multi-Tenant SaaS Starter"})
	})
	s.router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))

	// 認証必須のAPIエンドポイント
	api := s.router.Group(s.cfg.APIV1Str)
	api.Use(middleware.Auth(s.deps.Verifier))
	{
		api.GET("/protected", s.handleProtected())

		api.POST("/ai/generate", s.handleGenerate())
		api.POST("/ai/summarize", s.handleSummarize())

		api.POST("/incidents", s.handleReportIncident())
		api.GET("/incidents", s.handleListIncidents())
	}
}

// promptRequest は生成AIエンドポイントのリクエストボディ。
type promptRequest struct {
	// Prompt は生成AIへの入力。キーが無い場合のみ拒否し、空文字列は受け付ける。
	Prompt *string `json:"prompt" binding:"required"`
}

// incidentRequest はインシデント報告のリクエストボディ。
type incidentRequest struct {
	// Title は報告のタイトル。
	Title *string `json:"title" binding:"required"`
	// Description は報告の詳細。
	Description *string `json:"description" binding:"required"`
	// Priority はLinearの優先度。省略時は1。範囲の検証はLinearに任せる。
	Priority *int `json:"priority"`
}

// handleProtected は認証済みのクレームとテナントIDを返すハンドラを返す。
func (s *Server) handleProtected() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":   "You are authenticated",
			"user":      middleware.GetClaims(c),
			"tenant_id": tenant.FromGin(c),
		})
	}
}

// handleGenerate はプロンプトからテキストを生成するハンドラを返す。
func (s *Server) handleGenerate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req promptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"response": s.deps.Generator.GenerateText(c.Request.Context(), *req.Prompt)})
	}
}

// handleSummarize はテキストを要約するハンドラを返す。
func (s *Server) handleSummarize() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req promptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"summary": s.deps.Generator.Summarize(c.Request.Context(), *req.Prompt)})
	}
}

// handleReportIncident はインシデントを報告するハンドラを返す。
func (s *Server) handleReportIncident() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req incidentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です: " + err.Error()})
			return
		}

		priority := incident.DefaultPriority
		if req.Priority != nil {
			priority = *req.Priority
		}

		result := s.deps.Incidents.Report(c.Request.Context(), incident.Report{
			Title:       *req.Title,
			Description: *req.Description,
			Priority:    priority,
			ReportedBy:  middleware.GetUserID(c),
		})
		c.JSON(http.StatusOK, gin.H{
			"status":  "Incident Reported",
			"details": result,
		})
	}
}

// handleListIncidents は呼び出し元テナントのインシデント一覧を返すハンドラを返す。
func (s *Server) handleListIncidents() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limitは1以上の整数で指定してください"})
				return
			}
			limit = n
		}

		tenantID := tenant.FromGin(c)
		records, err := s.deps.Incidents.List(c.Request.Context(), tenantID, limit)
		if errors.Is(err, incident.ErrLedgerDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "インシデント台帳が設定されていません"})
			return
		}
		if err != nil {
			s.logger.Error("インシデント一覧の取得に失敗しました", zap.String("tenant_id", tenantID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "インシデント一覧の取得に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"tenant_id": tenantID,
			"incidents": records,
		})
	}
}
