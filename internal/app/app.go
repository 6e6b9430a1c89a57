// Package app はアプリケーションの初期化、依存関係のワイヤリング、起動を提供する。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/profilehub/internal/auth"
	"github.com/hitoshi/profilehub/internal/config"
	"github.com/hitoshi/profilehub/internal/database"
	"github.com/hitoshi/profilehub/internal/form"
	"github.com/hitoshi/profilehub/internal/handler"
	"github.com/hitoshi/profilehub/internal/logger"
	"github.com/hitoshi/profilehub/internal/metrics"
	"github.com/hitoshi/profilehub/internal/middleware"
	"github.com/hitoshi/profilehub/internal/profile"
	"github.com/hitoshi/profilehub/internal/remote"
	"github.com/hitoshi/profilehub/internal/repository"
	"github.com/hitoshi/profilehub/internal/security"
	"github.com/hitoshi/profilehub/internal/storage"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再設定
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はWebサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスレジストリ
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 3. ルーターの構築
	router, err := NewRouter(cfg, db, reg)
	if err != nil {
		return err
	}

	// 4. HTTPサーバーの起動
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down web server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// NewRouter は設定とDB接続から全依存関係をワイヤリングし、HTTPハンドラーを返す。
// regにはアプリケーションのメトリクスを登録し、/metricsで公開する。
func NewRouter(cfg *config.Config, db *sql.DB, reg *prometheus.Registry) (http.Handler, error) {
	collector := metrics.NewCollector(reg)

	// 1. リポジトリ
	profileRepo := repository.NewPostgresProfileRepo(db)

	// 2. 外部サービスクライアント（Supabase Auth / Storage）
	httpClient := &http.Client{Timeout: cfg.RemoteCallTimeout}
	authRemote := remote.NewClient(remote.Config{
		BaseURL:    cfg.SupabaseURL,
		APIKey:     cfg.SupabaseAnonKey,
		Service:    "auth",
		HTTPClient: httpClient,
		Metrics:    collector,
	})
	storageRemote := remote.NewClient(remote.Config{
		BaseURL:    cfg.SupabaseURL,
		APIKey:     cfg.SupabaseAnonKey,
		Service:    "storage",
		HTTPClient: httpClient,
		Metrics:    collector,
	})
	gotrue := auth.NewGoTrueClient(authRemote)

	// 3. ドメインサービス
	resolver := auth.NewResolver(gotrue, auth.NewTokenParser(cfg.SupabaseJWTSecret))
	authService := auth.NewService(gotrue, profileRepo, auth.ServiceConfig{
		BaseURL:  cfg.BaseURL,
		Provider: cfg.AuthProvider,
	})
	reconciler := profile.NewReconciler(profileRepo, collector)
	editor := profile.NewEditService(
		profileRepo,
		storage.NewClient(storageRemote),
		security.NewTextSanitizer(),
		cfg.AvatarBucket,
	)

	// 4. ハンドラー
	renderer, err := handler.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	cookie := middleware.CookieConfig{
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
	}
	h := handler.NewHandler(authService, editor, form.NewRunner(collector), renderer, handler.HandlerConfig{
		Cookie:         cookie,
		AvatarMaxBytes: cfg.AvatarMaxBytes,
	})

	// アバターの上限を引き上げた場合もサイズ超過をバリデーションで返せるようにする
	maxBody := handler.DefaultMaxBodyBytes
	if limit := cfg.AvatarMaxBytes * 2; limit > maxBody {
		maxBody = limit
	}

	return handler.NewRouter(&handler.RouterDeps{
		Session: middleware.SessionConfig{
			Resolver:   resolver,
			Profiles:   profileRepo,
			Reconciler: reconciler,
			Cookie:     cookie,
		},
		Logger:        slog.Default(),
		StatusMetric:  collector,
		MaxBodyBytes:  maxBody,
		ImageOrigins:  []string{cfg.SupabaseURL},
		Handler:       h,
		HealthChecker: db,
		Metrics:       metrics.Handler(reg),
	}), nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
