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

	"github.com/hitoshi/signica/internal/auth"
	"github.com/hitoshi/signica/internal/config"
	"github.com/hitoshi/signica/internal/database"
	"github.com/hitoshi/signica/internal/email"
	"github.com/hitoshi/signica/internal/handler"
	"github.com/hitoshi/signica/internal/logger"
	"github.com/hitoshi/signica/internal/metrics"
	"github.com/hitoshi/signica/internal/middleware"
	"github.com/hitoshi/signica/internal/repository"
	"github.com/hitoshi/signica/internal/role"
	"github.com/hitoshi/signica/internal/security"
	"github.com/hitoshi/signica/internal/user"
	"github.com/hitoshi/signica/internal/w9"
	"github.com/hitoshi/signica/internal/worker/expiry"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

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
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandSweep:
		return runSweep(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	w9Repo := repository.NewPostgresW9RequestRepo(db)

	// 3. メトリクス
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// 4. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewInputSanitizer()

	// 5. ドメインサービスの初期化
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		oauthProvider, userRepo, identRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	w9Service := w9.NewService(w9Repo, sanitizer, collector, w9.ServiceConfig{
		RequestTTL: cfg.RequestTTL,
	})

	sender, err := newEmailSender(cfg, ssrfGuard)
	if err != nil {
		return err
	}
	dispatcher := email.NewDispatcher(sender, slog.Default(), collector, email.DispatcherConfig{
		BaseURL:    cfg.BaseURL,
		From:       cfg.EmailFrom,
		RequestTTL: cfg.RequestTTL,
	})

	roleResolver := role.NewResolver(w9Repo)
	userService := user.NewService(userRepo, sessionRepo, w9Repo)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(
		cfg.RateLimitGeneral, cfg.RateLimitCreate, cfg.RateLimitPublic,
	))
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: rateLimiter,

		HTTPRecorder:   collector,
		MetricsHandler: metrics.Handler(reg),
		HealthChecker:  db,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		W9Service:       w9Service,
		FormService:     w9Service,
		EmailDispatcher: dispatcher,
		RoleResolver:    roleResolver,
		UserFinder:      userRepo,

		UserService: userService,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Bool("email_enabled", cfg.EmailEnabled()),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.Ping(context.Background(), db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newEmailSender はメール送信クライアントを生成する。
// APIキー未設定の場合はnilを返し、Dispatcherはログ出力のみを行う。
func newEmailSender(cfg *config.Config, guard security.SSRFGuardService) (email.Sender, error) {
	if !cfg.EmailEnabled() {
		slog.Warn("EMAIL_API_KEY is not set; request emails will be logged instead of sent")
		return nil, nil
	}

	if err := guard.ValidateURL(cfg.EmailAPIURL); err != nil {
		return nil, fmt.Errorf("invalid EMAIL_API_URL: %w", err)
	}

	return email.NewClient(
		guard.NewSafeClient(cfg.EmailTimeout),
		slog.Default(),
		cfg.EmailAPIURL,
		cfg.EmailAPIKey,
	), nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、期限切れ依頼とセッションのスイープジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	sweepJob := newSweepJob(db)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("sweep_interval", cfg.ExpirySweepInterval),
	)

	// スイープジョブをメインgoroutineで実行（ブロッキング）
	sweepJob.Start(ctx, cfg.ExpirySweepInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runSweep は期限切れスイープを1回だけ実行する。
func runSweep(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := newSweepJob(db).RunOnce(ctx); err != nil {
		return fmt.Errorf("expiry sweep failed: %w", err)
	}
	return nil
}

// newSweepJob は期限切れ依頼とセッションのスイープジョブを組み立てる。
// ワーカーのメトリクスはプロセス内で集計し、ログに出力されるカウントを正とする。
func newSweepJob(db *sql.DB) *expiry.SweepJob {
	collector := metrics.NewCollector(prometheus.NewRegistry())
	return expiry.NewSweepJob(
		repository.NewPostgresW9RequestRepo(db),
		repository.NewPostgresSessionRepo(db),
		collector,
		slog.Default(),
	)
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("schema_version", uint64(version)),
	)
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
