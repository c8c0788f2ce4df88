package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/signica/internal/middleware"
)

// SetupAuthRoutes は認証関連のルーティングを設定したchi.Routerを返す。
// パスは /auth 配下にマウントされる前提の相対パス。
func SetupAuthRoutes(service AuthServiceInterface, config AuthHandlerConfig) http.Handler {
	r := chi.NewRouter()
	h := NewAuthHandler(service, config)

	// OAuthフロー
	r.Get("/google/login", h.Login)
	r.Get("/google/callback", h.Callback)

	// セッション管理
	r.Post("/logout", h.Logout)
	r.Get("/me", h.Me)

	return r
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	// 運用
	HTTPRecorder   middleware.HTTPRecorder // nilの場合はHTTPメトリクスを記録しない
	MetricsHandler http.Handler            // nilの場合は /metrics を公開しない
	HealthChecker  HealthChecker

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// W-9依頼
	W9Service       W9ServiceInterface
	FormService     FormServiceInterface
	EmailDispatcher EmailDispatcher
	RoleResolver    RoleResolver
	UserFinder      UserFinder

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → RealIP → Logging → Metrics → SecurityHeaders → CORS
//	  公開フォーム:   RateLimit(Public)
//	  認証必須ルート: Session → CSRF → RateLimit(General) [→ RateLimit(Create)]
//
// 認証ルート（/auth/*）とヘルスチェックはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	healthHandler := NewHealthHandler(deps.HealthChecker)
	formHandler := NewFormHandler(deps.FormService)
	w9Handler := NewW9Handler(deps.W9Service, deps.UserFinder, deps.EmailDispatcher)
	roleHandler := NewRoleHandler(deps.RoleResolver, deps.UserFinder)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// CSRFトークンはログイン前のフロントエンドからも取得できる
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート（OAuthフロー）
	r.Mount("/auth", SetupAuthRoutes(deps.AuthService, deps.AuthConfig))

	// 回答ページ（ベンダー向け）。クライアントIP単位で制限する
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.PublicMiddleware())

		r.Get("/api/form/{id}", formHandler.GetForm)
		r.Post("/api/form/{id}", formHandler.SubmitForm)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 依頼作成とメール送信は作成専用のレート制限を追加
		r.With(deps.RateLimiter.CreateMiddleware()).Post("/api/create-w9-request", w9Handler.CreateRequest)
		r.With(deps.RateLimiter.CreateMiddleware()).Post("/api/send-w9-email", w9Handler.SendEmail)

		r.Route("/api/w9-requests", func(r chi.Router) {
			r.Get("/", w9Handler.ListCreated)
			r.Get("/received", w9Handler.ListReceived)
			r.Get("/stats", w9Handler.Stats)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", w9Handler.GetRequest)
				r.Patch("/status", w9Handler.UpdateStatus)
				r.Get("/download", w9Handler.Download)
			})
		})

		r.Get("/api/me/role", roleHandler.GetRole)

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}
