package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）。120/60 = 2 req/sec
	GeneralBurst    int           // API全般のバーストサイズ
	CreateRate      rate.Limit    // W-9依頼作成・メール送信のレート（req/sec）。20/60
	CreateBurst     int           // W-9依頼作成・メール送信のバーストサイズ
	PublicRate      rate.Limit    // 公開フォームのIP単位のレート（req/sec）。30/60
	PublicBurst     int           // 公開フォームのバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// 要件: API全般 120 req/min/user、依頼作成 20 req/min/user、公開フォーム 30 req/min/IP
func DefaultRateLimiterConfig() RateLimiterConfig {
	return NewRateLimiterConfig(120, 20, 30)
}

// NewRateLimiterConfig は1分あたりのリクエスト数からRateLimiterConfigを生成する。
// バーストサイズは1分あたりの上限と同じ値にする。
func NewRateLimiterConfig(generalPerMin, createPerMin, publicPerMin int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     perMinute(generalPerMin),
		GeneralBurst:    generalPerMin,
		CreateRate:      perMinute(createPerMin),
		CreateBurst:     createPerMin,
		PublicRate:      perMinute(publicPerMin),
		PublicBurst:     publicPerMin,
		CleanupInterval: 5 * time.Minute,
	}
}

func perMinute(n int) rate.Limit {
	return rate.Limit(float64(n) / 60.0)
}

// keyedLimiter はキー（ユーザーIDまたはIP）ごとのレートリミッターとアクセス時刻を保持する。
type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterPool は1種類のレート制限についてキーごとのリミッターを管理する。
type limiterPool struct {
	rate  rate.Limit
	burst int

	mu       sync.RWMutex
	limiters map[string]*keyedLimiter
}

func newLimiterPool(r rate.Limit, burst int) *limiterPool {
	return &limiterPool{
		rate:     r,
		burst:    burst,
		limiters: make(map[string]*keyedLimiter),
	}
}

// get はキーのリミッターを取得または作成する。
func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.RLock()
	kl, exists := p.limiters[key]
	p.mu.RUnlock()

	if exists {
		p.mu.Lock()
		kl.lastAccess = time.Now()
		p.mu.Unlock()
		return kl.limiter
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// ダブルチェック
	if kl, exists := p.limiters[key]; exists {
		kl.lastAccess = time.Now()
		return kl.limiter
	}

	limiter := rate.NewLimiter(p.rate, p.burst)
	p.limiters[key] = &keyedLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

func (p *limiterPool) count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.limiters)
}

// evict は最終アクセスから ttl を超えたエントリを削除する。
func (p *limiterPool) evict(now time.Time, ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, kl := range p.limiters {
		if now.Sub(kl.lastAccess) > ttl {
			delete(p.limiters, key)
		}
	}
}

// RateLimiter はユーザーごと・IPごとのレート制限を管理する。
// API全般、依頼作成、公開フォームの3種類を提供し、それぞれ独立に動作する。
type RateLimiter struct {
	config RateLimiterConfig

	general *limiterPool
	create  *limiterPool
	public  *limiterPool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		general: newLimiterPool(config.GeneralRate, config.GeneralBurst),
		create:  newLimiterPool(config.CreateRate, config.CreateBurst),
		public:  newLimiterPool(config.PublicRate, config.PublicBurst),
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// リクエストコンテキストにユーザーIDが含まれている必要がある（SessionMiddlewareの後に配置）。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.userMiddleware(rl.general, "general")
}

// CreateMiddleware はW-9依頼作成・メール送信専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) CreateMiddleware() func(next http.Handler) http.Handler {
	return rl.userMiddleware(rl.create, "create")
}

// PublicMiddleware は未認証の公開フォーム向けに、クライアントIP単位でレート制限する。
// 信頼できるプロキシ配下ではchiのRealIPミドルウェアの後に配置する。
func (rl *RateLimiter) PublicMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !rl.public.get(ip).Allow() {
				writeRateLimitResponse(w, rl.public.rate)
				slog.Warn("rate limit exceeded",
					slog.String("client_ip", ip),
					slog.String("limit_type", "public"),
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) userMiddleware(pool *limiterPool, limitType string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteUnauthorized(w)
				return
			}

			if !pool.get(userID).Allow() {
				writeRateLimitResponse(w, pool.rate)
				slog.Warn("rate limit exceeded",
					slog.String("user_id", userID),
					slog.String("limit_type", limitType),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.count()
}

// CreateLimiterCount は現在管理されている依頼作成リミッターのエントリ数を返す。
func (rl *RateLimiter) CreateLimiterCount() int {
	return rl.create.count()
}

// PublicLimiterCount は現在管理されている公開フォームリミッターのエントリ数を返す。
func (rl *RateLimiter) PublicLimiterCount() int {
	return rl.public.count()
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2
	now := time.Now()

	rl.general.evict(now, ttl)
	rl.create.evict(now, ttl)
	rl.public.evict(now, ttl)
}

// clientIP はRemoteAddrからポートを除いたIPを返す。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	// Retry-Afterの算出: 1トークンが補充されるまでの秒数
	retryAfterSec := 1
	if r > 0 {
		retryAfterSec = int(math.Ceil(1.0 / float64(r)))
	}
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     "RATE_LIMIT_EXCEEDED",
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
