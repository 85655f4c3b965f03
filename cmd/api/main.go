// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yourusername/gotodo/internal/auth"
	"github.com/yourusername/gotodo/internal/config"
	"github.com/yourusername/gotodo/internal/store"
	"github.com/yourusername/gotodo/internal/todo"
	"github.com/yourusername/gotodo/internal/web"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// データベース接続とマイグレーション
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := store.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()
	router.LoadHTMLGlob("templates/*.html")

	// セッションストアの設定（セッションはDBのテーブルに永続化する）
	secret := cfg.SessionSecret
	if secret == "" {
		// 開発用フォールバック。release モードでは Validate が空の秘密鍵を拒否する
		secret = "dev-session-secret"
	}
	sessionStore := gormsessions.NewStore(db, true, []byte(secret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   auth.SessionMaxAgeSeconds(),
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteStrictMode,
	})
	router.Use(sessions.Sessions(cfg.SessionName, sessionStore))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
	}
	router.Use(cors.New(corsConfig))

	// ルーティングの設定
	if err := setupRoutes(router, cfg, db); err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Todo List API is now listening on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "gotodo-api",
		"version": "0.1.0",
	})
}

// setupRoutes はビュー・認証・APIの配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, db *gorm.DB) error {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	users := store.NewGormUserRepository(db)
	todos := store.NewGormTodoRepository(db)

	limiter, err := newLoginLimiter(cfg)
	if err != nil {
		return err
	}
	manager := auth.NewManager(users, auth.NewHasher(cfg.BcryptCost), limiter)

	// ビュールート（未認証はログイン画面へリダイレクト）
	router.GET("/", manager.RequireLoginView(), web.Home)
	router.GET("/login", manager.ShowLogin)
	router.POST("/login", manager.Login)
	router.GET("/register", manager.ShowRegister)
	router.POST("/register", manager.Register)
	router.GET("/logout", manager.Logout)

	// APIルート（未認証は 401 JSON）
	api := router.Group("/api")
	api.Use(manager.RequireLogin())
	{
		todoRoutes := api.Group("/todos")
		{
			todoRoutes.GET("", todo.ListHandler(todos))
			todoRoutes.GET("/:id", todo.GetHandler(todos))
			todoRoutes.POST("", todo.CreateHandler(todos))
			todoRoutes.PUT("/mark/:id", todo.ToggleHandler(todos))
			todoRoutes.PUT("/:id", todo.RenameHandler(todos))
			todoRoutes.DELETE("/:id", todo.DeleteHandler(todos))
		}
	}

	return nil
}

// newLoginLimiter は設定に応じてログイン試行カウンタを作成します。
// LIMITER_REDIS_URL が設定されていれば複数インスタンスで共有できるRedis実装を使います。
func newLoginLimiter(cfg *config.Config) (auth.LoginLimiter, error) {
	if cfg.LimiterRedisURL == "" {
		return auth.NewMemoryLimiter(), nil
	}
	opts, err := redis.ParseURL(cfg.LimiterRedisURL)
	if err != nil {
		return nil, err
	}
	return auth.NewRedisLimiter(redis.NewClient(opts)), nil
}
