package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"campusmarket/internal/auth"
	"campusmarket/internal/chat"
	"campusmarket/internal/config"
	"campusmarket/internal/delivery"
	"campusmarket/internal/logger"
	"campusmarket/internal/notify"
	"campusmarket/internal/post"
	"campusmarket/internal/realtime"
	"campusmarket/internal/transaction"
	"campusmarket/internal/user"
	"campusmarket/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	router        *gin.Engine
	httpServer    *http.Server
	db            *sqlx.DB
	config        *config.Config
	notifications *notify.Queue
}

func New(db *sqlx.DB, rdb *redis.Client, cfg *config.Config) *Server {
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())

	userRepo := user.NewRepository(db)
	postRepo := post.NewRepository(db)
	txRepo := transaction.NewRepository(db)

	notifications := notify.NewQueue(rdb, userRepo, notify.NewSMTPSender(
		cfg.EmailFrom,
		cfg.EmailFromName,
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUser,
		cfg.SMTPPass,
	))

	walletService := wallet.NewService(
		wallet.NewRepository(db),
		txRepo,
		realtime.NewHub(rdb),
		notifications,
		cfg.CommissionRate,
	)
	txService := transaction.NewService(txRepo, postRepo, walletService, notifications)

	userHandler := user.NewHandler(user.NewService(userRepo, cfg.JWTSecret))
	postHandler := post.NewHandler(post.NewService(postRepo))
	chatHandler := chat.NewHandler(chat.NewService(chat.NewRepository(db)))
	txHandler := transaction.NewHandler(txService)
	walletHandler := wallet.NewHandler(walletService)
	deliveryHandler := delivery.NewHandler(delivery.NewQuoter(cfg.DeliveryBaseFee, cfg.DeliveryPerKmFee))

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	limit := RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)

	public := router.Group("/auth")
	public.Use(limit)
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.RefreshToken)
	}

	router.GET("/me", authMiddleware, userHandler.GetMe)

	// Payment reports malformed requests before missing sessions, so the
	// session is resolved without aborting.
	router.POST("/api/wallet/pay", auth.OptionalAuth(cfg.JWTSecret), limit, walletHandler.Pay)

	protected := router.Group("/api")
	protected.Use(authMiddleware)
	{
		protected.GET("/post-types", postHandler.ListPostTypes)
		protected.POST("/posts", limit, postHandler.CreatePost)
		protected.GET("/posts/:id", postHandler.GetPost)

		protected.POST("/conversations", limit, chatHandler.StartConversation)
		protected.GET("/conversations/:id/messages", chatHandler.ListMessages)
		protected.POST("/conversations/:id/messages", limit, chatHandler.SendMessage)

		for route, postType := range transaction.FormRoutes {
			protected.POST("/transacForm/"+route, limit, txHandler.Create(postType))
		}
		protected.GET("/transactions", txHandler.List)
		protected.GET("/transactions/:id", txHandler.Get)
		protected.POST("/transactions/:id/accept", limit, txHandler.Accept)
		protected.POST("/transactions/:id/cancel", limit, txHandler.Cancel)
		protected.POST("/transactions/:id/status", limit, txHandler.UpdateStatus)
		protected.POST("/transactions/:id/complete", limit, txHandler.Complete)

		protected.GET("/wallet/get", walletHandler.Get)
		protected.GET("/wallet/stream", walletHandler.Stream)
		protected.POST("/wallet/cash-in", limit, walletHandler.CashIn)
		protected.POST("/wallet/cash-out", limit, walletHandler.CashOut)

		protected.POST("/delivery/quote", deliveryHandler.Quote)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/transactions", txHandler.ListAll)
	}

	router.GET("/health", Health(db, rdb))
	router.GET("/metrics", Metrics())

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		router:        router,
		httpServer:    httpServer,
		db:            db,
		config:        cfg,
		notifications: notifications,
	}
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// RunWorkers starts the background notification worker until ctx ends.
func (s *Server) RunWorkers(ctx context.Context) {
	go s.notifications.Start(ctx)
}

func (s *Server) Start() error {
	logger.Infof("Server starting on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
