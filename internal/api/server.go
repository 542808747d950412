// Package api exposes the HTTP surface: auth, wallet, plans, investments,
// the transaction workflow and the admin endpoints, plus the admin
// websocket event feed.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"profitbliss-backend/internal/auth"
	"profitbliss-backend/internal/database"
	"profitbliss-backend/internal/events"
	"profitbliss-backend/internal/investment"
	"profitbliss-backend/internal/transaction"
	"profitbliss-backend/internal/wallet"
)

// RateLimiter provides simple in-memory rate limiting per client
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	AllowedOrigins string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ProductionMode bool
}

// Server represents the HTTP API server
type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	repo         *database.Repository
	bus          *events.Bus
	config       ServerConfig
	authService  *auth.Service
	ledger       *wallet.Ledger
	investments  *investment.Service
	transactions *transaction.Service
	rateLimiter  *RateLimiter
	hub          *WSHub
	logger       zerolog.Logger
}

// NewServer creates a new API server
func NewServer(
	config ServerConfig,
	repo *database.Repository,
	bus *events.Bus,
	authService *auth.Service,
	ledger *wallet.Ledger,
	investments *investment.Service,
	transactions *transaction.Service,
	logger zerolog.Logger,
) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if config.AllowedOrigins == "" || config.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(config.AllowedOrigins, ",")
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:       router,
		repo:         repo,
		bus:          bus,
		config:       config,
		authService:  authService,
		ledger:       ledger,
		investments:  investments,
		transactions: transactions,
		rateLimiter:  NewRateLimiter(120, time.Minute),
		hub:          NewWSHub(logger),
		logger:       logger.With().Str("component", "api").Logger(),
	}

	server.setupRoutes()

	// Feed every platform event into the admin websocket hub.
	go server.hub.Run()
	bus.SubscribeAll(server.hub.BroadcastEvent)

	return server
}

// rateLimitMiddleware limits requests per client IP
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.rateLimiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "RATE_LIMITED",
				"message": "too many requests, please slow down",
			})
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	s.router.Use(s.rateLimitMiddleware())

	jwtManager := s.authService.GetJWTManager()
	authHandlers := auth.NewHandlers(s.authService)

	// Public auth routes
	authGroup := s.router.Group("/api/auth")
	{
		authGroup.POST("/signup", authHandlers.Signup)
		authGroup.POST("/login", authHandlers.Login)
		authGroup.POST("/refresh", authHandlers.Refresh)
		authGroup.POST("/logout", authHandlers.Logout)
		authGroup.POST("/verify-email", authHandlers.VerifyEmail)
		authGroup.POST("/resend-code", authHandlers.ResendCode)
	}

	// Public plan catalog
	s.router.GET("/api/plans", s.handleListPlans)

	// Authenticated routes
	api := s.router.Group("/api")
	api.Use(auth.Middleware(jwtManager))
	{
		api.GET("/auth/me", authHandlers.Me)
		api.POST("/auth/change-password", authHandlers.ChangePassword)

		api.GET("/wallet", s.handleGetWallet)

		api.POST("/investments", s.handleSubscribe)
		api.GET("/investments", s.handleListActiveInvestments)
		api.GET("/investments/history", s.handleInvestmentHistory)

		api.POST("/transactions/deposit", s.handleRequestDeposit)
		api.POST("/transactions/withdraw", s.handleRequestWithdraw)
		api.GET("/transactions", s.handleListTransactions)
	}

	// Admin routes
	admin := s.router.Group("/api/admin")
	admin.Use(auth.Middleware(jwtManager), auth.RequireAdmin())
	{
		admin.POST("/plans", s.handleCreatePlan)
		admin.PUT("/plans/:id", s.handleUpdatePlan)
		admin.DELETE("/plans/:id", s.handleDeletePlan)

		admin.GET("/transactions", s.handleAdminListTransactions)
		admin.POST("/transactions/:id/approve", s.handleApproveTransaction)
		admin.POST("/transactions/:id/reject", s.handleRejectTransaction)

		admin.GET("/investments", s.handleAdminListInvestments)

		admin.GET("/events/feed", s.handleEventFeed)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.repo.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unhealthy",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "healthy",
	})
}
