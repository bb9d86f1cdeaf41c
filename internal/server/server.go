package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"kickgym/internal/auth"
	"kickgym/internal/broker"
	"kickgym/internal/checkin"
	"kickgym/internal/config"
	"kickgym/internal/db"
	"kickgym/internal/email"
	"kickgym/internal/event"
	"kickgym/internal/membership"
	"kickgym/internal/reservation"
	"kickgym/internal/trainer"
	"kickgym/internal/user"
)

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	db         *sqlx.DB
	config     *config.Config
	email      *email.Service
	limiter    *RateLimiter
}

func New(database *sqlx.DB, cfg *config.Config, emailService *email.Service, publisher broker.Publisher) *Server {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	tx := db.NewTxManager(database)

	userRepo := user.NewRepository(database)
	trainerRepo := trainer.NewRepository(database)

	membershipService := membership.NewService(membership.NewRepository(database), tx)
	userService := user.NewService(userRepo, membershipService, tx, cfg.JWTSecret)
	trainerService := trainer.NewService(trainerRepo)
	checkinService := checkin.NewService(checkin.NewRepository(database), tx, publisher)
	reservationService := reservation.NewService(
		reservation.NewRepository(database),
		trainerRepo,
		membershipService,
		userRepo,
		emailService,
		tx,
		cfg.Location(),
	)
	eventService := event.NewService(event.NewRepository(database), tx, userRepo, emailService)

	limiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 3*time.Minute)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		RequestLoggingMiddleware(),
		MetricsMiddleware(),
		corsMiddleware(),
		limiter.Middleware(),
	)

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		db:      database,
		config:  cfg,
		email:   emailService,
		limiter: limiter,
	}

	s.routes(
		user.NewHandler(userService),
		membership.NewHandler(membershipService),
		trainer.NewHandler(trainerService),
		checkin.NewHandler(checkinService),
		reservation.NewHandler(reservationService),
		event.NewHandler(eventService),
	)
	return s
}

func (s *Server) routes(
	users *user.Handler,
	plans *membership.Handler,
	trainers *trainer.Handler,
	checkins *checkin.Handler,
	reservations *reservation.Handler,
	events *event.Handler,
) {
	r := s.router

	r.GET("/health", Health(s.db, s.email))
	r.GET("/metrics", Metrics())
	if s.config.DocsEnabled() {
		SetupSwagger(r)
	}

	public := r.Group("/auth")
	{
		public.POST("/register", users.Register)
		public.POST("/login", users.Login)
		public.POST("/refresh", users.RefreshToken)
	}

	authMiddleware := auth.AuthMiddleware(s.config.JWTSecret)

	protected := r.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", users.GetMe)
		protected.GET("/me/credits", plans.CreditHistory)

		protected.GET("/plans", plans.ListPlans)
		protected.POST("/plans/:planID/purchase", plans.PurchasePlan)

		protected.GET("/trainers", trainers.ListTrainers)
		protected.GET("/trainers/:trainerID", trainers.GetTrainer)

		protected.POST("/reservations", reservations.Book)
		protected.GET("/reservations", reservations.List)
		protected.POST("/reservations/:id/cancel", reservations.Cancel)
		protected.POST("/reservations/:id/reschedule", reservations.Reschedule)

		protected.GET("/events", events.ListEvents)
		protected.POST("/events/:eventID/register", events.Register)
		protected.DELETE("/events/:eventID/registration", events.Unregister)
	}

	admin := r.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleStaff, auth.RoleAdmin))
	{
		admin.POST("/checkins", checkins.Toggle)
		admin.GET("/checkins/open", checkins.ListOpen)

		admin.POST("/plans", plans.CreatePlan)
		admin.PATCH("/members/:memberID/status", plans.UpdateStatus)

		admin.POST("/trainers", trainers.CreateTrainer)

		admin.GET("/reservations/stats", reservations.Stats)
		admin.POST("/reservations/:id/complete", reservations.Complete)
		admin.POST("/reservations/:id/no-show", reservations.MarkNoShow)

		admin.POST("/events", events.CreateEvent)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
