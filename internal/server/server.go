package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"karyalay/internal/api"
	"karyalay/internal/auth"
	"karyalay/internal/availability"
	"karyalay/internal/booking"
	"karyalay/internal/config"
	"karyalay/internal/user"
	"karyalay/internal/venue"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups the domain handlers the router mounts.
type Handlers struct {
	User         *user.Handler
	Venue        *venue.Handler
	Booking      *booking.Handler
	Availability *availability.Handler
}

type Server struct {
	router  *gin.Engine
	http    *http.Server
	config  *config.Config
	limiter *RateLimiter
}

// New builds the router. sessions may be nil, in which case access tokens are
// trusted until they expire.
func New(cfg *config.Config, h Handlers, sessions auth.SessionChecker, checks ...Check) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	api.UseJSONFieldNames()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())
	var limiter *RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 3*time.Minute)
		go limiter.Run(time.Minute)
		router.Use(RateLimitMiddleware(limiter))
	}

	router.GET("/health", Health(checks...))
	router.GET("/metrics", Metrics())

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret, sessions)

	public := router.Group("/")
	{
		public.POST("/auth/signup", h.User.SignUp)
		public.POST("/auth/login", h.User.Login)
		public.POST("/auth/otp", h.User.RequestCode)
		public.POST("/auth/otp/verify", h.User.VerifyCode)
		public.POST("/auth/refresh", h.User.Refresh)

		public.GET("/venues", h.Venue.ListVenues)
		public.GET("/venues/:venueID", h.Venue.GetVenue)
		public.GET("/venues/:venueID/availability", h.Availability.GetMonth)
		public.GET("/venues/:venueID/availability/:date", h.Availability.GetDay)
		public.GET("/venues/:venueID/bookings", h.Availability.GetIntervals)
		public.GET("/venues/:venueID/calendar.ics", h.Booking.VenueCalendar)
	}

	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/auth/session", h.User.Session)
		protected.POST("/auth/logout", h.User.Logout)
		protected.GET("/me", h.User.GetMe)
		protected.PATCH("/me", h.User.UpdateMe)

		protected.POST("/bookings", h.Booking.CreateBooking)
		protected.GET("/bookings", h.Booking.ListMyBookings)
		protected.PATCH("/bookings/:bookingID/status", h.Booking.UpdateStatus)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/venues", h.Venue.CreateVenue)
		admin.PATCH("/venues/:venueID", h.Venue.UpdateVenue)
		admin.PATCH("/bookings/:bookingID/status", h.Booking.UpdateStatus)
		admin.GET("/stats/bookings", h.Booking.Stats)
	}

	return &Server{
		router:  router,
		config:  cfg,
		limiter: limiter,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains the HTTP server and stops the rate limiter's sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Authorization", "Content-Type", "Accept"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	})
}
