package web

import (
	"context"
	"net/http"
	"time"

	"classbook/internal/adapters/http/middleware"
	"classbook/internal/adapters/http/perf"
	accessStore "classbook/internal/adapters/storage/access"
	auditStore "classbook/internal/adapters/storage/audit"
	bookingStore "classbook/internal/adapters/storage/booking"
	capacityStore "classbook/internal/adapters/storage/capacity"
	classInstanceStore "classbook/internal/adapters/storage/classinstance"
	memberStore "classbook/internal/adapters/storage/member"
	outboxStore "classbook/internal/adapters/storage/outbox"
	waitlistStore "classbook/internal/adapters/storage/waitlist"
	"classbook/internal/application/orchestrators"
	"classbook/internal/domain/actor"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

// Stores holds the read-side storage dependencies.
type Stores struct {
	ClassStore    classInstanceStore.Store
	BookingStore  bookingStore.Store
	WaitlistStore waitlistStore.Store
	AccessStore   accessStore.Store
	CapacityStore capacityStore.Store
	MemberStore   memberStore.Store // optional
	OutboxStore   outboxStore.Store
	AuditStore    auditStore.Store
}

// Pinger reports database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP adapter.
type Options struct {
	Engine        orchestrators.EngineDeps
	Outbox        *orchestrators.OutboxProcessor // optional; admin retry is disabled without it
	Collector     *perf.Collector
	DB            Pinger
	JWTSecret     []byte
	RateLimit     middleware.RateLimitConfig
	Redis         *redis.Client           // optional
	Limiter       *middleware.RateLimiter // in-process bucket; also the fallback when Redis fails
	SlowRequestMs int
	Version       string
}

type server struct {
	stores *Stores
	opts   Options
}

// requestValidator adapts validator/v10 to echo.
type requestValidator struct {
	validate *validator.Validate
}

// Validate implements echo.Validator.
func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

var (
	staffRoles = []string{actor.RoleAdmin, actor.RoleStaff, actor.RoleInstructor}
	adminRoles = []string{actor.RoleAdmin, actor.RoleStaff}
)

// NewRouter wires HTTP handlers for the booking engine.
// PRE: s and opts.Engine are fully populated
// POST: Returns an echo instance ready to serve
func NewRouter(s *Stores, opts Options) *echo.Echo {
	srv := &server{stores: s, opts: opts}
	if opts.RateLimit.Enabled && opts.Limiter == nil {
		opts.Limiter = middleware.NewRateLimiter(opts.RateLimit.Capacity, opts.RateLimit.RefillTokens, opts.RateLimit.RefillInterval)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
	e.HTTPErrorHandler = handleError

	// Recover -> Timing -> SecurityHeaders -> route
	e.Use(echomw.Recover())
	e.Use(middleware.Timing(opts.Collector, opts.SlowRequestMs))
	e.Use(middleware.SecurityHeaders)
	e.Use(echomw.BodyLimit("64K"))

	e.GET("/health", srv.handleHealth)

	api := e.Group("/api",
		middleware.Auth(opts.JWTSecret),
		middleware.RateLimit(opts.RateLimit, opts.Redis, opts.Limiter),
	)
	requireStaff := middleware.RequireRole(staffRoles...)
	requireAdmin := middleware.RequireRole(adminRoles...)

	api.GET("/locations/:id/classes", srv.handleLocationClasses)
	api.GET("/locations/:id/capacity", srv.handleLocationCapacity, requireStaff)
	api.POST("/enrollments/check", srv.handleCheckEnrollment, requireStaff)
	api.GET("/members/:id/access", srv.handleMemberAccess)

	api.POST("/classes", srv.handleCreateClass, requireAdmin)
	api.GET("/classes/:id/roster", srv.handleClassRoster, requireStaff)
	api.POST("/classes/:id/bookings", srv.handleBookClass)
	api.POST("/classes/:id/waitlist", srv.handleJoinWaitlist)
	api.PUT("/classes/:id/capacity", srv.handleUpdateCapacity, requireAdmin)
	api.POST("/classes/:id/cancel", srv.handleCancelClass, requireAdmin)
	api.POST("/classes/:id/reschedule", srv.handleRescheduleClass, requireAdmin)
	api.POST("/classes/:id/promote", srv.handlePromote, requireStaff)

	api.POST("/bookings/:id/cancel", srv.handleCancelBooking)
	api.POST("/bookings/:id/attendance", srv.handleMarkAttendance, requireStaff)
	api.POST("/waitlist/:id/leave", srv.handleLeaveWaitlist)

	admin := api.Group("/admin", middleware.RequireRole(actor.RoleAdmin))
	admin.GET("/outbox", srv.handleAdminOutbox)
	admin.POST("/outbox/:id/retry", srv.handleAdminOutboxRetry)
	admin.POST("/outbox/:id/abandon", srv.handleAdminOutboxAbandon)
	admin.GET("/audit", srv.handleAdminAuditTrail)
	admin.GET("/perf", srv.handleAdminPerf)

	return e
}

// handleHealth reports liveness and database reachability (GET /health).
func (s *server) handleHealth(c echo.Context) error {
	if s.opts.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.DB.Ping(ctx); err != nil {
			internalLog(err)
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "version": s.opts.Version})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "version": s.opts.Version})
}
