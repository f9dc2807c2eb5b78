package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slotbook/internal/auth"
	"slotbook/internal/domain"
	"slotbook/internal/service/bookings"
)

type bookingService interface {
	Availability(ctx context.Context, date string, cred auth.Credential) (bookings.Availability, error)
	FreeSlots(ctx context.Context, date string, durationMin int) ([]domain.TimePoint, error)
	ListRange(ctx context.Context, start, end string, cred auth.Credential, query string) ([]domain.Row, error)
	Mutate(ctx context.Context, date string, a domain.Action, cred auth.Credential) error
	Ready(ctx context.Context) error
}

type Options struct {
	// Sessions is nil when cookie sessions are disabled.
	Sessions       *auth.Sessions
	Basic          auth.BasicCredentials
	AllowedOrigins []string
	RatePerMinute  int
	RateBurst      int
	SecureCookies  bool
}

type Handler struct {
	svc      bookingService
	log      *zap.Logger
	sessions *auth.Sessions
	basic    auth.BasicCredentials
	secure   bool
}

// NewRouter wires the public booking API, the admin API and health probes onto a gin engine.
func NewRouter(svc bookingService, log *zap.Logger, opts Options) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "http"))

	h := &Handler{
		svc:      svc,
		log:      log,
		sessions: opts.Sessions,
		basic:    opts.Basic,
		secure:   opts.SecureCookies,
	}

	r := gin.New()
	r.Use(requestID())
	r.Use(accessLog(log))
	r.Use(recovery(log))
	if c, ok := corsConfig(opts.AllowedOrigins); ok {
		r.Use(cors.New(c))
	}

	r.GET("/healthz", h.healthz)
	r.GET("/readyz", h.readyz)

	api := r.Group("/api")
	api.Use(noCache())
	{
		api.GET("/availability", h.availability)
		api.GET("/slots", h.slots)
		api.POST("/book", newRateLimiter(opts.RatePerMinute, opts.RateBurst).middleware(log), h.book)
		api.POST("/admin-cancel", h.adminCancel)
		api.GET("/admin-list", h.adminList)
		api.GET("/admin-export", h.adminExport)
	}

	admin := r.Group("/admin")
	admin.Use(noCache())
	{
		admin.POST("/session", h.createSession)
		admin.DELETE("/session", h.deleteSession)
	}

	return r
}

func corsConfig(origins []string) (cors.Config, bool) {
	cleaned := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	if len(cleaned) == 0 {
		return cors.Config{}, false
	}

	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", adminKeyHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range cleaned {
		if o == "*" {
			c.AllowAllOrigins = true
			return c, true
		}
	}
	c.AllowOrigins = cleaned
	c.AllowCredentials = true
	return c, true
}
