package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkravets/travelbooking/api"
	"github.com/mkravets/travelbooking/config"
	"github.com/mkravets/travelbooking/internal/access"
)

// Deps carries the wired handlers and auth material for the HTTP server.
type Deps struct {
	Bookings  *api.BookingHandler
	Payments  *api.PaymentHandler
	Dashboard *api.DashboardHandler
	Sessions  *api.SessionHandler
	Roles     access.RoleSource
}

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, deps Deps) error {
	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: newRouter(cfg, deps),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newRouter(cfg *config.Config, deps Deps) *gin.Engine {
	router := gin.Default()

	unauthorized := cfg.Auth.UnauthorizedPath
	if unauthorized == "" {
		unauthorized = "/unauthorized"
	}
	router.GET(unauthorized, func(c *gin.Context) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	})

	// the gateway signs webhook deliveries itself, no user session involved
	deps.Payments.RegisterWebhook(router)

	authed := router.Group("/", access.Authenticate(cfg.Auth.Secret(), deps.Roles))

	bookings := authed.Group("/bookings", access.RequireRole(unauthorized, "user", "admin"))
	deps.Bookings.Register(bookings)
	deps.Payments.Register(bookings)

	dashboard := authed.Group("/dashboard", access.RequireRole(unauthorized, "user", "admin"))
	deps.Dashboard.Register(dashboard)

	admin := authed.Group("/admin", access.RequireRole(unauthorized, "admin"))
	deps.Dashboard.RegisterAdmin(admin)
	deps.Sessions.Register(admin)

	return router
}
