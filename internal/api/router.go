package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/insurai/portal/internal/app"
	iauth "github.com/insurai/portal/internal/auth"
	"github.com/insurai/portal/internal/handlers"
	"github.com/insurai/portal/internal/middleware"
	"github.com/insurai/portal/internal/monitoring"
	"github.com/insurai/portal/internal/notifications"
	"github.com/insurai/portal/internal/services"
)

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	Config    *app.Config
	Sessions  middleware.SessionResolver
	Guard     *iauth.Guard
	RateStore middleware.RateStore
	Health    *monitoring.HealthManager

	Auth     *services.AuthService
	Employee *services.EmployeeService
	HR       *services.HRService
	Agent    *services.AgentService
	Admin    *services.AdminService
	Fraud    *services.FraudService
	Reports  *services.ReportService

	Notifications *notifications.Manager
	Poller        *notifications.Poller
	Hub           *notifications.Hub
}

func (d Dependencies) validate() error {
	switch {
	case d.Config == nil:
		return fmt.Errorf("config must be provided")
	case d.Sessions == nil:
		return fmt.Errorf("session resolver must be provided")
	case d.Guard == nil:
		return fmt.Errorf("route guard must be provided")
	case d.Auth == nil:
		return fmt.Errorf("auth service must be provided")
	case d.Employee == nil || d.HR == nil || d.Agent == nil || d.Admin == nil || d.Fraud == nil:
		return fmt.Errorf("role services must be provided")
	case d.Reports == nil:
		return fmt.Errorf("report service must be provided")
	case d.Notifications == nil || d.Poller == nil || d.Hub == nil:
		return fmt.Errorf("notification components must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.NoRoute(middleware.NotFoundHandler)

	registerHealthRoutes(r, cfg, deps.Health)
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(deps.Auth)
	limit := middleware.RateLimit(deps.RateStore, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window)
	registerPublicAuthRoutes(r.Group("/api/auth"), authHandler, limit)

	// Protected routes: session, then route tree, then CSRF for cookie sessions.
	protected := []gin.HandlerFunc{
		middleware.Auth(deps.Sessions),
		middleware.RequireRoute(deps.Guard),
		middleware.CSRF(),
	}

	api := r.Group("/api", protected...)
	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/logout", authHandler.Logout)

	fraudHandler := handlers.NewFraudHandler(deps.Fraud, deps.Auth)
	registerEmployeeRoutes(api, handlers.NewEmployeeHandler(deps.Employee, deps.Auth))
	registerHRRoutes(api, handlers.NewHRHandler(deps.HR, deps.Auth), fraudHandler)
	registerAgentRoutes(api, handlers.NewAgentHandler(deps.Agent, deps.Auth))
	registerAdminRoutes(api, handlers.NewAdminHandler(deps.Admin, deps.Auth), fraudHandler)
	registerNotificationRoutes(api, handlers.NewNotificationHandler(deps.Notifications, deps.Poller, deps.Hub, deps.Auth))
	registerReportRoutes(api, handlers.NewReportHandler(deps.Reports, deps.Auth))

	registerPageRoutes(r, protected)

	return r, nil
}
