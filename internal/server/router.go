package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"dashboard-console/internal/action"
	"dashboard-console/internal/auth"
	"dashboard-console/internal/handler"
	"dashboard-console/internal/hub"
	"dashboard-console/internal/logging"
	"dashboard-console/internal/middleware"
	"dashboard-console/internal/referrer"
	"dashboard-console/internal/store"
)

type Deps struct {
	State       *store.State
	Creator     *action.Creator
	TokenConfig auth.TokenConfig
	Hub         *hub.Hub
	Referrers   *referrer.Jar
	Logger      *zap.Logger

	// AuthLimiter bounds login and signup attempts per client. Nil allows
	// ten per minute.
	AuthLimiter *middleware.RateLimiter
	// Timeout bounds how long a view waits on the backend.
	Timeout time.Duration
}

func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	wsHub := deps.Hub
	if wsHub == nil {
		wsHub = hub.New()
	}
	limiter := deps.AuthLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(10, time.Minute)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.Requests(logger))
	if deps.Referrers != nil {
		r.Use(deps.Referrers.Capture())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	views := &handler.Views{
		State:   deps.State,
		Creator: deps.Creator,
		Policy:  bluemonday.StrictPolicy(),
		Timeout: deps.Timeout,
	}

	accountHandler := &handler.AccountHandler{
		Views:       views,
		TokenConfig: deps.TokenConfig,
		Referrers:   deps.Referrers,
		Logger:      logger,
	}
	limited := r.Group("/v1", middleware.Limit(limiter))
	limited.POST("/login", accountHandler.Login)
	limited.POST("/signup", accountHandler.Signup)

	protected := r.Group("/v1")
	protected.Use(middleware.RequireAuth(deps.TokenConfig))
	protected.Use(middleware.RequireSession(deps.State.Account.User))

	protected.POST("/logout", accountHandler.Logout)
	protected.GET("/account", accountHandler.Get)

	appHandler := &handler.AppHandler{Views: views}
	protected.GET("/apps", appHandler.List)
	protected.POST("/apps", appHandler.Create)
	protected.GET("/apps/:id", appHandler.Get)
	protected.PUT("/apps/:id", appHandler.Update)
	protected.DELETE("/apps/:id", appHandler.Delete)

	memberHandler := &handler.MemberHandler{Views: views}
	protected.GET("/members", memberHandler.List)
	protected.POST("/members", memberHandler.Create)
	protected.POST("/members/invite", memberHandler.Invite)
	protected.GET("/members/:id", memberHandler.Get)
	protected.PUT("/members/:id", memberHandler.Update)
	protected.DELETE("/members/:id", memberHandler.Delete)

	analyticsHandler := &handler.AnalyticsHandler{Views: views}
	protected.GET("/analytics", analyticsHandler.Get)

	onboardingHandler := &handler.OnboardingHandler{Views: views}
	protected.GET("/onboarding", onboardingHandler.Get)
	protected.POST("/onboarding/persona", onboardingHandler.SelectPersona)
	protected.POST("/onboarding/options", onboardingHandler.SelectOptions)

	stateHandler := &handler.StateHandler{Views: views}
	protected.GET("/state", stateHandler.Get)

	wsHandler := &handler.WebSocketHandler{Hub: wsHub, State: deps.State, TokenConfig: deps.TokenConfig, Logger: logger}
	r.GET("/ws", wsHandler.Serve)

	return r
}
