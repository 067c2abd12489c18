package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/devZenta/SafeSend/internal/auth"
	"github.com/devZenta/SafeSend/internal/config"
	"github.com/devZenta/SafeSend/internal/knock"
	"github.com/devZenta/SafeSend/internal/store"
)

// App is the slice of the running application the HTTP layer uses.
type App interface {
	Config() config.Config
	TokenStore() *store.Store
	Knock() *knock.Engine
	Auth() *auth.Service
	Logger() *slog.Logger
}

/*
SetupRouter wires every HTTP endpoint, using thin closure wrappers so
each handler receives the running application instance.
*/
func SetupRouter(a App) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	/* ---------- public endpoints ---------- */
	// GET serves the clickable link from the invitation mail; PUT is the
	// programmatic variant taking from/to in the body.
	r.GET("/knock/:token/validation",
		func(c *gin.Context) { handleValidateKnockGet(a, c) })
	r.PUT("/knock/:token/validation",
		func(c *gin.Context) { handleValidateKnockPut(a, c) })
	r.POST("/api/login", func(c *gin.Context) { handleLogin(a, c) })

	/* ---------- admin endpoints ---------- */
	admin := r.Group("/api")
	admin.Use(authMiddleware(a))
	{
		admin.POST("/tokens", func(c *gin.Context) { handleCreateToken(a, c) })
		admin.GET("/tokens/:token", func(c *gin.Context) { handleGetToken(a, c) })
	}

	return r
}
