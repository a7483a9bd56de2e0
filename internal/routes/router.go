package routes

import (
	"taskflow/internal/controller"
	"taskflow/internal/middleware"
	"taskflow/internal/mockapi"

	"github.com/gin-gonic/gin"
)

func base(m *middleware.Metrics) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(), m.Middleware())

	// Health for load balancers and K8s probes
	router.GET("/health", controller.Health)
	router.GET("/metrics", gin.WrapH(m.Handler()))
	return router
}

// Mock serves the canned API. No authentication.
func Mock(h *mockapi.Handlers, m *middleware.Metrics) *gin.Engine {
	router := base(m)
	router.GET("/ready", controller.Health)
	h.Register(router)
	return router
}

// Live serves the database-backed API behind JWT auth.
func Live(h *controller.Handlers, jwtSecret string, m *middleware.Metrics) *gin.Engine {
	router := base(m)
	router.GET("/ready", h.Ready)

	// Protected: JWT required
	api := router.Group("")
	api.Use(middleware.Auth(jwtSecret))
	h.Register(api)
	return router
}
