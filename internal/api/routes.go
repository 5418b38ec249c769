package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes mounts the moodboard API and the Prometheus endpoint. Health
// routes are mounted separately by the server package.
func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		moodboard := v1.Group("/moodboard")
		{
			moodboard.POST("", handler.SubmitMoodboard)         // POST /api/v1/moodboard
			moodboard.GET("/:job_id", handler.GetResult)        // GET  /api/v1/moodboard/:job_id
			moodboard.GET("/:job_id/status", handler.GetStatus) // GET  /api/v1/moodboard/:job_id/status
		}

		v1.GET("/aesthetics", handler.ListAesthetics) // GET /api/v1/aesthetics
	}
}
