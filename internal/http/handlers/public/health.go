package public

import (
	"net/http"

	"github.com/modaplex/internal/cache"
	"github.com/modaplex/internal/models"

	"github.com/gin-gonic/gin"
)

// Health 健康检查，数据库不可用时返回 503
func (h *Handler) Health(c *gin.Context) {
	status := gin.H{"status": "ok", "database": "ok", "redis": "disabled", "queue": "disabled"}
	code := http.StatusOK

	if models.DB == nil {
		status["database"] = "unavailable"
	} else if sqlDB, err := models.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status["database"] = "unavailable"
	}
	if status["database"] != "ok" {
		status["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}

	if client := cache.Client(); client != nil {
		status["redis"] = "ok"
		if err := client.Ping(c.Request.Context()).Err(); err != nil {
			status["redis"] = "unavailable"
		}
	}
	if h.QueueClient.Enabled() {
		status["queue"] = "ok"
	}
	c.JSON(code, status)
}
