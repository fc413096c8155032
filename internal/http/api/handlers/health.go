package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler answers liveness probes with a database ping.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(conn *gorm.DB) *HealthHandler {
	return &HealthHandler{db: conn}
}

// Check pings the database and reports service health.
func (h *HealthHandler) Check(c *gin.Context) {
	sqlDB, errDB := h.db.DB()
	if errDB != nil {
		respondError(c, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	if errPing := sqlDB.PingContext(c.Request.Context()); errPing != nil {
		respondError(c, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "ok"})
}
