package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// POST /api/v1/action/reload
func (s *Service) handleActionReload(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database service unavailable"})
		return
	}
	if err := s.db.Reload(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
