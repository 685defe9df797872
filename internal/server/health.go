package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	app "github.com/kode4food/walkthrough"
	"github.com/kode4food/walkthrough/pkg/api"
)

const HealthHealthy = "healthy"

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service: app.Name,
		Version: app.Version,
		Status:  HealthHealthy,
	})
}
