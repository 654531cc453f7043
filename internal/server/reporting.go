package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdashboarddomain "github.com/smallbiznis/mensalidade/internal/billingdashboard/domain"
)

func (s *Server) GetDashboardMetrics(c *gin.Context) {
	var query struct {
		Start string `form:"start"`
		End   string `form:"end"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.dashboardSvc.GetMetrics(c.Request.Context(), billingdashboarddomain.GetMetricsRequest{
		Start: strings.TrimSpace(query.Start),
		End:   strings.TrimSpace(query.End),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAging(c *gin.Context) {
	resp, err := s.agingSvc.Classify(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
