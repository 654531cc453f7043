package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	messagelogdomain "github.com/smallbiznis/mensalidade/internal/messagelog/domain"
)

func (s *Server) GetCollectionQueue(c *gin.Context) {
	resp, err := s.collectionSvc.Queue(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DispatchReminders(c *gin.Context) {
	resp, err := s.collectionSvc.Dispatch(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMessageLogs(c *gin.Context) {
	var query struct {
		ClientID  string `form:"client_id"`
		PageToken string `form:"page_token"`
		PageSize  int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.messageLogSvc.List(c.Request.Context(), messagelogdomain.ListRequest{
		ClientID:  strings.TrimSpace(query.ClientID),
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
