package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	clientdomain "github.com/smallbiznis/mensalidade/internal/client/domain"
	subscriptiondomain "github.com/smallbiznis/mensalidade/internal/subscription/domain"
)

type createClientRequest struct {
	Name        string         `json:"name"`
	Phone       string         `json:"phone"`
	TaxDocument string         `json:"tax_document"`
	BirthDate   string         `json:"birth_date"`
	Metadata    map[string]any `json:"metadata"`
}

func (s *Server) CreateClient(c *gin.Context) {
	var req createClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.clientSvc.Create(c.Request.Context(), clientdomain.CreateClientRequest{
		Name:        strings.TrimSpace(req.Name),
		Phone:       strings.TrimSpace(req.Phone),
		TaxDocument: strings.TrimSpace(req.TaxDocument),
		BirthDate:   strings.TrimSpace(req.BirthDate),
		Metadata:    req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListClients(c *gin.Context) {
	var query struct {
		Name               string `form:"name"`
		SubscriptionActive string `form:"subscription_active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.SubscriptionActive)
	if err != nil {
		AbortWithError(c, newValidationError("subscription_active", "invalid_subscription_active", "invalid subscription_active"))
		return
	}

	resp, err := s.clientSvc.List(c.Request.Context(), clientdomain.ListClientRequest{
		Name:               strings.TrimSpace(query.Name),
		SubscriptionActive: active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetClientByID(c *gin.Context) {
	resp, err := s.clientSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteClient(c *gin.Context) {
	if err := s.clientSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type activateSubscriptionRequest struct {
	PlanID    string `json:"plan_id"`
	StartDate string `json:"start_date"`
}

func (s *Server) ActivateSubscription(c *gin.Context) {
	var req activateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Activate(c.Request.Context(), subscriptiondomain.ActivateRequest{
		ClientID:  strings.TrimSpace(c.Param("id")),
		PlanID:    strings.TrimSpace(req.PlanID),
		StartDate: strings.TrimSpace(req.StartDate),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) CancelSubscription(c *gin.Context) {
	resp, err := s.subscriptionSvc.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListClientInstallments(c *gin.Context) {
	resp, err := s.installmentSvc.ListByClient(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
