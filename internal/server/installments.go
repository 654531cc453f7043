package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	installmentdomain "github.com/smallbiznis/mensalidade/internal/installment/domain"
)

type createInstallmentRequest struct {
	ClientID       string         `json:"client_id"`
	Amount         string         `json:"amount"`
	DueDate        string         `json:"due_date"`
	IsRecurring    bool           `json:"is_recurring"`
	SequenceNumber int            `json:"sequence_number"`
	Metadata       map[string]any `json:"metadata"`
}

func (s *Server) CreateInstallment(c *gin.Context) {
	var req createInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.installmentSvc.Create(c.Request.Context(), installmentdomain.CreateInstallmentRequest{
		ClientID:       strings.TrimSpace(req.ClientID),
		Amount:         strings.TrimSpace(req.Amount),
		DueDate:        strings.TrimSpace(req.DueDate),
		IsRecurring:    req.IsRecurring,
		SequenceNumber: req.SequenceNumber,
		Metadata:       req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetInstallmentByID(c *gin.Context) {
	resp, err := s.installmentSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type setInstallmentStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) SetInstallmentStatus(c *gin.Context) {
	var req setInstallmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.installmentSvc.SetStatus(c.Request.Context(), installmentdomain.SetStatusRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Status: strings.TrimSpace(req.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type recordPaymentRequest struct {
	PaidAt string `json:"paid_at"`
}

// RecordInstallmentPayment is called by the payment gateway once a charge settles.
func (s *Server) RecordInstallmentPayment(c *gin.Context) {
	var req recordPaymentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	paidAt, err := parseOptionalTime(req.PaidAt)
	if err != nil {
		AbortWithError(c, newValidationError("paid_at", "invalid_paid_at", "invalid paid_at"))
		return
	}

	resp, err := s.installmentSvc.MarkPaid(c.Request.Context(), strings.TrimSpace(c.Param("id")), paidAt)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelInstallmentSend(c *gin.Context) {
	if err := s.collectionSvc.CancelSend(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) MarkInstallmentSent(c *gin.Context) {
	resp, err := s.collectionSvc.MarkSent(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
