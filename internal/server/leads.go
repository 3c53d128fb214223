package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	leaddomain "github.com/smallbiznis/leadbilling/internal/lead/domain"
)

type rejectCancellationRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) RejectCancellation(c *gin.Context) {
	var req rejectCancellationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	lead, err := s.leadSvc.RejectCancellation(c.Request.Context(), leaddomain.RejectCancellationRequest{
		LeadID:    c.Param("id"),
		PartnerID: c.Param("partnerId"),
		Reason:    req.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": lead})
}
