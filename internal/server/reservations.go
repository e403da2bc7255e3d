package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	buyerdomain "github.com/smallbiznis/sorteos/internal/buyer/domain"
	reservationdomain "github.com/smallbiznis/sorteos/internal/reservation/domain"
	reservationservice "github.com/smallbiznis/sorteos/internal/reservation/service"
)

func (s *Server) CreateReservation(c *gin.Context) {
	var req reservationdomain.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.RaffleID = strings.TrimSpace(req.RaffleID)
	c.Set(contextRaffleKey, req.RaffleID)

	resp, err := s.reservationSvc.Reserve(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	resp.Tickets = publicTickets(resp.Tickets)

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{
		"reservation":    resp,
		"window_seconds": int64(s.reservationSvc.Window().Seconds()),
	}})
}

type releaseReservationRequest struct {
	TicketIDs []string `json:"ticket_ids"`
	Phone     string   `json:"phone"`
}

// ReleaseReservation is fired by the storefront when the countdown ends or
// the buyer abandons checkout. Only holds of the given phone are released.
func (s *Server) ReleaseReservation(c *gin.Context) {
	var req releaseReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if buyerdomain.DigitsOnly(req.Phone) == "" {
		AbortWithError(c, newValidationError("phone", "required", "phone is required"))
		return
	}

	resp, err := s.reservationSvc.Release(c.Request.Context(), reservationdomain.ReleaseRequest{
		TicketIDs: req.TicketIDs,
		Holder:    reservationdomain.Holder{Phone: req.Phone},
		Source:    reservationservice.SourceRelease,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"released": len(resp.Released),
	}})
}

func (s *Server) GetReservationStatus(c *gin.Context) {
	ids := queryList(c, "ticket_ids")
	resp, err := s.reservationSvc.Status(c.Request.Context(), ids)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
