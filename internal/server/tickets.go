package server

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/sorteos/internal/export"
	"github.com/smallbiznis/sorteos/internal/observability/logger"
	reservationdomain "github.com/smallbiznis/sorteos/internal/reservation/domain"
	reservationservice "github.com/smallbiznis/sorteos/internal/reservation/service"
	ticketdomain "github.com/smallbiznis/sorteos/internal/ticket/domain"
	"go.uber.org/zap"
)

type ticketIDsRequest struct {
	TicketIDs []string `json:"ticket_ids"`
}

func (s *Server) ListRaffleTickets(c *gin.Context) {
	raffleID := strings.TrimSpace(c.Param("id"))
	c.Set(contextRaffleKey, raffleID)

	resp, err := s.ticketSvc.ListByRaffle(c.Request.Context(), ticketdomain.ListTicketsRequest{
		RaffleID: raffleID,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": publicTickets(resp)})
}

func (s *Server) RandomPickTickets(c *gin.Context) {
	var req ticketdomain.RandomPickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.RaffleID = strings.TrimSpace(c.Param("id"))
	c.Set(contextRaffleKey, req.RaffleID)

	resp, err := s.ticketSvc.RandomPick(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	resp.Tickets = publicTickets(resp.Tickets)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) VerifyTicket(c *gin.Context) {
	number, err := parseOptionalInt(c.Query("number"))
	if err != nil || number == nil {
		AbortWithError(c, newValidationError("number", "invalid_ticket_number", "invalid ticket number"))
		return
	}

	resp, err := s.ticketSvc.Verify(c.Request.Context(), ticketdomain.VerifyRequest{
		Number:   *number,
		RaffleID: strings.TrimSpace(c.Query("raffle_id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAdminTickets(c *gin.Context) {
	raffleID := strings.TrimSpace(c.Param("id"))
	c.Set(contextRaffleKey, raffleID)

	resp, err := s.ticketSvc.ListAdmin(c.Request.Context(), ticketdomain.ListTicketsRequest{
		RaffleID: raffleID,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportTickets(c *gin.Context) {
	raffleID := strings.TrimSpace(c.Param("id"))
	c.Set(contextRaffleKey, raffleID)

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		AbortWithError(c, newValidationError("format", "invalid_format", "format must be csv or xlsx"))
		return
	}

	tickets, err := s.ticketSvc.ListAdmin(c.Request.Context(), ticketdomain.ListTicketsRequest{
		RaffleID: raffleID,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, tickets); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+format.FileName(raffleID)+`"`)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// BulkPurchaseTickets confirms manual payments. Only reserved tickets move;
// the rest come back as skipped or already purchased.
func (s *Server) BulkPurchaseTickets(c *gin.Context) {
	var req ticketIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reservationSvc.Purchase(c.Request.Context(), reservationdomain.PurchaseRequest{
		TicketIDs:    req.TicketIDs,
		Source:       reservationservice.SourceAdmin,
		ConfirmSales: true,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "ticket.purchase", "ticket", "", map[string]any{
		"requested": len(req.TicketIDs),
		"purchased": len(resp.Purchased),
		"skipped":   len(resp.Skipped),
	})
	for _, warning := range resp.Warnings {
		logger.FromContext(c.Request.Context()).Warn("promoter sale not confirmed",
			zap.String("ticket_id", warning.TicketID.String()),
			zap.String("code", warning.Code),
		)
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// BulkReleaseTickets returns any sold or held ticket to the pool.
func (s *Server) BulkReleaseTickets(c *gin.Context) {
	var req ticketIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reservationSvc.ForceRelease(c.Request.Context(), req.TicketIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "ticket.release", "ticket", "", map[string]any{
		"requested": len(req.TicketIDs),
		"released":  len(resp.Released),
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// publicTickets hides buyer linkage on storefront responses.
func publicTickets(tickets []ticketdomain.Ticket) []ticketdomain.Ticket {
	out := make([]ticketdomain.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		ticket.UserID = nil
		ticket.PromoterCode = nil
		out = append(out, ticket)
	}
	return out
}
