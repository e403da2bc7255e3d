package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/sorteos/internal/checkout/domain"
)

const contactMessage = "¡Hola! Tengo una pregunta sobre los sorteos."

func (s *Server) InitiateCheckout(c *gin.Context) {
	var req checkoutdomain.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	c.Set(contextRaffleKey, strings.TrimSpace(req.RaffleID))

	resp, err := s.checkoutSvc.Initiate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DownloadReceipt(c *gin.Context) {
	method := checkoutdomain.Method(strings.TrimSpace(c.Query("method")))
	if method == "" {
		method = checkoutdomain.MethodManual
	}

	file, err := s.checkoutSvc.Receipt(c.Request.Context(), checkoutdomain.ReceiptRequest{
		TicketIDs: queryList(c, "ticket_ids"),
		Method:    method,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file.Body); err != nil {
		_ = c.Error(err)
	}
}

func (s *Server) GetContact(c *gin.Context) {
	number := strings.TrimSpace(s.cfg.Raffle.WhatsAppNumber)
	if number == "" {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"whatsapp_number": number,
		"whatsapp_url":    checkoutdomain.WhatsAppLink(number, contactMessage),
	}})
}
