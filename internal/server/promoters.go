package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	promoterdomain "github.com/smallbiznis/sorteos/internal/promoter/domain"
)

const defaultQRSize = 256

// GetActivePromoter resolves a ?promo= code from the storefront. The
// optional tickets query previews the buyer's bonus.
func (s *Server) GetActivePromoter(c *gin.Context) {
	code := promoterdomain.NormalizeCode(c.Param("code"))

	promoter, err := s.promoterSvc.GetActiveByCode(c.Request.Context(), code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	tickets, err := parseOptionalInt(c.Query("tickets"))
	if err != nil || (tickets != nil && *tickets < 0) {
		AbortWithError(c, newValidationError("tickets", "invalid_tickets", "invalid tickets"))
		return
	}
	count := 0
	if tickets != nil {
		count = *tickets
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"code":    promoter.Code,
		"name":    promoter.Name,
		"preview": s.promoterSvc.Preview(promoter.Code, count),
	}})
}

func (s *Server) ListPromoters(c *gin.Context) {
	resp, err := s.promoterSvc.ListStats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreatePromoter(c *gin.Context) {
	var req promoterdomain.CreatePromoterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.promoterSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "promoter.create", "promoter", resp.ID.String(), map[string]any{"code": resp.Code})

	c.JSON(http.StatusCreated, gin.H{"data": s.promoterView(resp)})
}

func (s *Server) GetPromoterByID(c *gin.Context) {
	resp, err := s.promoterSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.promoterView(resp)})
}

func (s *Server) UpdatePromoter(c *gin.Context) {
	var req promoterdomain.UpdatePromoterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.promoterSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "promoter.update", "promoter", req.ID, map[string]any{"code": resp.Code})

	c.JSON(http.StatusOK, gin.H{"data": s.promoterView(resp)})
}

func (s *Server) TogglePromoter(c *gin.Context) {
	resp, err := s.promoterSvc.ToggleActive(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "promoter.toggle", "promoter", resp.ID.String(), map[string]any{"active": resp.Active})

	c.JSON(http.StatusOK, gin.H{"data": s.promoterView(resp)})
}

func (s *Server) DeletePromoter(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.promoterSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "promoter.delete", "promoter", id, nil)

	c.Status(http.StatusNoContent)
}

func (s *Server) GetPromoterQRCode(c *gin.Context) {
	size, err := parseOptionalInt(c.Query("size"))
	if err != nil {
		AbortWithError(c, newValidationError("size", "invalid_size", "invalid size"))
		return
	}
	px := defaultQRSize
	if size != nil {
		px = *size
	}

	png, err := s.promoterSvc.QRCode(c.Request.Context(), strings.TrimSpace(c.Param("id")), px)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

type promoterView struct {
	promoterdomain.Promoter
	Link string `json:"link"`
}

func (s *Server) promoterView(p promoterdomain.Promoter) promoterView {
	return promoterView{Promoter: p, Link: s.promoterSvc.Link(p.Code)}
}
