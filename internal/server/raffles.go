package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	raffledomain "github.com/smallbiznis/sorteos/internal/raffle/domain"
)

func (s *Server) ListActiveRaffles(c *gin.Context) {
	resp, err := s.raffleSvc.ListActive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetRaffleBySlug serves the storefront, which links raffles by slug.
func (s *Server) GetRaffleBySlug(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("id"))
	resp, err := s.raffleSvc.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp.Status == raffledomain.RaffleStatusDraft {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRaffles(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.raffleSvc.List(c.Request.Context(), raffledomain.ListRafflesRequest{
		Status: strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateRaffle(c *gin.Context) {
	var req raffledomain.CreateRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.raffleSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "raffle.create", "raffle", resp.ID.String(), map[string]any{
		"slug":          resp.Slug,
		"total_tickets": resp.TotalTickets,
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetRaffleByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set(contextRaffleKey, id)

	resp, err := s.raffleSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateRaffle(c *gin.Context) {
	var req raffledomain.UpdateRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))
	c.Set(contextRaffleKey, req.ID)

	resp, err := s.raffleSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "raffle.update", "raffle", req.ID, nil)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetRaffleStatus(c *gin.Context) {
	var req raffledomain.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))
	c.Set(contextRaffleKey, req.ID)

	resp, err := s.raffleSvc.SetStatus(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "raffle.status", "raffle", req.ID, map[string]any{"status": req.Status})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteRaffle(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set(contextRaffleKey, id)

	if err := s.raffleSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, "raffle.delete", "raffle", id, nil)

	c.Status(http.StatusNoContent)
}

func (s *Server) GetRaffleStats(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set(contextRaffleKey, id)

	resp, err := s.raffleSvc.Stats(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
