package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/sorteos/internal/auth/domain"
)

type ActorType string

const (
	ActorUser ActorType = "user"
)

type Actor struct {
	Type ActorType
	ID   string
	Role authdomain.Role
}

func (s *Server) authorizeAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeActionWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeActionWithContext(c *gin.Context, object string, action string) error {
	actor, ok := s.actorFromContext(c)
	if !ok {
		return ErrUnauthorized
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(c.Request.Context(), actor.subject(), string(actor.Role), strings.TrimSpace(object), strings.TrimSpace(action))
}

func (s *Server) actorFromContext(c *gin.Context) (Actor, bool) {
	if c == nil {
		return Actor{}, false
	}
	session, ok := sessionFromContext(c)
	if !ok {
		return Actor{}, false
	}
	return Actor{Type: ActorUser, ID: session.UserID.String(), Role: session.Role}, true
}

func (a Actor) subject() string {
	switch a.Type {
	case ActorUser:
		return "user:" + a.ID
	default:
		return ""
	}
}
