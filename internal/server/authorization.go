package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/detailflow/internal/auth"
)

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor.EmployeeID.String(), actor.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func actorFromContext(c *gin.Context) (auth.Actor, bool) {
	if c == nil {
		return auth.Actor{}, false
	}
	value, ok := c.Get(contextActorKey)
	if !ok {
		return auth.Actor{}, false
	}
	actor, ok := value.(auth.Actor)
	if !ok || actor.EmployeeID == 0 {
		return auth.Actor{}, false
	}
	return actor, true
}
