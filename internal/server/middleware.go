package server

import (
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/detailflow/internal/audit/domain"
	"github.com/smallbiznis/detailflow/internal/auth"
	"github.com/smallbiznis/detailflow/internal/config"
	obscontext "github.com/smallbiznis/detailflow/internal/observability/context"
)

const contextActorKey = "actor"

// AuthRequired resolves the bearer token to an employee and stores it on both
// the gin context and the request context used by services and audit.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := auth.BearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor, err := s.verifier.Verify(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeEmployee), actor.EmployeeID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextActorKey, actor)
		c.Next()
	}
}

// RateLimit applies the per-employee token bucket. It runs after AuthRequired.
func (s *Server) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok || s.limiter == nil {
			c.Next()
			return
		}

		res := s.limiter.AllowEmployee(c.Request.Context(), actor.EmployeeID.String())
		if res.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		}
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func SetupCORS(cfg config.Config) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin", "Content-Type", "Content-Length", "Accept-Encoding",
		"Authorization", "Accept", "Cache-Control", "X-Requested-With",
		"X-Request-Id", "X-Correlation-Id",
	}
	corsConfig.ExposeHeaders = []string{"X-Correlation-Id", "Content-Disposition"}
	corsConfig.MaxAge = 12 * 60 * 60
	return cors.New(corsConfig)
}
