package http

import (
	"net/http"
	"strings"

	"github.com/dkeye/Meet/internal/adapters/signal"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/identity"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const sessionTokenKey = "token"

// IdentityMiddleware verifies a token from the Authorization header, the
// token query parameter (browsers cannot set headers on a WebSocket) or the
// cookie session, in that order. It never rejects; see RequireIdentity.
func IdentityMiddleware(issuer *identity.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := tokenFrom(c); token != "" {
			id, err := issuer.Verify(token)
			if err != nil {
				log.Debug().Err(err).Str("module", "adapters.http").Msg("ignoring invalid token")
			} else {
				c.Set(signal.ContextIdentityKey, id)
			}
		}
		c.Next()
	}
}

func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if q := c.Query("token"); q != "" {
		return q
	}
	if v, ok := sessions.Default(c).Get(sessionTokenKey).(string); ok {
		return v
	}
	return ""
}

func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentIdentity(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func currentIdentity(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(signal.ContextIdentityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}

type loginRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" || req.Role == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and role are required"})
		return
	}

	id, err := domain.NewIdentity(req.Name, domain.ParseRole(req.Role))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := h.issuer.Issue(id)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	sess := sessions.Default(c)
	sess.Set(sessionTokenKey, token)
	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
	}

	log.Info().Str("module", "adapters.http").Str("identity", string(id.ID)).Str("role", string(id.Role)).Msg("login")
	c.JSON(http.StatusOK, gin.H{"token": token, "user": id})
}
