package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"spendview/internal/domain"
	"spendview/internal/service"
)

const (
	sessionCookieName = "session_id"
	sessionContextKey = "session"
)

// SessionMiddleware resuelve la cookie session_id. Con issue=true crea una sesion nueva cuando la
// cookie falta o no es valida; con issue=false solo lee.
func SessionMiddleware(sessions *service.SessionService, issue bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessions == nil {
			c.JSON(http.StatusInternalServerError, queResponse{Success: false, Error: "Sessions not configured"})
			c.Abort()
			return
		}

		if token, err := c.Cookie(sessionCookieName); err == nil && token != "" {
			if session, err := sessions.Resolve(token); err == nil {
				c.Set(sessionContextKey, session)
				c.Next()
				return
			}
		}

		if !issue {
			c.Next()
			return
		}

		session, err := sessions.Issue()
		if err != nil {
			c.JSON(http.StatusInternalServerError, queResponse{Success: false, Error: "Could not start session"})
			c.Abort()
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookieName, session.Token, int(sessions.TTL().Seconds()), "/", "", isSecureRequest(c), true)
		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// GetSession obtiene la sesion resuelta por SessionMiddleware.
func GetSession(c *gin.Context) (domain.Session, bool) {
	val, ok := c.Get(sessionContextKey)
	if !ok {
		return domain.Session{}, false
	}
	session, ok := val.(domain.Session)
	return session, ok
}

func isSecureRequest(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
}
