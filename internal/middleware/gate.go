package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// LoginPath is where unauthenticated visitors of protected pages are sent.
const LoginPath = "/login"

var publicRoutes = []string{"/login", "/register"}

// protectedRoutes maps each portal namespace to the roles allowed in it.
var protectedRoutes = map[string][]models.Role{
	"/doctor":  {models.RoleDoctor},
	"/nurse":   {models.RoleNurse},
	"/patient": {models.RolePatient},
}

// GateDecision is the outcome of RouteGate. RedirectTo is empty when the
// request may proceed.
type GateDecision struct {
	RedirectTo string
}

// Allowed reports whether the request passes the gate.
func (d GateDecision) Allowed() bool {
	return d.RedirectTo == ""
}

// RouteGate decides whether a request for path may proceed given the
// verified session (nil when anonymous).
func RouteGate(path string, session *utils.SessionClaims) GateDecision {
	if session != nil && !session.Role.Valid() {
		session = nil
	}

	for _, route := range publicRoutes {
		if path == route {
			if session != nil {
				return GateDecision{RedirectTo: session.Role.Home()}
			}
			return GateDecision{}
		}
	}

	allowedRoles, protected := namespaceRoles(path)
	if !protected {
		return GateDecision{}
	}

	if session == nil {
		return GateDecision{RedirectTo: LoginPath + "?redirect=" + url.QueryEscape(path)}
	}

	for _, role := range allowedRoles {
		if session.Role == role {
			return GateDecision{}
		}
	}
	return GateDecision{RedirectTo: session.Role.Home()}
}

// namespaceRoles matches whole path segments, so "/doctors" is not "/doctor".
func namespaceRoles(path string) ([]models.Role, bool) {
	for prefix, roles := range protectedRoutes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return roles, true
		}
	}
	return nil, false
}

// RouteGateMiddleware applies RouteGate to every request. It must run after
// SessionMiddleware.
func RouteGateMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, _ := CurrentSession(c)
		decision := RouteGate(c.Request.URL.Path, session)
		if !decision.Allowed() {
			c.Redirect(http.StatusFound, decision.RedirectTo)
			c.Abort()
			return
		}
		c.Next()
	}
}
