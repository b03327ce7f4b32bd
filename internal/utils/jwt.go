package utils

import (
	"fmt"
	"hospital-portal-server/internal/models"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "session"

// DefaultSessionTTL is the lifetime of a session token and its cookie.
const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionPayload is who the request is made by.
type SessionPayload struct {
	UserID         string      `json:"userId"`
	Name           string      `json:"name"`
	Role           models.Role `json:"role"`
	RoleSpecificID string      `json:"roleSpecificId"`
	Email          string      `json:"email"`
}

// SessionClaims represents the JWT claims.
type SessionClaims struct {
	SessionPayload
	jwt.RegisteredClaims
}

// IssueSession signs payload with HS256 and an expiry of now+ttl.
func IssueSession(payload SessionPayload, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		SessionPayload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   payload.UserID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return tokenString, nil
}

// VerifySession returns the claims of a valid token, or nil when the token is
// malformed, signed with another key or algorithm, expired, or names an
// unknown role. It never returns an error: callers treat nil as anonymous.
func VerifySession(tokenString string, secret string) *SessionClaims {
	if tokenString == "" || secret == "" {
		return nil
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil
	}

	if !claims.Role.Valid() || claims.UserID == "" {
		return nil
	}
	return claims
}

// SetSessionCookie stores the token as an HTTP-only, site-wide cookie.
func SetSessionCookie(c *gin.Context, token string, ttl time.Duration, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		SessionCookieName,  // Name
		token,              // Value
		int(ttl.Seconds()), // Max age in seconds
		"/",                // Path
		"",                 // Domain (empty means current domain)
		secure,             // Secure (true in production)
		true,               // HTTP only
	)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", secure, true)
}
