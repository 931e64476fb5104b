// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file binds the authentication gate to REST routes. RequireIdentity
// runs the same checks as the websocket handshake and stores the admitted
// user id in the Gin context under "userID", where handlers, the rate limiter
// and the idempotency validator read it back via UserID. AdoptTokenName
// hands the token's name claim to the user store.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cbanluta2700/agrismart--sub002/internal/auth"
)

const (
	ctxKeyUserID   = "userID"
	ctxKeyUserName = "userName"
)

// Authenticator is the slice of the auth gate the middleware needs.
type Authenticator interface {
	Authenticate(r *http.Request) (auth.Identity, error)
}

// RequireIdentity rejects requests the gate does not admit with 401 and the
// standard error envelope.
func RequireIdentity(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := a.Authenticate(c.Request)
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer realm="chat"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "authentication required",
			})
			return
		}
		SetUserID(c, id.UserID)
		if id.Name != "" {
			c.Set(ctxKeyUserName, id.Name)
		}
		c.Next()
	}
}

// SetUserID records an identity admitted outside RequireIdentity, such as
// the websocket handshake, so logs and limiters can see it.
func SetUserID(c *gin.Context, userID string) {
	c.Set(ctxKeyUserID, userID)
}

// UserID returns the identity admitted by RequireIdentity, or "" when the
// route is not behind it.
func UserID(c *gin.Context) string {
	v, _ := c.Get(ctxKeyUserID)
	return asString(v)
}

// UserName returns the display name carried by a verified token, if any.
func UserName(c *gin.Context) string {
	v, _ := c.Get(ctxKeyUserName)
	return asString(v)
}

// NameAdopter records a display name learned from a verified token.
type NameAdopter interface {
	AdoptName(ctx context.Context, userID, name string) error
}

// AdoptTokenName passes the name claim admitted by RequireIdentity to n.
// Failures are logged and never fail the request.
func AdoptTokenName(n NameAdopter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if name := UserName(c); name != "" {
			if err := n.AdoptName(c.Request.Context(), UserID(c), name); err != nil {
				LoggerFrom(c).Warn().Err(err).Str("user_id", UserID(c)).Msg("display name not recorded")
			}
		}
		c.Next()
	}
}
