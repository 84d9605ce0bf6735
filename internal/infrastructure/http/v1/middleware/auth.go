package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"stokado/internal/core/actor"
	"stokado/internal/core/apperror"
)

// TokenValidator validates an access token and returns the actor it encodes.
type TokenValidator interface {
	ValidateToken(tokenString string) (actor.Actor, error)
}

// Auth middleware validates JWT tokens and puts the actor on the request
// context. Domain services read the actor from there.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		a, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		ctx := actor.WithActor(c.Request.Context(), a)
		c.Request = c.Request.WithContext(ctx)

		c.Set("actor_id", a.ID)
		c.Set("actor_role", string(a.Role))

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
