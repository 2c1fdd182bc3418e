package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"holanu-server/internal/observability"
	"holanu-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrExpiredToken    = errors.New("token has expired")
	ErrInvalidJWTToken = errors.New("invalid token")
	ErrParseJWTToken   = errors.New("failed to parse token")
)

const (
	ContextUserIDKey = "User-ID"
	ContextRoleKey   = "User-Role"
)

// Claims carries the identity asserted by the auth provider. The services
// behind this middleware trust these values completely; authorization is
// decided here, never inside the processors.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Middleware validates bearer tokens and exposes (user id, role) to handlers
type Middleware struct {
	jwtSecret string
	logger    *observability.Logger
}

func NewMiddleware(jwtSecret string, logger *observability.Logger) Middleware {
	return Middleware{
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

func (m *Middleware) validateToken(tokenString string) (Claims, error) {
	var claims Claims
	t, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrParseJWTToken
	}
	if !t.Valid {
		return Claims{}, ErrInvalidJWTToken
	}
	return claims, nil
}

// HandleJWTMiddleware authenticates the request and stores the caller's
// identity on the gin context
func (m *Middleware) HandleJWTMiddleware(c *gin.Context) {
	tokenHeader := c.GetHeader("Authorization")

	if tokenHeader == "" || !strings.HasPrefix(tokenHeader, "Bearer ") {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is missing or invalid"})
		c.Abort()
		return
	}

	tokenString := strings.TrimPrefix(tokenHeader, "Bearer ")

	claims, err := m.validateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		c.Abort()
		return
	}

	sub, err := claims.GetSubject()
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		c.Abort()
		return
	}

	role := claims.Role
	if role == "" {
		role = store.RoleUser
	}

	c.Set(ContextUserIDKey, sub)
	c.Set(ContextRoleKey, role)
	c.Next()
}

// RequireRole gates a route group to the given roles. Super admins pass every
// gate.
func (m *Middleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRoleKey)
		if role == store.RoleSuperAdmin {
			c.Next()
			return
		}
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		c.Abort()
	}
}

// CallerID extracts the authenticated caller's UUID from the gin context
func CallerID(c *gin.Context) (uuid.UUID, error) {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return uuid.Nil, errors.New("caller identity missing from context")
	}
	id, err := uuid.Parse(raw.(string))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse caller id: %w", err)
	}
	return id, nil
}
