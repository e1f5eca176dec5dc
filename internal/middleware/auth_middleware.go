package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"voltage-backend/internal/authorization"
)

const (
	ContextUserID = "user_id"
	ContextPhone  = "phone"
	ContextRole   = "role"
)

var (
	errMissingCredentials = errors.New("authorization credentials required")
	errMalformedHeader    = errors.New("invalid authorization header format")
	errInvalidToken       = errors.New("invalid or expired token")
	errInvalidClaims      = errors.New("invalid token claims")
)

type identity struct {
	userID uint
	phone  string
	role   authorization.UserRole
}

func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := authenticate(c.GetHeader("Authorization"), jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches the caller's identity when a valid token is
// presented and lets anonymous requests through untouched.
func OptionalAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := authenticate(c.GetHeader("Authorization"), jwtSecret); err == nil {
			setIdentity(c, id)
		}
		c.Next()
	}
}

func setIdentity(c *gin.Context, id identity) {
	c.Set(ContextUserID, id.userID)
	c.Set(ContextPhone, id.phone)
	c.Set(ContextRole, id.role)
}

func authenticate(header, jwtSecret string) (identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return identity{}, errMissingCredentials
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return identity{}, errMalformedHeader
	}

	token, err := jwt.Parse(strings.TrimSpace(parts[1]), func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return identity{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return identity{}, errInvalidClaims
	}
	if exp, ok := claims["exp"].(float64); ok && time.Now().Unix() > int64(exp) {
		return identity{}, errInvalidToken
	}

	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return identity{}, errInvalidClaims
	}
	role, ok := authorization.ParseUserRole(claims["role"])
	if !ok {
		return identity{}, errInvalidClaims
	}
	phone, _ := claims["phone"].(string)

	return identity{userID: uint(userID), phone: phone, role: role}, nil
}

// RequirePermission must run after AuthMiddleware.
func RequirePermission(permission authorization.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextRole)
		role, ok := value.(authorization.UserRole)
		if !exists || !ok || !authorization.RoleHasPermission(role, permission) {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			c.Abort()
			return
		}
		c.Next()
	}
}
