package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/referra/internal/auth/token"
	userdomain "github.com/smallbiznis/referra/internal/user/domain"
)

const (
	contextUserIDKey = "user_id"
	contextRoleKey   = "user_role"
)

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, err := s.tokens.Validate(raw, token.TypeAccess)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextUserIDKey, userID)
		c.Set(contextRoleKey, claims.Role)
		c.Next()
	}
}

func (s *Server) RequireRole(roles ...userdomain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		current := currentRole(c)
		for _, role := range roles {
			if current == string(role) {
				c.Next()
				return
			}
		}
		AbortWithError(c, ErrForbidden)
	}
}

func currentUserID(c *gin.Context) snowflake.ID {
	raw, ok := c.Get(contextUserIDKey)
	if !ok {
		return 0
	}
	id, ok := raw.(int64)
	if !ok {
		return 0
	}
	return snowflake.ID(id)
}

func currentRole(c *gin.Context) string {
	raw, ok := c.Get(contextRoleKey)
	if !ok {
		return ""
	}
	role, ok := raw.(string)
	if !ok {
		return ""
	}
	return role
}

func isAdmin(c *gin.Context) bool {
	return currentRole(c) == string(userdomain.RoleAdmin)
}

// adminFromBearer reports whether the request carries a valid admin
// access token, without requiring one.
func (s *Server) adminFromBearer(c *gin.Context) bool {
	raw := bearerToken(c)
	if raw == "" {
		return false
	}
	claims, err := s.tokens.Validate(raw, token.TypeAccess)
	if err != nil {
		return false
	}
	return claims.Role == string(userdomain.RoleAdmin)
}
