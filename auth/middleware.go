package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Vinicius-jafe/bookish-broccoli/domain"
	"github.com/gin-gonic/gin"
)

const (
	claimsKey = "auth.claims"
	userKey   = "auth.user"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth aborts the request with 401 unless it carries a valid bearer token for an
// existing admin. The verified claims and user are stored in the gin context.
func (s *Service) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := s.Verify(BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauthorizedMessage(err)})
			return
		}

		// The account may have been removed after the token was issued.
		user, err := s.users.GetUserByID(claims.Subject)
		if errors.Is(err, domain.ErrUserNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Usuário não encontrado"})
			return
		}
		if err != nil {
			s.logger.Error("loading authenticated user", "sub", claims.Subject, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Erro interno"})
			return
		}

		c.Set(claimsKey, claims)
		c.Set(userKey, user)
		c.Next()
	}
}

// ClaimsFromContext returns the claims stored by RequireAuth.
func ClaimsFromContext(c *gin.Context) (*Claims, bool) {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*Claims)
	return claims, ok
}

// UserFromContext returns the admin loaded by RequireAuth.
func UserFromContext(c *gin.Context) (*domain.AdminUser, bool) {
	value, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := value.(*domain.AdminUser)
	return user, ok
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "Token de autorização não encontrado"
	case errors.Is(err, ErrTokenExpired):
		return "O token expirou"
	default:
		return "Token inválido"
	}
}
