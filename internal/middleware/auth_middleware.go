package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/teamquiz-api/pkg/auth"
)

// Ключи контекста Gin, которые выставляет RequireTeam
const (
	ContextTeamID   = "team_id"
	ContextTeamName = "team_name"
)

// AuthMiddleware обеспечивает аутентификацию команд для защищенных маршрутов
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware создает новый middleware аутентификации
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// RequireTeam проверяет токен команды из заголовка Authorization: Bearer {token}.
// allowQuery разрешает передать токен в ?token= (для /ws, где браузер не выставляет заголовки).
func (m *AuthMiddleware) RequireTeam(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		authHeader := c.GetHeader("Authorization")
		switch {
		case authHeader != "":
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}", "error_type": "token_format"})
				return
			}
			token = parts[1]
		case allowQuery && c.Query("token") != "":
			token = c.Query("token")
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required", "error_type": "token_missing"})
			return
		}

		claims, err := m.jwtService.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
			return
		}

		c.Set(ContextTeamID, claims.TeamID)
		c.Set(ContextTeamName, claims.TeamName)
		c.Next()
	}
}

// TeamIDFromContext возвращает ID команды, выставленный RequireTeam
func TeamIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextTeamID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
