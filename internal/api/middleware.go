package api

import (
	"net/http"
	"strings"

	"github.com/annel0/skygrid/internal/catalog"
	"github.com/gin-gonic/gin"
)

// realmMiddleware разбирает параметр :realm (имя или ID измерения)
func (s *Server) realmMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		realm, err := catalog.ParseRealm(c.Param("realm"))
		if err != nil {
			respondError(c, http.StatusNotFound, err.Error())
			c.Abort()
			return
		}
		c.Set("realm", realm)
		c.Next()
	}
}

// adminMiddleware проверяет JWT токен администратора в заголовке Authorization.
// Без настроенного секрета изменяющие маршруты закрыты.
func (s *Server) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.signer == nil {
			respondError(c, http.StatusForbidden, "Изменение каталога отключено: не задан server.admin_secret")
			c.Abort()
			return
		}

		// Получаем Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			respondError(c, http.StatusUnauthorized, "Отсутствует токен авторизации")
			c.Abort()
			return
		}

		// Проверяем формат "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(c, http.StatusUnauthorized, "Неверный формат токена")
			c.Abort()
			return
		}

		claims, err := s.signer.Validate(parts[1])
		if err != nil {
			respondError(c, http.StatusUnauthorized, "Недействительный токен")
			c.Abort()
			return
		}

		c.Set("subject", claims.Subject)
		c.Next()
	}
}
