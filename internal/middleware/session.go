package middleware

import (
	"net/http"

	"github.com/examprep/examprep-backend/internal/response"
	"github.com/examprep/examprep-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// CheckSingleDeviceLogin validates the JWT's JTI against the active login in
// Redis. A mismatch means the login was ended elsewhere and the token is
// stale.
func CheckSingleDeviceLogin(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if err := authService.ValidateLogin(c.Request.Context(), claims.UserID, claims.ID); err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrLoginInvalidated)
			return
		}

		c.Next()
	}
}
