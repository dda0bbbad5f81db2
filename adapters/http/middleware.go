package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/auth"
	"github.com/khoahotran/career-path/pkg/logger"
)

const (
	GinContextKeySession = "session"
)

// SessionMiddleware turns the bearer token of the identity provider into a
// profile.Session on the gin context.
func SessionMiddleware(jwtSvc *auth.JWTService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			return
		}

		claims, err := jwtSvc.ValidateToken(tokenString)
		if err != nil {
			log.Debug("Rejected session token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token subject"})
			return
		}

		s := &profile.Session{
			User: profile.SessionUser{
				ID:       userID,
				Email:    claims.Email,
				FullName: claims.UserMetadata.FullName,
			},
		}
		if claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time.UTC()
		}
		c.Set(GinContextKeySession, s)

		c.Next()
	}
}

func GetSessionFromGinContext(c *gin.Context) (*profile.Session, bool) {
	v, ok := c.Get(GinContextKeySession)
	if !ok {
		return nil, false
	}
	s, ok := v.(*profile.Session)
	return s, ok && s != nil
}

// ErrorMiddleware renders the last error a handler attached with c.Error.
func ErrorMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		status := apperror.ToHTTPStatus(err)
		if status >= http.StatusInternalServerError {
			log.Error("Request failed", err, zap.String("path", c.FullPath()), zap.Int("status", status))
		}

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			c.JSON(status, appErr.ToJSON())
			return
		}
		c.JSON(status, gin.H{"error": apperror.ErrInternal.Error(), "message": "An internal server error occurred"})
	}
}
