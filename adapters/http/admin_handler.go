package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	adminUC "github.com/khoahotran/career-path/internal/application/usecase/admin"
	"github.com/khoahotran/career-path/pkg/apperror"
)

type AdminHandler struct {
	isAdmin *adminUC.IsAdminUseCase
}

func NewAdminHandler(isAdmin *adminUC.IsAdminUseCase) *AdminHandler {
	return &AdminHandler{isAdmin: isAdmin}
}

func (h *AdminHandler) Me(c *gin.Context) {
	s, ok := GetSessionFromGinContext(c)
	if !ok {
		c.Error(apperror.NewAuthRequired("session not found in context"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":  s.User.ID,
		"is_admin": h.isAdmin.Execute(c.Request.Context(), s.User.ID),
	})
}
