package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tixgate/internal/service"
	apperrors "tixgate/pkg/app_errors"
	"tixgate/pkg/logger"
)

type ShowHandler struct {
	catalog service.CatalogService
}

func NewShowHandler(catalog service.CatalogService) *ShowHandler {
	return &ShowHandler{catalog: catalog}
}

func (h *ShowHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/v1/shows/:id", h.GetShow)
}

func (h *ShowHandler) GetShow(c *gin.Context) {
	idInt, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Show not found"})
		return
	}

	detail, err := h.catalog.GetShow(c, idInt)
	if err != nil {
		if errors.Is(err, apperrors.ErrShowNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Show not found"})
			return
		}
		logger.WithComponent("handler").Error("Unexpected error",
			zap.String("operation", "GetShow"), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, detail)
}
