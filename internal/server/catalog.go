package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/detailflow/internal/catalog/domain"
)

type createServiceItemRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name" binding:"required"`
	Price       int64   `json:"price" binding:"gte=0"`
	Description *string `json:"description"`
}

func (s *Server) CreateServiceItem(c *gin.Context) {
	var req createServiceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.catalogSvc.Create(c.Request.Context(), catalogdomain.CreateRequest{
		Code:        strings.TrimSpace(req.Code),
		Name:        strings.TrimSpace(req.Name),
		Price:       req.Price,
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListServiceItems(c *gin.Context) {
	resp, err := s.catalogSvc.List(c.Request.Context(), catalogdomain.ListRequest{
		Name: strings.TrimSpace(c.Query("name")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteServiceItem(c *gin.Context) {
	if err := s.catalogSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
