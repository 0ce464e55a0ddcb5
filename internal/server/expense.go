package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	expensedomain "github.com/smallbiznis/detailflow/internal/expense/domain"
)

type createExpenseRequest struct {
	Title    string `json:"title" binding:"required"`
	Amount   int64  `json:"amount" binding:"gt=0"`
	Category string `json:"category"`
	SpentOn  string `json:"spent_on" binding:"omitempty,ymd"`
	Notes    string `json:"notes"`
}

func (s *Server) CreateExpense(c *gin.Context) {
	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.expenseSvc.Create(c.Request.Context(), expensedomain.CreateExpenseRequest{
		Title:    strings.TrimSpace(req.Title),
		Amount:   req.Amount,
		Category: strings.TrimSpace(req.Category),
		SpentOn:  strings.TrimSpace(req.SpentOn),
		Notes:    strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListExpenses(c *gin.Context) {
	var query struct {
		Category string `form:"category"`
		From     string `form:"from" binding:"omitempty,ymd"`
		To       string `form:"to" binding:"omitempty,ymd"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.expenseSvc.List(c.Request.Context(), expensedomain.ListExpenseRequest{
		Category: strings.TrimSpace(query.Category),
		From:     strings.TrimSpace(query.From),
		To:       strings.TrimSpace(query.To),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteExpense(c *gin.Context) {
	if err := s.expenseSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
