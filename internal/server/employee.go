package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	employeedomain "github.com/smallbiznis/detailflow/internal/employee/domain"
	reportdomain "github.com/smallbiznis/detailflow/internal/report/domain"
)

type createEmployeeRequest struct {
	Name                string          `json:"name" binding:"required"`
	Role                string          `json:"role"`
	Phone               string          `json:"phone" binding:"required,mobile"`
	Email               string          `json:"email" binding:"omitempty,email"`
	CommissionRate      decimal.Decimal `json:"commission_rate" binding:"percent"`
	RecruiterID         string          `json:"recruiter_id"`
	RecruiterCommission decimal.Decimal `json:"recruiter_commission" binding:"percent"`
}

func (s *Server) CreateEmployee(c *gin.Context) {
	var req createEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.employeeSvc.Create(c.Request.Context(), employeedomain.CreateEmployeeRequest{
		Name:                strings.TrimSpace(req.Name),
		Role:                strings.TrimSpace(req.Role),
		Phone:               req.Phone,
		Email:               strings.TrimSpace(req.Email),
		CommissionRate:      req.CommissionRate,
		RecruiterID:         strings.TrimSpace(req.RecruiterID),
		RecruiterCommission: req.RecruiterCommission,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListEmployees(c *gin.Context) {
	role := strings.ToUpper(strings.TrimSpace(c.Query("role")))
	resp, err := s.employeeSvc.List(c.Request.Context(), employeedomain.ListEmployeeFilter{
		Role: employeedomain.Role(role),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetEmployeeByID(c *gin.Context) {
	resp, err := s.employeeSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateRecruiterRequest struct {
	RecruiterID         string          `json:"recruiter_id"`
	RecruiterCommission decimal.Decimal `json:"recruiter_commission" binding:"percent"`
}

func (s *Server) UpdateEmployeeRecruiter(c *gin.Context) {
	var req updateRecruiterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.employeeSvc.UpdateRecruiter(c.Request.Context(), employeedomain.UpdateRecruiterRequest{
		ID:                  strings.TrimSpace(c.Param("id")),
		RecruiterID:         strings.TrimSpace(req.RecruiterID),
		RecruiterCommission: req.RecruiterCommission,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteEmployee(c *gin.Context) {
	if err := s.employeeSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetEmployeePerformance(c *gin.Context) {
	employee, err := s.employeeSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rng, err := parseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rows, err := s.reportSvc.StaffPerformance(c.Request.Context(), rng)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := reportdomain.StaffPerformance{
		EmployeeID:     employee.ID.String(),
		Name:           employee.Name,
		Role:           string(employee.Role),
		CommissionRate: employee.CommissionRate,
	}
	for _, row := range rows {
		if row.EmployeeID == resp.EmployeeID {
			resp = row
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
