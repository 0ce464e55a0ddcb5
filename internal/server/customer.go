package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/detailflow/internal/customer/domain"
	"github.com/smallbiznis/detailflow/pkg/db/pagination"
)

type referralPayload struct {
	Source     string `json:"source"`
	CustomerID string `json:"customer_id"`
	EmployeeID string `json:"employee_id"`
}

func (p referralPayload) toDomain() customerdomain.Referral {
	return customerdomain.Referral{
		Source:     customerdomain.ReferralSource(strings.ToUpper(strings.TrimSpace(p.Source))),
		CustomerID: strings.TrimSpace(p.CustomerID),
		EmployeeID: strings.TrimSpace(p.EmployeeID),
	}
}

type vehiclePayload struct {
	RegNumber      string `json:"reg_number" binding:"required"`
	Model          string `json:"model" binding:"required"`
	Color          string `json:"color"`
	FuelType       string `json:"fuel_type"`
	NextServiceDue string `json:"next_service_due" binding:"omitempty,ymd"`
}

func (p vehiclePayload) toDomain() customerdomain.VehicleInput {
	return customerdomain.VehicleInput{
		RegNumber:      p.RegNumber,
		Model:          strings.TrimSpace(p.Model),
		Color:          strings.TrimSpace(p.Color),
		FuelType:       strings.TrimSpace(p.FuelType),
		NextServiceDue: strings.TrimSpace(p.NextServiceDue),
	}
}

type onboardCustomerRequest struct {
	Name     string          `json:"name" binding:"required"`
	Mobile   string          `json:"mobile" binding:"required,mobile"`
	Email    string          `json:"email" binding:"omitempty,email"`
	Notes    string          `json:"notes"`
	Referral referralPayload `json:"referral"`
	Vehicle  vehiclePayload  `json:"vehicle"`
}

func (s *Server) OnboardCustomer(c *gin.Context) {
	var req onboardCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.customerSvc.Onboard(c.Request.Context(), customerdomain.OnboardRequest{
		Name:     strings.TrimSpace(req.Name),
		Mobile:   req.Mobile,
		Email:    strings.TrimSpace(req.Email),
		Notes:    strings.TrimSpace(req.Notes),
		Referral: req.Referral.toDomain(),
		Vehicle:  req.Vehicle.toDomain(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

type updateCustomerRequest struct {
	Name     *string          `json:"name"`
	Mobile   *string          `json:"mobile"`
	Email    *string          `json:"email"`
	Notes    *string          `json:"notes"`
	Referral *referralPayload `json:"referral"`
}

func (s *Server) UpdateCustomer(c *gin.Context) {
	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	update := customerdomain.UpdateCustomerRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Name:   req.Name,
		Mobile: req.Mobile,
		Email:  req.Email,
		Notes:  req.Notes,
	}
	if req.Referral != nil {
		referral := req.Referral.toDomain()
		update.Referral = &referral
	}

	resp, err := s.customerSvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCustomers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name   string `form:"name"`
		Mobile string `form:"mobile"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListCustomerRequest{
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
		Name:      strings.TrimSpace(query.Name),
		Mobile:    strings.TrimSpace(query.Mobile),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Customers, "page_info": resp.PageInfo})
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	resp, err := s.customerSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddVehicle(c *gin.Context) {
	var req vehiclePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.customerSvc.AddVehicle(c.Request.Context(), customerdomain.AddVehicleRequest{
		CustomerID: strings.TrimSpace(c.Param("id")),
		Vehicle:    req.toDomain(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListVehicles(c *gin.Context) {
	resp, err := s.customerSvc.ListVehicles(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetReferralChain(c *gin.Context) {
	resp, err := s.customerSvc.ReferralChain(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
