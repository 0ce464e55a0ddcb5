package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jobdomain "github.com/smallbiznis/detailflow/internal/job/domain"
	"github.com/smallbiznis/detailflow/pkg/db/pagination"
)

type jobItemPayload struct {
	ServiceName string `json:"service_name"`
	Price       int64  `json:"price"`
}

func toItemInputs(items []jobItemPayload) []jobdomain.ItemInput {
	out := make([]jobdomain.ItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, jobdomain.ItemInput{
			ServiceName: item.ServiceName,
			Price:       item.Price,
		})
	}
	return out
}

type createJobRequest struct {
	CustomerID               string           `json:"customer_id" binding:"required"`
	VehicleID                string           `json:"vehicle_id" binding:"required"`
	AssignedEmployeeID       string           `json:"assigned_employee_id"`
	Items                    []jobItemPayload `json:"items"`
	CustomServiceCharge      int64            `json:"custom_service_charge" binding:"gte=0"`
	CustomServiceDescription string           `json:"custom_service_description"`
	Discount                 *int64           `json:"discount"`
	GSTEnabled               bool             `json:"gst_enabled"`
	Notes                    string           `json:"notes"`
	Images                   []string         `json:"images"`
}

func (s *Server) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.jobSvc.Create(c.Request.Context(), jobdomain.CreateJobRequest{
		CustomerID:               strings.TrimSpace(req.CustomerID),
		VehicleID:                strings.TrimSpace(req.VehicleID),
		AssignedEmployeeID:       strings.TrimSpace(req.AssignedEmployeeID),
		Items:                    toItemInputs(req.Items),
		CustomServiceCharge:      req.CustomServiceCharge,
		CustomServiceDescription: strings.TrimSpace(req.CustomServiceDescription),
		Discount:                 req.Discount,
		GSTEnabled:               req.GSTEnabled,
		Notes:                    strings.TrimSpace(req.Notes),
		Images:                   req.Images,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("job_id", resp.ID.String())
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

type updateJobRequest struct {
	AssignedEmployeeID       *string           `json:"assigned_employee_id"`
	Items                    *[]jobItemPayload `json:"items"`
	CustomServiceCharge      *int64            `json:"custom_service_charge"`
	CustomServiceDescription *string           `json:"custom_service_description"`
	Discount                 *int64            `json:"discount"`
	GSTEnabled               *bool             `json:"gst_enabled"`
	Notes                    *string           `json:"notes"`
	Images                   *[]string         `json:"images"`
}

func (s *Server) UpdateJob(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("job_id", id)

	var req updateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	update := jobdomain.UpdateJobRequest{
		ID:                       id,
		AssignedEmployeeID:       req.AssignedEmployeeID,
		CustomServiceCharge:      req.CustomServiceCharge,
		CustomServiceDescription: req.CustomServiceDescription,
		Discount:                 req.Discount,
		GSTEnabled:               req.GSTEnabled,
		Notes:                    req.Notes,
		Images:                   req.Images,
	}
	if req.Items != nil {
		items := toItemInputs(*req.Items)
		update.Items = &items
	}

	resp, err := s.jobSvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) StartJob(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("job_id", id)

	resp, err := s.jobSvc.Start(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type completeJobRequest struct {
	PaymentMode string `json:"payment_mode" binding:"required"`
	EmployeeID  string `json:"employee_id"`
}

func (s *Server) CompleteJob(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("job_id", id)

	var req completeJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.jobSvc.Complete(c.Request.Context(), jobdomain.CompleteJobRequest{
		ID:          id,
		PaymentMode: strings.TrimSpace(req.PaymentMode),
		EmployeeID:  strings.TrimSpace(req.EmployeeID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelJob(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("job_id", id)

	resp, err := s.jobSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetJobByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("job_id", id)

	resp, err := s.jobSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListJobs(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status     string `form:"status"`
		CustomerID string `form:"customer_id"`
		EmployeeID string `form:"employee_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.jobSvc.List(c.Request.Context(), jobdomain.ListJobRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Status:     strings.TrimSpace(query.Status),
		CustomerID: strings.TrimSpace(query.CustomerID),
		EmployeeID: strings.TrimSpace(query.EmployeeID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Jobs, "page_info": resp.PageInfo})
}
