package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) GetReportSummary(c *gin.Context) {
	rng, err := parseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.Summary(c.Request.Context(), rng)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetReportPayouts(c *gin.Context) {
	rng, err := parseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.Payouts(c.Request.Context(), rng)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetReportStaff(c *gin.Context) {
	rng, err := parseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.StaffPerformance(c.Request.Context(), rng)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportReport(c *gin.Context) {
	rng, err := parseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body, err := s.reportSvc.Export(c.Request.Context(), rng)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := "detailflow-report.xlsx"
	if !rng.Start.IsZero() && !rng.End.IsZero() {
		filename = fmt.Sprintf("detailflow-report-%s-%s.xlsx", rng.Start.Format("20060102"), rng.End.Format("20060102"))
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, body)
}
