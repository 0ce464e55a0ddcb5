package service

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/detailflow/internal/report/domain"
	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary = "Summary"
	sheetPayouts = "Payouts"
	sheetStaff   = "Staff"
)

func (s *Service) Export(ctx context.Context, req domain.RangeRequest) ([]byte, error) {
	summary, err := s.Summary(ctx, req)
	if err != nil {
		return nil, err
	}
	rangeReq := domain.RangeRequest{Start: summary.Start, End: summary.End}
	payouts, err := s.Payouts(ctx, rangeReq)
	if err != nil {
		return nil, err
	}
	staff, err := s.StaffPerformance(ctx, rangeReq)
	if err != nil {
		return nil, err
	}

	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := file.SetSheetName(file.GetSheetName(0), sheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetPayouts, sheetStaff} {
		if _, err := file.NewSheet(name); err != nil {
			return nil, err
		}
	}

	summaryRows := [][]any{
		{"Metric", "Value"},
		{"From", summary.Start.Format(time.DateOnly)},
		{"To (exclusive)", summary.End.Format(time.DateOnly)},
		{"Jobs completed", summary.JobsCompleted},
		{"Revenue", summary.Revenue},
		{"Expenses", summary.Expenses},
		{"Labor commissions", summary.LaborCommissions},
		{"Referral commissions", summary.ReferralCommissions},
		{"Net profit", summary.NetProfit},
	}
	if err := writeRows(file, sheetSummary, summaryRows); err != nil {
		return nil, err
	}

	payoutRows := [][]any{{"Kind", "Beneficiary ID", "Name", "Records", "Customer referral", "Staff acquisition", "Recruitment reward", "Total"}}
	for _, p := range payouts {
		payoutRows = append(payoutRows, []any{p.BeneficiaryKind, p.BeneficiaryID, p.Name, p.Records, p.CustomerReferral, p.StaffAcquisition, p.RecruitmentReward, p.Total})
	}
	if err := writeRows(file, sheetPayouts, payoutRows); err != nil {
		return nil, err
	}

	staffRows := [][]any{{"Employee ID", "Name", "Role", "Commission rate", "Jobs completed", "Labor revenue", "Commission"}}
	for _, row := range staff {
		staffRows = append(staffRows, []any{row.EmployeeID, row.Name, row.Role, row.CommissionRate.InexactFloat64(), row.JobsCompleted, row.LaborRevenue, row.Commission})
	}
	if err := writeRows(file, sheetStaff, staffRows); err != nil {
		return nil, err
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(file *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
