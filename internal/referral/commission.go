// Package referral computes the multi-level commission snapshot written when a
// job is completed. Everything here is pure: callers load a Graph and pass the
// rates explicitly.
package referral

import (
	"github.com/bwmarrin/snowflake"
)

// Type is the wire tag of a commission record.
type Type string

const (
	TypeCustomerReferral  Type = "CUSTOMER_REFERRAL"
	TypeStaffAcquisition  Type = "EMPLOYEE_CLIENT_ACQUISITION"
	TypeRecruitmentReward Type = "STAFF_RECRUITMENT_REWARD"
)

// RecruiterLevel is the level label of the recruitment override.
const RecruiterLevel = "RECRUITER"

// BeneficiaryKind says whether a payout goes to a customer or an employee.
type BeneficiaryKind string

const (
	BeneficiaryCustomer BeneficiaryKind = "CUSTOMER"
	BeneficiaryEmployee BeneficiaryKind = "EMPLOYEE"
)

// Beneficiary identifies who is owed a commission.
type Beneficiary struct {
	Kind BeneficiaryKind
	ID   snowflake.ID
}

// Commission is one record of a job's referral snapshot. The set of
// implementations is closed: CustomerReferral, StaffAcquisition and
// RecruitmentReward.
type Commission interface {
	Type() Type
	// LevelLabel is "1", "2", "3" for tiers and RecruiterLevel for the override.
	LevelLabel() string
	Payout() int64
	Beneficiary() Beneficiary
	commission()
}

// CustomerReferral pays a referring customer at tier Level.
type CustomerReferral struct {
	Level      int
	CustomerID snowflake.ID
	Amount     int64
}

func (CustomerReferral) Type() Type { return TypeCustomerReferral }
func (c CustomerReferral) LevelLabel() string { return levelLabel(c.Level) }
func (c CustomerReferral) Payout() int64 { return c.Amount }
func (c CustomerReferral) Beneficiary() Beneficiary {
	return Beneficiary{Kind: BeneficiaryCustomer, ID: c.CustomerID}
}
func (CustomerReferral) commission() {}

// StaffAcquisition pays the employee who brought the customer in.
type StaffAcquisition struct {
	Level      int
	EmployeeID snowflake.ID
	Amount     int64
}

func (StaffAcquisition) Type() Type { return TypeStaffAcquisition }
func (s StaffAcquisition) LevelLabel() string { return levelLabel(s.Level) }
func (s StaffAcquisition) Payout() int64 { return s.Amount }
func (s StaffAcquisition) Beneficiary() Beneficiary {
	return Beneficiary{Kind: BeneficiaryEmployee, ID: s.EmployeeID}
}
func (StaffAcquisition) commission() {}

// RecruitmentReward pays the recruiter of the employee who did the work.
type RecruitmentReward struct {
	EmployeeID         snowflake.ID
	Amount             int64
	SourceEmployeeName string
}

func (RecruitmentReward) Type() Type { return TypeRecruitmentReward }
func (RecruitmentReward) LevelLabel() string { return RecruiterLevel }
func (r RecruitmentReward) Payout() int64 { return r.Amount }
func (r RecruitmentReward) Beneficiary() Beneficiary {
	return Beneficiary{Kind: BeneficiaryEmployee, ID: r.EmployeeID}
}
func (RecruitmentReward) commission() {}

func levelLabel(level int) string {
	switch level {
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	}
	return ""
}
