package referral

import "github.com/bwmarrin/snowflake"

// RecruiterOverride pays the performer's recruiter a share of laborTotal.
// It yields nothing when the performer or recruiter is unknown or the share
// rounds to zero.
func (g *Graph) RecruiterOverride(performerID snowflake.ID, laborTotal int64) (Commission, bool) {
	performer, ok := g.Employee(performerID)
	if !ok || performer.ReferredByEmployeeID == nil {
		return nil, false
	}
	recruiter, ok := g.Employee(*performer.ReferredByEmployeeID)
	if !ok {
		return nil, false
	}

	share := PercentOf(laborTotal, performer.RecruiterCommission)
	if share <= 0 {
		return nil, false
	}
	return RecruitmentReward{
		EmployeeID:         recruiter.ID,
		Amount:             share,
		SourceEmployeeName: performer.Name,
	}, true
}
