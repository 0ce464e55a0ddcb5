package referral

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

var ErrInvalidSnapshot = errors.New("invalid_referral_snapshot")

// Snapshot is the ordered list of commissions frozen on a completed job: tier
// records by ascending level, then the recruiter override if any. A nil
// Snapshot means "not computed yet" and is stored as NULL; an empty one means
// the job completed with no payouts.
type Snapshot []Commission

// Input is the job data a snapshot is derived from.
type Input struct {
	CustomerID  snowflake.ID
	PerformerID *snowflake.ID
	TotalAmount int64
	LaborTotal  int64
}

// BuildSnapshot runs the tier calculator over the customer's chain and
// appends the recruiter override. The result is never nil.
func BuildSnapshot(g *Graph, in Input, rates Rates) Snapshot {
	out := Snapshot{}
	out = append(out, TierCommissions(g.ResolveChain(in.CustomerID), in.TotalAmount, rates)...)
	if in.PerformerID != nil {
		if reward, ok := g.RecruiterOverride(*in.PerformerID, in.LaborTotal); ok {
			out = append(out, reward)
		}
	}
	return out
}

// Total sums every payout in the snapshot.
func (s Snapshot) Total() int64 {
	var total int64
	for _, c := range s {
		total += c.Payout()
	}
	return total
}

// TierCount counts the tier records, excluding the recruiter override.
func (s Snapshot) TierCount() int {
	n := 0
	for _, c := range s {
		if c.Type() != TypeRecruitmentReward {
			n++
		}
	}
	return n
}

type record struct {
	Type               Type            `json:"type"`
	Level              json.RawMessage `json:"level"`
	CustomerID         *snowflake.ID   `json:"customer_id,omitempty"`
	EmployeeID         *snowflake.ID   `json:"employee_id,omitempty"`
	Amount             int64           `json:"amount"`
	SourceEmployeeName string          `json:"source_employee_name,omitempty"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	records := make([]record, 0, len(s))
	for _, c := range s {
		rec := record{Type: c.Type(), Amount: c.Payout()}
		switch v := c.(type) {
		case CustomerReferral:
			id := v.CustomerID
			rec.CustomerID = &id
			rec.Level = json.RawMessage(fmt.Sprintf("%d", v.Level))
		case StaffAcquisition:
			id := v.EmployeeID
			rec.EmployeeID = &id
			rec.Level = json.RawMessage(fmt.Sprintf("%d", v.Level))
		case RecruitmentReward:
			id := v.EmployeeID
			rec.EmployeeID = &id
			rec.Level = json.RawMessage(`"` + RecruiterLevel + `"`)
			rec.SourceEmployeeName = v.SourceEmployeeName
		default:
			return nil, fmt.Errorf("%w: unknown commission %T", ErrInvalidSnapshot, c)
		}
		records = append(records, rec)
	}
	return json.Marshal(records)
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	out := make(Snapshot, 0, len(records))
	for _, rec := range records {
		switch rec.Type {
		case TypeCustomerReferral, TypeStaffAcquisition:
			var level int
			if err := json.Unmarshal(rec.Level, &level); err != nil || level < 1 || level > MaxDepth {
				return fmt.Errorf("%w: bad level %s", ErrInvalidSnapshot, string(rec.Level))
			}
			if rec.Type == TypeCustomerReferral {
				if rec.CustomerID == nil {
					return fmt.Errorf("%w: customer referral without customer_id", ErrInvalidSnapshot)
				}
				out = append(out, CustomerReferral{Level: level, CustomerID: *rec.CustomerID, Amount: rec.Amount})
			} else {
				if rec.EmployeeID == nil {
					return fmt.Errorf("%w: staff acquisition without employee_id", ErrInvalidSnapshot)
				}
				out = append(out, StaffAcquisition{Level: level, EmployeeID: *rec.EmployeeID, Amount: rec.Amount})
			}
		case TypeRecruitmentReward:
			if rec.EmployeeID == nil {
				return fmt.Errorf("%w: recruitment reward without employee_id", ErrInvalidSnapshot)
			}
			out = append(out, RecruitmentReward{
				EmployeeID:         *rec.EmployeeID,
				Amount:             rec.Amount,
				SourceEmployeeName: rec.SourceEmployeeName,
			})
		default:
			return fmt.Errorf("%w: unknown type %q", ErrInvalidSnapshot, rec.Type)
		}
	}
	*s = out
	return nil
}

// Value stores the snapshot as JSON text, or NULL when it was never computed.
func (s Snapshot) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *Snapshot) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return s.UnmarshalJSON(v)
	case string:
		return s.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidSnapshot, value)
	}
}

func (Snapshot) GormDataType() string {
	return "json"
}

func (Snapshot) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "JSONB"
	default:
		return "JSON"
	}
}
