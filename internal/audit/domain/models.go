package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeEmployee ActorType = "employee"
	ActorTypeSystem   ActorType = "system"
)

// AuditLog records one write performed through the API.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType  string            `gorm:"not null" json:"actor_type"`
	ActorID    *string           `json:"actor_id,omitempty"`
	Action     string            `gorm:"not null;index" json:"action"`
	TargetType string            `gorm:"not null;index:idx_audit_target" json:"target_type"`
	TargetID   *string           `gorm:"index:idx_audit_target" json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

// ListFilter narrows a listing. Zero values match everything; the time bounds
// are half open, [Since, Until).
type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorID    string
	Since      *time.Time
	Until      *time.Time
}
