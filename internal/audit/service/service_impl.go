package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/detailflow/internal/audit/domain"
	"github.com/smallbiznis/detailflow/internal/audit/masking"
	"github.com/smallbiznis/detailflow/internal/clock"
	obscontext "github.com/smallbiznis/detailflow/internal/observability/context"
	"github.com/smallbiznis/detailflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// AuditLog appends one entry. Writes made outside an authenticated request are
// attributed to the system actor.
func (s *Service) AuditLog(ctx context.Context, action string, targetType string, targetID *string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  string(auditdomain.ActorTypeSystem),
		Action:     action,
		TargetType: strings.TrimSpace(targetType),
		TargetID:   nonBlank(targetID),
		Metadata:   datatypes.JSONMap(masking.MaskMetadata(metadata)),
		RequestID:  obscontext.RequestIDFromContext(ctx),
		CreatedAt:  s.clock.Now(),
	}
	if entry.TargetType == "" {
		entry.TargetType = "unknown"
	}
	if actorType, actorID := obscontext.ActorFromContext(ctx); actorID != "" {
		entry.ActorType = actorType
		entry.ActorID = &actorID
	}
	if cid := obscontext.CorrelationIDFromContext(ctx); cid != "" {
		if entry.Metadata == nil {
			entry.Metadata = datatypes.JSONMap{}
		}
		entry.Metadata["correlation_id"] = cid
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.String("target_type", entry.TargetType), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if req.Since != nil && req.Until != nil && !req.Since.Before(*req.Until) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}
	if token := strings.TrimSpace(req.PageToken); token != "" && !validPageToken(token) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
	}

	size := pagination.Size(req.PageSize)
	rows, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action:     strings.TrimSpace(req.Action),
		TargetType: strings.TrimSpace(req.TargetType),
		TargetID:   strings.TrimSpace(req.TargetID),
		ActorID:    strings.TrimSpace(req.ActorID),
		Since:      req.Since,
		Until:      req.Until,
	}, pagination.Pagination{PageToken: req.PageToken, PageSize: size})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	info := pagination.BuildCursorPageInfo(rows, size, func(row *auditdomain.AuditLog) string {
		return pagination.TokenFor(row.ID.String(), row.CreatedAt)
	})
	if len(rows) > size {
		rows = rows[:size]
	}
	resp := auditdomain.ListAuditLogResponse{
		PageInfo:  *info,
		AuditLogs: make([]auditdomain.AuditLog, 0, len(rows)),
	}
	for _, row := range rows {
		resp.AuditLogs = append(resp.AuditLogs, *row)
	}
	return resp, nil
}

// validPageToken reports whether token decodes to a cursor the keyset query
// can use. The repository silently ignores tokens it cannot parse.
func validPageToken(token string) bool {
	cursor, err := pagination.DecodeCursor(token)
	if err != nil {
		return false
	}
	if _, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt); err != nil {
		return false
	}
	id, err := snowflake.ParseString(strings.TrimSpace(cursor.ID))
	return err == nil && id != 0
}

func nonBlank(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
