package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/repos"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

// Allowed transitions. Resolved is terminal; incidents are never deleted.
var incidentTransitions = map[string][]string{
	types.IncidentStatusOpen:       {types.IncidentStatusInProgress, types.IncidentStatusResolved},
	types.IncidentStatusInProgress: {types.IncidentStatusResolved},
	types.IncidentStatusResolved:   {},
}

type IncidentService interface {
	List(ctx context.Context, status string) ([]*types.SafetyIncident, error)
	Get(ctx context.Context, incidentID uuid.UUID) (*types.SafetyIncident, error)
	// UpdateStatus moves an incident along open -> in_progress -> resolved.
	// in_progress is settable here for external tooling even though the
	// detector itself never sets it.
	UpdateStatus(ctx context.Context, actorID, incidentID uuid.UUID, status string) (*types.SafetyIncident, error)
	Resolve(ctx context.Context, actorID, incidentID uuid.UUID, notes string) (*types.SafetyIncident, error)
	MarkNotified(ctx context.Context, incidentID uuid.UUID, counselor, guardian bool) error
}

type incidentService struct {
	db        *gorm.DB
	log       *logger.Logger
	incidents repos.SafetyIncidentRepo
	audit     repos.AuditLogRepo
}

func NewIncidentService(db *gorm.DB, baseLog *logger.Logger, incidents repos.SafetyIncidentRepo, audit repos.AuditLogRepo) IncidentService {
	serviceLog := baseLog.With("service", "IncidentService")
	return &incidentService{db: db, log: serviceLog, incidents: incidents, audit: audit}
}

func (is *incidentService) List(ctx context.Context, status string) ([]*types.SafetyIncident, error) {
	if status != "" {
		if _, ok := incidentTransitions[status]; !ok {
			return nil, fmt.Errorf("invalid status. use: open, in_progress, or resolved: %w", pkgerrors.ErrInvalidArgument)
		}
	}
	return is.incidents.List(ctx, nil, status)
}

func (is *incidentService) Get(ctx context.Context, incidentID uuid.UUID) (*types.SafetyIncident, error) {
	return is.incidents.GetByID(ctx, nil, incidentID)
}

func (is *incidentService) UpdateStatus(ctx context.Context, actorID, incidentID uuid.UUID, status string) (*types.SafetyIncident, error) {
	if _, ok := incidentTransitions[status]; !ok {
		return nil, fmt.Errorf("invalid status. use: open, in_progress, or resolved: %w", pkgerrors.ErrInvalidArgument)
	}
	incident, err := is.incidents.GetByID(ctx, nil, incidentID)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(incident.Status, status) {
		return nil, fmt.Errorf("cannot move incident from %s to %s: %w", incident.Status, status, pkgerrors.ErrInvalidArgument)
	}

	updates := map[string]any{"status": status, "updated_at": time.Now().UTC()}
	if status == types.IncidentStatusResolved {
		updates["resolved_at"] = time.Now().UTC()
	}
	if err := is.incidents.UpdateFields(ctx, nil, incidentID, updates); err != nil {
		return nil, err
	}
	is.auditAction(ctx, actorID, "incident.status", incidentID, map[string]any{"from": incident.Status, "to": status})
	return is.incidents.GetByID(ctx, nil, incidentID)
}

func (is *incidentService) Resolve(ctx context.Context, actorID, incidentID uuid.UUID, notes string) (*types.SafetyIncident, error) {
	incident, err := is.incidents.GetByID(ctx, nil, incidentID)
	if err != nil {
		return nil, err
	}
	if incident.Status == types.IncidentStatusResolved {
		return nil, fmt.Errorf("incident already resolved: %w", pkgerrors.ErrInvalidArgument)
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"status":      types.IncidentStatusResolved,
		"resolved_at": now,
		"updated_at":  now,
	}
	if notes != "" {
		updates["notes"] = notes
	}
	if err := is.incidents.UpdateFields(ctx, nil, incidentID, updates); err != nil {
		return nil, err
	}
	is.auditAction(ctx, actorID, "incident.resolve", incidentID, map[string]any{"notes": notes})
	is.log.Info("Incident resolved", "incident_id", incidentID, "actor_id", actorID)
	return is.incidents.GetByID(ctx, nil, incidentID)
}

func (is *incidentService) MarkNotified(ctx context.Context, incidentID uuid.UUID, counselor, guardian bool) error {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if counselor {
		updates["counselor_notified"] = true
	}
	if guardian {
		updates["guardian_notified"] = true
	}
	return is.incidents.UpdateFields(ctx, nil, incidentID, updates)
}

func (is *incidentService) auditAction(ctx context.Context, actorID uuid.UUID, action string, entityID uuid.UUID, details map[string]any) {
	if is.audit == nil {
		return
	}
	entry := &types.AuditLog{
		ID:       uuid.New(),
		ActorID:  actorID,
		Action:   action,
		Entity:   "safety_incident",
		EntityID: entityID,
		Details:  datatypes.JSONMap(details),
	}
	if err := is.audit.Create(ctx, nil, entry); err != nil {
		is.log.Warn("Failed to write audit entry", "action", action, "error", err)
	}
}

func transitionAllowed(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range incidentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
