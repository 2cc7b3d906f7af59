// Package audit records who changed what. Failures to write an entry are
// logged and never fail the mutation that triggered them.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"meatledger/backend/internal/domain"
	"meatledger/backend/internal/store"
	"meatledger/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Recorder struct {
	logs *store.Collection[domain.AuditLog]
	log  *zap.Logger
	now  func() time.Time
}

func NewRecorder(logs *store.Collection[domain.AuditLog], log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{logs: logs, log: log, now: time.Now}
}

func (r *Recorder) Record(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if _, err := r.logs.Create(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     r.now().UTC(),
	}); err != nil {
		r.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}

// List returns the newest entries first, at most limit of them when limit > 0.
func (r *Recorder) List(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	entries, err := r.logs.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]domain.AuditLog, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		result = append(result, entries[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}
