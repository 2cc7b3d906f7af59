package audit

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meatledger/backend/internal/domain"
	"meatledger/backend/internal/store"
	"meatledger/backend/internal/store/memory"
)

func TestRecordUsesActorFromContext(t *testing.T) {
	repo := store.NewRepository(memory.New())
	rec := NewRecorder(repo.AuditLogs, nil)

	ctx := WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
	rec.Record(ctx, "customer.create", "customer", "cus-1", "name=Hotel Aruna")
	rec.Record(context.Background(), "reconcile.fix", "customer", "cus-1", "")

	entries, err := rec.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "reconcile.fix", entries[0].Action)
	assert.Equal(t, "system", entries[0].ActorUsername)
	assert.Equal(t, "admin", entries[1].ActorUsername)
	assert.Equal(t, "cus-1", entries[1].EntityID)
	assert.False(t, entries[1].CreatedAt.IsZero())
}

func TestListHonoursLimit(t *testing.T) {
	repo := store.NewRepository(memory.New())
	rec := NewRecorder(repo.AuditLogs, nil)
	for i := 0; i < 5; i++ {
		rec.Record(context.Background(), fmt.Sprintf("action.%d", i), "order", "ord-1", "")
	}

	entries, err := rec.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "action.4", entries[0].Action)
	assert.Equal(t, "action.3", entries[1].Action)
}
