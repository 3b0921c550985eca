package workflow

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardenfork/espalier/pkg/domain"
)

func TestFileInstanceStore(t *testing.T) {
	ctx := context.Background()
	store := NewFileInstanceStore(filepath.Join(t.TempDir(), "instances"))

	inst := &Instance{
		ID:           "inst-1",
		WorkflowName: "release",
		CurrentStep:  "review",
		State:        map[string]any{"phase": "reviewing", "ready": "yes"},
		History:      []string{"draft", "review"},
		StartedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.Save(ctx, inst))

	loaded, err := store.Load(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, inst.WorkflowName, loaded.WorkflowName)
	assert.Equal(t, inst.CurrentStep, loaded.CurrentStep)
	assert.Equal(t, inst.History, loaded.History)
	assert.Equal(t, "reviewing", loaded.State["phase"])

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"inst-1"}, ids)

	require.NoError(t, store.Delete(ctx, "inst-1"))
	_, err = store.Load(ctx, "inst-1")
	assert.ErrorIs(t, err, domain.ErrInstanceNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, store.Delete(ctx, "inst-1"))
}

// A hand-edited instance file can null out the state map; loading
// normalizes it so the next advance can merge outputs.
func TestFileInstanceStoreNullState(t *testing.T) {
	ctx := context.Background()
	store := NewFileInstanceStore(filepath.Join(t.TempDir(), "instances"))

	inst := &Instance{
		ID:           "inst-null",
		WorkflowName: "release",
		CurrentStep:  "draft",
		History:      []string{"draft"},
	}
	require.NoError(t, store.Save(ctx, inst))

	loaded, err := store.Load(ctx, "inst-null")
	require.NoError(t, err)
	require.NotNil(t, loaded.State)

	loaded.mergeOutputs(map[string]any{"phase": "drafting"})
	assert.Equal(t, "drafting", loaded.State["phase"])
}

func TestFileInstanceStoreListEmpty(t *testing.T) {
	store := NewFileInstanceStore(filepath.Join(t.TempDir(), "never-created"))

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileInstanceStoreEmptyID(t *testing.T) {
	store := NewFileInstanceStore(t.TempDir())

	assert.Error(t, store.Save(context.Background(), &Instance{}))
	_, err := store.Load(context.Background(), "")
	assert.Error(t, err)
}
