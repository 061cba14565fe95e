package snapshot

import (
	"testing"
	"time"

	"edgefhir-dash/internal/relay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStatus() relay.Status {
	ts := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	return relay.Status{
		Phase:          "idle",
		ConnectivityOn: true,
		OutboxCount:    2,
		LastDecision:   map[string]any{"triage": "watch"},
		LastFhirBundle: map[string]any{"type": "collection"},
		LastUpdated:    &ts,
	}
}

func TestNewStoreDefaults(t *testing.T) {
	t.Parallel()

	snap := NewStore().Snapshot()
	assert.Equal(t, "normal", snap.Mode)
	assert.NotNil(t, snap.History)
	assert.Empty(t, snap.History)
	assert.Empty(t, snap.LastError)
	assert.Nil(t, snap.LastDecision)
	assert.Nil(t, snap.LastUpdated)
}

func TestApplyStatusReplacesAllFields(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.ApplyStatus(sampleStatus())
	store.ApplyStatus(relay.Status{Phase: "syncing"})

	snap := store.Snapshot()
	assert.Equal(t, "syncing", snap.Phase)
	assert.False(t, snap.ConnectivityOn)
	assert.Zero(t, snap.OutboxCount)
	assert.Nil(t, snap.LastDecision)
	assert.Nil(t, snap.LastFhirBundle)
	assert.Nil(t, snap.LastUpdated)
}

func TestApplyIsIdempotent(t *testing.T) {
	t.Parallel()

	series := []map[string]any{{"hr": 70.0}, {"hr": 75.0}}

	once := NewStore()
	once.ApplyStatus(sampleStatus())
	once.ApplyHistory(series)
	once.ApplyMode("desat")

	twice := NewStore()
	for i := 0; i < 2; i++ {
		twice.ApplyStatus(sampleStatus())
		twice.ApplyHistory(series)
		twice.ApplyMode("desat")
	}

	assert.Equal(t, once.Snapshot(), twice.Snapshot())
}

func TestApplyHistoryReplacesNotAppends(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.ApplyHistory([]map[string]any{{"hr": 1.0}, {"hr": 2.0}})
	store.ApplyHistory([]map[string]any{{"hr": 3.0}})

	snap := store.Snapshot()
	require.Len(t, snap.History, 1)
	assert.Equal(t, 3.0, snap.History[0]["hr"])

	store.ApplyHistory(nil)
	assert.NotNil(t, store.Snapshot().History)
	assert.Empty(t, store.Snapshot().History)
}

func TestSnapshotIsDetachedFromStore(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.ApplyStatus(sampleStatus())
	store.ApplyHistory([]map[string]any{{"hr": 1.0}})

	snap := store.Snapshot()
	snap.History[0] = map[string]any{"hr": 999.0}
	*snap.LastUpdated = time.Time{}

	again := store.Snapshot()
	assert.Equal(t, 1.0, again.History[0]["hr"])
	assert.False(t, again.LastUpdated.IsZero())
}

func TestErrorSetAndClear(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.ApplyMode("fever")
	store.SetError("connection refused")
	assert.Equal(t, "connection refused", store.Snapshot().LastError)
	assert.Equal(t, "fever", store.Snapshot().Mode)

	store.ClearError()
	assert.Empty(t, store.Snapshot().LastError)
}

func TestMarkCycleCounts(t *testing.T) {
	t.Parallel()

	store := NewStore()
	at := time.Now()
	store.MarkCycle(at)
	store.MarkCycle(at.Add(time.Second))

	snap := store.Snapshot()
	assert.Equal(t, uint64(2), snap.Cycles)
	assert.Equal(t, at.Add(time.Second), snap.LastCycleAt)
}
