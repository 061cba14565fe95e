// Package snapshot holds the dashboard's single in-memory view of the relay.
package snapshot

import (
	"sync"
	"time"

	"edgefhir-dash/internal/relay"
)

// Snapshot is the merged state of the most recent poll cycles.
// Maps inside it are shared with the store and must be treated as read-only.
type Snapshot struct {
	Phase          string
	ConnectivityOn bool
	OutboxCount    int
	LastDecision   map[string]any
	LastFhirBundle map[string]any
	LastUpdated    *time.Time
	History        []map[string]any
	Mode           string
	LastError      string

	Cycles      uint64
	LastCycleAt time.Time
}

// Store owns the snapshot. Every Apply replaces whole fields under the lock,
// so readers never observe a half-applied resource.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewStore() *Store {
	return &Store{snap: Snapshot{
		Mode:    relay.DefaultMode,
		History: []map[string]any{},
	}}
}

// Snapshot returns a copy that stays stable while the store keeps changing.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.History = append([]map[string]any(nil), s.snap.History...)
	if out.History == nil {
		out.History = []map[string]any{}
	}
	if s.snap.LastUpdated != nil {
		ts := *s.snap.LastUpdated
		out.LastUpdated = &ts
	}
	return out
}

// ApplyStatus replaces every status-derived field.
func (s *Store) ApplyStatus(status relay.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Phase = status.Phase
	s.snap.ConnectivityOn = status.ConnectivityOn
	s.snap.OutboxCount = status.OutboxCount
	s.snap.LastDecision = status.LastDecision
	s.snap.LastFhirBundle = status.LastFhirBundle
	s.snap.LastUpdated = status.LastUpdated
}

// ApplyHistory replaces the vitals series; samples are never accumulated.
func (s *Store) ApplyHistory(series []map[string]any) {
	copied := append([]map[string]any(nil), series...)
	if copied == nil {
		copied = []map[string]any{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.History = copied
}

func (s *Store) ApplyMode(mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Mode = mode
}

// SetError records the message for the operator banner. An empty message
// clears it.
func (s *Store) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastError = message
}

func (s *Store) ClearError() {
	s.SetError("")
}

// MarkCycle records that a poll cycle finished at the given time.
func (s *Store) MarkCycle(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Cycles++
	s.snap.LastCycleAt = at
}
