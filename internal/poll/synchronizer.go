// Package poll keeps the snapshot store in sync with the relay.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"edgefhir-dash/internal/relay"
	"edgefhir-dash/internal/snapshot"
)

// Source is the read side of the relay API.
type Source interface {
	Status(ctx context.Context) (relay.Status, error)
	History(ctx context.Context) ([]map[string]any, error)
	Mode(ctx context.Context) (string, error)
}

type Resource string

const (
	ResourceStatus  Resource = "status"
	ResourceHistory Resource = "history"
	ResourceMode    Resource = "mode"
)

// Outcome is how one resource fared in a cycle.
type Outcome struct {
	Resource Resource
	Err      error

	// Transport is set for failures that never produced a relay answer:
	// network errors, timeouts and 2xx bodies that are not JSON.
	Transport bool
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

type CycleResult struct {
	Seq      uint64
	Started  time.Time
	Finished time.Time
	Outcomes []Outcome
	// Cancelled is set when the caller's context ended the cycle; the
	// error banner is left alone in that case.
	Cancelled bool
}

func (r CycleResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

func (r CycleResult) TransportFailures() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Transport {
			n++
		}
	}
	return n
}

// TransportError returns the first transport failure, if any.
func (r CycleResult) TransportError() error {
	for _, o := range r.Outcomes {
		if o.Transport {
			return o.Err
		}
	}
	return nil
}

type Options struct {
	// CycleTimeout bounds a whole cycle; zero leaves it unbounded.
	CycleTimeout time.Duration
	Now          func() time.Time
}

type Synchronizer struct {
	source  Source
	store   *snapshot.Store
	timeout time.Duration
	now     func() time.Time
	seq     atomic.Uint64
}

func New(source Source, store *snapshot.Store, opts Options) *Synchronizer {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Synchronizer{
		source:  source,
		store:   store,
		timeout: opts.CycleTimeout,
		now:     now,
	}
}

func (s *Synchronizer) Store() *snapshot.Store {
	return s.store
}

// PollOnce runs one cycle: the three reads go out together and each one is
// applied to the store as soon as it succeeds. A failed read leaves its
// fields as they were.
func (s *Synchronizer) PollOnce(ctx context.Context) CycleResult {
	result := CycleResult{
		Seq:     s.seq.Add(1),
		Started: s.now(),
	}

	cycleCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	fetches := []struct {
		resource Resource
		run      func(context.Context) error
	}{
		{ResourceStatus, func(ctx context.Context) error {
			status, err := s.source.Status(ctx)
			if err == nil {
				s.store.ApplyStatus(status)
			}
			return err
		}},
		{ResourceHistory, func(ctx context.Context) error {
			series, err := s.source.History(ctx)
			if err == nil {
				s.store.ApplyHistory(series)
			}
			return err
		}},
		{ResourceMode, func(ctx context.Context) error {
			mode, err := s.source.Mode(ctx)
			if err == nil {
				s.store.ApplyMode(mode)
			}
			return err
		}},
	}

	outcomes := make([]Outcome, len(fetches))
	var wg sync.WaitGroup
	for idx, fetch := range fetches {
		idx, fetch := idx, fetch
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := fetch.run(cycleCtx)
			outcomes[idx] = Outcome{
				Resource:  fetch.resource,
				Err:       err,
				Transport: err != nil && !relay.IsResourceFailure(err),
			}
		}()
	}
	wg.Wait()

	result.Outcomes = outcomes
	result.Finished = s.now()

	if ctx.Err() != nil {
		result.Cancelled = true
		return result
	}

	for _, o := range outcomes {
		if o.Err != nil && !o.Transport {
			log.Printf("poll #%d: %s unavailable, keeping previous data: %v", result.Seq, o.Resource, o.Err)
		}
	}

	// Only a cycle that got nothing through and hit the network is
	// surfaced; partial outages and HTTP errors stay quiet.
	if result.Succeeded() == 0 && result.TransportFailures() > 0 {
		err := result.TransportError()
		log.Printf("poll #%d: relay unreachable: %v", result.Seq, err)
		s.store.SetError(errorMessage(err))
	} else {
		s.store.ClearError()
	}
	s.store.MarkCycle(result.Finished)
	return result
}

func errorMessage(err error) string {
	if err == nil {
		return "Fetch failed"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("relay did not answer in time: %v", err)
	}
	return err.Error()
}

// Run polls immediately and then on every tick until ctx ends. A receive on
// trigger runs an extra cycle. Cycles never overlap: ticks that fire during
// a slow cycle collapse into a single pending one.
func (s *Synchronizer) Run(ctx context.Context, interval time.Duration, trigger <-chan struct{}, onCycle func(CycleResult)) {
	emit := func(res CycleResult) {
		if onCycle != nil && !res.Cancelled {
			onCycle(res)
		}
	}

	emit(s.PollOnce(ctx))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emit(s.PollOnce(ctx))
		case <-trigger:
			emit(s.PollOnce(ctx))
		}
	}
}
