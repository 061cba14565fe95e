package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"edgefhir-dash/internal/dispatch"
	"edgefhir-dash/internal/poll"
	"edgefhir-dash/internal/relay"
	"edgefhir-dash/internal/snapshot"
	"edgefhir-dash/internal/view"
)

// runHeadless prints one summary line per completed cycle until ctx ends.
func runHeadless(ctx context.Context, syncer *poll.Synchronizer, interval time.Duration, out io.Writer) {
	syncer.Run(ctx, interval, nil, func(res poll.CycleResult) {
		fmt.Fprintln(out, summaryLine(syncer.Store().Snapshot(), res))
	})
}

// runExec sends one command and follows it with exactly one cycle, whether
// or not the command succeeded.
func runExec(ctx context.Context, syncer *poll.Synchronizer, sender dispatch.Sender, timeout time.Duration, target string, out io.Writer) error {
	path := strings.TrimSpace(target)
	if cmd, ok := dispatch.ByKey(path); ok {
		path = cmd.Path
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("command %q must be a relay path or a dashboard key", target)
	}

	var follow poll.CycleResult
	dispatcher := dispatch.New(sender, dispatch.Options{
		Timeout: timeout,
		OnComplete: func(dispatch.Result) {
			follow = syncer.PollOnce(ctx)
		},
	})
	res := dispatcher.Dispatch(ctx, path)

	if res.OK() {
		fmt.Fprintf(out, "%s ok (%s)\n", path, res.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(out, "%s failed: %v\n", path, res.Err)
	}
	fmt.Fprintln(out, summaryLine(syncer.Store().Snapshot(), follow))
	return res.Err
}

func runCheck(ctx context.Context, client *relay.Client, timeout time.Duration, out io.Writer) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("relay %s unhealthy: %w", client.BaseURL(), err)
	}
	fmt.Fprintf(out, "relay %s ok\n", client.BaseURL())
	return nil
}

// summaryLine renders a snapshot as a single greppable line.
func summaryLine(snap snapshot.Snapshot, res poll.CycleResult) string {
	at := res.Finished
	if at.IsZero() {
		at = snap.LastCycleAt
	}
	connectivity := "off"
	if snap.ConnectivityOn {
		connectivity = "on"
	}
	phase := snap.Phase
	if phase == "" {
		phase = view.Placeholder
	}
	decision := view.DecisionSummary(snap.LastDecision)
	vitals := view.LatestVitals(snap.History)
	bundle := view.BundleSummary(snap.LastFhirBundle)

	parts := []string{
		at.Local().Format("15:04:05"),
		fmt.Sprintf("ok=%d/3", res.Succeeded()),
		"phase=" + phase,
		"connectivity=" + connectivity,
		fmt.Sprintf("outbox=%d", snap.OutboxCount),
		"mode=" + snap.Mode,
		"triage=" + decision.Triage,
		"confidence=" + decision.ConfidencePct,
		"hr=" + vitals.HR,
		"spo2=" + vitals.SpO2,
		fmt.Sprintf("bundle_entries=%d", bundle.EntryCount),
	}
	if snap.LastError != "" {
		parts = append(parts, fmt.Sprintf("error=%q", snap.LastError))
	}
	return strings.Join(parts, " ")
}
