// Package dispatch sends operator commands to the relay.
package dispatch

import (
	"context"
	"log"
	"time"
)

// Sender is the write side of the relay API.
type Sender interface {
	Command(ctx context.Context, path string) error
}

// Command is one operator action the dashboard offers.
type Command struct {
	Path  string
	Label string
	Key   string
}

const (
	PathConnectivityOn  = "/connectivity/on"
	PathConnectivityOff = "/connectivity/off"
	PathFlush           = "/flush"
	PathSimulateNormal  = "/simulate/normal"
	PathSimulateDesat   = "/simulate/desat"
	PathSimulateFever   = "/simulate/fever"
	PathSimulateTachy   = "/simulate/tachy"
)

// Commands lists the known control commands in display order.
var Commands = []Command{
	{Path: PathConnectivityOn, Label: "Connectivity ON", Key: "1"},
	{Path: PathConnectivityOff, Label: "Connectivity OFF", Key: "2"},
	{Path: PathFlush, Label: "Flush Outbox", Key: "f"},
	{Path: PathSimulateNormal, Label: "Normal", Key: "n"},
	{Path: PathSimulateDesat, Label: "Desat", Key: "d"},
	{Path: PathSimulateFever, Label: "Fever", Key: "e"},
	{Path: PathSimulateTachy, Label: "Tachy", Key: "t"},
}

// ByKey finds the command bound to a key.
func ByKey(key string) (Command, bool) {
	for _, cmd := range Commands {
		if cmd.Key == key {
			return cmd, true
		}
	}
	return Command{}, false
}

type Result struct {
	Path     string
	Err      error
	Started  time.Time
	Duration time.Duration
}

func (r Result) OK() bool {
	return r.Err == nil
}

type Options struct {
	// Timeout bounds a single command request; zero means none.
	Timeout time.Duration
	// OnComplete runs exactly once per Dispatch, whatever the outcome.
	OnComplete func(Result)
}

type Dispatcher struct {
	sender     Sender
	timeout    time.Duration
	onComplete func(Result)
}

func New(sender Sender, opts Options) *Dispatcher {
	return &Dispatcher{
		sender:     sender,
		timeout:    opts.Timeout,
		onComplete: opts.OnComplete,
	}
}

// Dispatch fires the command and reports how it went. Failures are not
// retried: the next poll shows whether the command took effect.
func (d *Dispatcher) Dispatch(ctx context.Context, path string) Result {
	res := Result{Path: path, Started: time.Now()}

	reqCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	res.Err = d.sender.Command(reqCtx, path)
	res.Duration = time.Since(res.Started)
	if res.Err != nil {
		log.Printf("dispatch %s: ignored failure after %s: %v", path, res.Duration.Round(time.Millisecond), res.Err)
	}

	if d.onComplete != nil {
		d.onComplete(res)
	}
	return res
}
