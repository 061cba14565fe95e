package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"edgefhir-dash/internal/app"
	"edgefhir-dash/internal/config"
	"edgefhir-dash/internal/dispatch"
	"edgefhir-dash/internal/logging"
	"edgefhir-dash/internal/poll"
	"edgefhir-dash/internal/proxy"
	"edgefhir-dash/internal/relay"
	"edgefhir-dash/internal/snapshot"

	tea "github.com/charmbracelet/bubbletea"
)

type options struct {
	configPath string
	headless   bool
	execPath   string
	serve      bool
	check      bool
}

// consoleAllowed is false for the TUI, which owns the terminal.
func (o options) consoleAllowed() bool {
	return o.headless || o.execPath != "" || o.serve || o.check
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("edgefhir-dash", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	fs.BoolVar(&opts.headless, "headless", false, "poll without the TUI and print one line per cycle")
	fs.StringVar(&opts.execPath, "exec", "", "send one command (path or key), refresh once and exit")
	fs.BoolVar(&opts.serve, "serve", false, "serve the /api reverse proxy")
	fs.BoolVar(&opts.check, "check", false, "probe the relay health endpoint and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	modes := 0
	for _, on := range []bool{opts.headless, opts.execPath != "", opts.serve, opts.check} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return options{}, errors.New("-headless, -exec, -serve and -check are mutually exclusive")
	}
	return opts, nil
}

func resolveStartupConfig(path string) (*config.Config, string, error) {
	cfg, source, err := config.Load(path)
	if err != nil {
		return nil, source, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, source, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	cfg, source, err := resolveStartupConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logCloser := logging.Setup(cfg.Log, opts.consoleAllowed())
	defer func() {
		_ = logCloser.Close()
	}()
	logging.LogConfiguration(cfg, source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := relay.NewClient(cfg.Relay.APIURL, &http.Client{})
	syncer := poll.New(client, snapshot.NewStore(), poll.Options{CycleTimeout: cfg.Poll.CycleTimeout()})

	switch {
	case opts.check:
		err = runCheck(ctx, client, cfg.Commands.Timeout(), os.Stdout)
	case opts.serve:
		err = runProxy(ctx, cfg)
	case opts.execPath != "":
		err = runExec(ctx, syncer, client, cfg.Commands.Timeout(), opts.execPath, os.Stdout)
	case opts.headless:
		runHeadless(ctx, syncer, cfg.Poll.Interval(), os.Stdout)
	default:
		err = runTUI(cfg, syncer, client)
	}
	if err != nil {
		log.Printf("exiting: %v", err)
		fmt.Fprintf(os.Stderr, "%v\n", err)
		stop()
		os.Exit(1)
	}
}

func runTUI(cfg *config.Config, syncer *poll.Synchronizer, client *relay.Client) error {
	dispatcher := dispatch.New(client, dispatch.Options{Timeout: cfg.Commands.Timeout()})
	model := app.NewModelWithOptions(syncer, dispatcher, app.ModelOptions{
		RelayURL:     cfg.Relay.BaseURL,
		PollInterval: cfg.Poll.Interval(),
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		if logs := client.Logs(); logs != "" {
			fmt.Fprintln(os.Stderr, "relay request log:")
			fmt.Fprintln(os.Stderr, logs)
		}
		return fmt.Errorf("tui exited with error: %w", err)
	}
	return nil
}

func runProxy(ctx context.Context, cfg *config.Config) error {
	e, err := proxy.New(cfg.Relay.BaseURL)
	if err != nil {
		return err
	}
	return proxy.Serve(ctx, e, cfg.Proxy.Listen)
}
