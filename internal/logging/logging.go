// Package logging routes the standard logger to a rotating file.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"edgefhir-dash/internal/config"
)

// Setup points the standard logger at the configured log file. Console
// output is added only when both the config and the caller allow it; the
// TUI owns stdout and passes allowConsole=false.
func Setup(cfg config.LogConfig, allowConsole bool) io.Closer {
	logFile := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if cfg.Console && allowConsole {
		log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	} else {
		log.SetOutput(logFile)
	}
	return logFile
}

// LogConfiguration writes the effective configuration once at startup.
func LogConfiguration(cfg *config.Config, source string) {
	log.Println("--- Dashboard Configuration ---")
	if source != "" {
		log.Printf("Config file: %s", source)
	} else {
		log.Println("Config file: [NONE]")
	}
	if cfg.DotEnvLoaded {
		log.Println(".env file: loaded")
	} else {
		log.Println(".env file: [NONE], using environment variables or defaults")
	}
	log.Printf("Relay base URL: %s", cfg.Relay.BaseURL)
	log.Printf("Relay API URL: %s", cfg.Relay.APIURL)
	log.Printf("Poll interval: %s", cfg.Poll.Interval())
	log.Printf("Cycle timeout: %s", cfg.Poll.CycleTimeout())
	log.Printf("Command timeout: %s", cfg.Commands.Timeout())
	log.Printf("Proxy listen: %s", cfg.Proxy.Listen)
	log.Println("-------------------------------")
}
