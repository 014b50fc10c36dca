// Command soilmon is a soil telemetry dashboard. It loads a lookback
// window of readings from the remote sensor database, follows the live
// snapshot feed over MQTT, keeps a bounded time-ordered window, raises
// threshold alerts, and renders everything in a terminal UI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lmittmann/tint"

	"github.com/luki/soilmon/internal/config"
	"github.com/luki/soilmon/internal/monitor"
	"github.com/luki/soilmon/internal/session"
	"github.com/luki/soilmon/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "soilmon: %v (using defaults)\n", err)
	}

	flag.IntVar(&cfg.LookbackDays, "lookback", cfg.LookbackDays, "historical query span in days")
	flag.IntVar(&cfg.WindowCapacity, "capacity", cfg.WindowCapacity, "retained reading count")
	flag.IntVar(&cfg.AlertDwellMS, "dwell", cfg.AlertDwellMS, "alert dwell time in milliseconds")
	flag.StringVar(&cfg.HistoryURL, "history-url", cfg.HistoryURL, "historical query base URL")
	flag.StringVar(&cfg.Broker, "broker", cfg.Broker, "MQTT broker address")
	flag.StringVar(&cfg.Topic, "topic", cfg.Topic, "MQTT snapshot topic")
	flag.Parse()

	logger, logFile, err := openLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "soilmon: open log: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	src, err := source.NewRemote(source.Options{
		HistoryURL: cfg.HistoryURL,
		Broker:     cfg.Broker,
		Topic:      cfg.Topic,
		ClientID:   cfg.ClientID,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "soilmon: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	sess, err := session.New(ctx, cfg, src, logger)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "soilmon: %v\n", err)
		os.Exit(1)
	}
	defer sess.Close()

	p := tea.NewProgram(monitor.New(sess, cfg), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openLogger writes structured logs to a state file so the alternate
// screen stays clean while the TUI runs.
func openLogger() (*slog.Logger, *os.File, error) {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, fmt.Errorf("cannot find home dir: %w", err)
		}
		dir = filepath.Join(home, ".local", "state")
	}
	dir = filepath.Join(dir, "soilmon")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("cannot create state dir: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, "soilmon.log"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	handler := tint.NewHandler(f, &tint.Options{
		NoColor: true,
		Level:   slog.LevelInfo,
	})
	return slog.New(handler), f, nil
}
