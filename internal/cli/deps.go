package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lucasnoah/hirepipe/internal/board"
	"github.com/lucasnoah/hirepipe/internal/collab"
	"github.com/lucasnoah/hirepipe/internal/config"
	"github.com/lucasnoah/hirepipe/internal/db"
	"github.com/lucasnoah/hirepipe/internal/events"
	"github.com/lucasnoah/hirepipe/internal/reports"
	"github.com/lucasnoah/hirepipe/internal/session"
)

// openDB opens and migrates the configured database, returning it with a
// cleanup func.
func openDB() (*db.DB, func(), error) {
	if cfg.Database.Driver == db.DriverSQLite {
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}
	d, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, nil, err
	}
	return d, func() { d.Close() }, nil
}

// openActions returns the configured collaborator.
func openActions() (collab.Actions, func(), error) {
	if cfg.Collaborator.Mode == config.ModeHTTP {
		c := collab.NewClient(cfg.Collaborator.BaseURL, cfg.Collaborator.Token, cfg.Collaborator.TimeoutDuration())
		return c, func() {}, nil
	}
	d, cleanup, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	return collab.NewLocal(d, cfg.Board.Actor), cleanup, nil
}

// boardSession bundles everything a board-driving command needs.
type boardSession struct {
	board   *board.Board
	broker  *events.Broker
	reports *reports.Store
}

// openBoard takes the operator lock, connects the collaborator and event
// publishers, and loads the board.
func openBoard(ctx context.Context) (*boardSession, func(), error) {
	if err := requireValid(); err != nil {
		return nil, nil, err
	}
	home, err := config.HomeDir()
	if err != nil {
		return nil, nil, err
	}
	lock, err := session.Acquire(home)
	if err != nil {
		return nil, nil, err
	}
	cleanups := []func(){func() { _ = lock.Release() }}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	actions, closeActions, err := openActions()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, closeActions)

	broker := events.NewBroker(0)
	publishers := events.Fanout{broker}
	if cfg.Events.RedisURL != "" {
		rdb, err := events.NewRedisClient(ctx, cfg.Events.RedisURL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		rp := events.NewRedisPublisher(rdb, cfg.Events.ChannelPrefix)
		cleanups = append(cleanups, func() { _ = rp.Close() })
		publishers = append(publishers, rp)
	}

	store := reports.NewStore(cfg.Reports.Dir)
	b := board.New(actions, board.Options{
		Actor:            cfg.Board.Actor,
		ConcurrencyLimit: cfg.Board.ConcurrencyLimit,
		Publisher:        publishers,
		Reports:          store,
	})
	if err := b.Refresh(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	zap.S().Named("cli").Debugw("board loaded", "mode", cfg.Collaborator.Mode, "applications", len(b.Applications()))
	return &boardSession{board: b, broker: broker, reports: store}, cleanup, nil
}
