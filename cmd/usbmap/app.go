package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"

	"usbmap/internal/config"
	"usbmap/internal/logger"
	"usbmap/internal/repository"
	"usbmap/internal/repository/file"
	"usbmap/internal/repository/sqlite"
	"usbmap/internal/service"
)

// app carries what every command needs once global flags are applied
type app struct {
	opts       *Options
	cfg        *config.Config
	configPath string
	log        zerolog.Logger
}

// run loads configuration and logging, then hands over to the command.
func (a *app) run(cmd flags.Commander, args []string) error {
	if cmd == nil {
		return nil
	}

	var err error
	if a.opts.Config != "" {
		a.cfg, a.configPath, err = config.LoadFromPath(a.opts.Config)
	} else {
		a.cfg, a.configPath, err = config.Load()
	}
	if err != nil {
		return err
	}
	if a.opts.Store != "" {
		a.cfg.Store.Path = a.opts.Store
	}
	if a.opts.Output != "" {
		a.cfg.Output.Dir = a.opts.Output
	}

	if err := logger.Init(logger.Config{
		Level:  a.cfg.Logging.Level,
		Debug:  a.opts.Debug || a.cfg.Logging.Debug,
		Output: a.cfg.Logging.Output,
		Format: a.cfg.Logging.Format,
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	a.log = logger.WithComponent("cli")
	if a.configPath != "" {
		a.log.Debug().Str("config", a.configPath).Msg("configuration loaded")
	}

	return cmd.Execute(args)
}

// openStore opens the configured store, taking its session lock.
func (a *app) openStore() (repository.Store, error) {
	var (
		store repository.Store
		err   error
	)
	switch a.cfg.Store.Driver {
	case config.StoreSQLite:
		store, err = sqlite.New(a.cfg.Store.Path, sqlite.WithHistory(a.cfg.Store.History))
	default:
		store, err = file.New(a.cfg.Store.Path)
	}
	if errors.Is(err, repository.ErrLocked) {
		return nil, fmt.Errorf("%s is open in another usbmap session: %w", a.cfg.Store.Path, err)
	}
	return store, err
}

// session opens the store and a session over it. The caller closes it.
func (a *app) session(ctx context.Context) (*service.Session, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	s, err := service.Open(ctx, store, a.cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// withSession runs fn in a session and checkpoints afterwards if it succeeded.
func (a *app) withSession(fn func(ctx context.Context, s *service.Session) error) error {
	ctx := context.Background()
	s, err := a.session(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(ctx, s); err != nil {
		return err
	}
	return s.Checkpoint(ctx)
}
