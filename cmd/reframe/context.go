package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"reframe/internal/config"
	"reframe/internal/encoding"
	"reframe/internal/engine"
	"reframe/internal/history"
	"reframe/internal/logging"
	"reframe/internal/media/probe"
	"reframe/internal/notifications"
	"reframe/internal/preflight"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		OutputPaths: []string{
			"stderr",
			filepath.Join(cfg.Paths.LogDir, "reframe.log"),
		},
	})
}

// runtime bundles everything a conversion or diagnostic run needs. Building
// it acquires the single-run lock and loads the engine, so callers must Close
// it.
type runtime struct {
	cfg        *config.Config
	logger     *slog.Logger
	engine     *engine.Manager
	prober     *probe.Prober
	supervisor *encoding.Supervisor
	store      *history.Store
	notifier   notifications.Service
	lock       *flock.Flock
}

func (c *commandContext) buildRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	logger, err := c.newLogger(cfg)
	if err != nil {
		return nil, err
	}

	if results := preflight.RunAll(cfg); !preflight.AllPassed(results) {
		var failures []string
		for _, result := range results {
			if !result.Passed {
				failures = append(failures, fmt.Sprintf("%s: %s", result.Name, result.Detail))
			}
		}
		return nil, fmt.Errorf("preflight failed: %s", strings.Join(failures, "; "))
	}

	lock := flock.New(filepath.Join(cfg.Paths.StagingDir, "reframe.lock"))
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("another reframe run is in progress (lock at %s)", lock.Path())
	}

	ffmpeg := engine.NewFFmpeg(
		engine.WithBinary(cfg.FFmpegBinary()),
		engine.WithScratchDir(filepath.Join(cfg.Paths.StagingDir, "engine")),
	)
	manager := engine.NewManager(ffmpeg, logger)

	loadCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Engine.LoadTimeout)*time.Second)
	defer cancel()
	if err := manager.Load(loadCtx); err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	prober := probe.New(cfg.FFprobeBinary())
	estimator := encoding.Estimator{
		Floor:   time.Duration(cfg.Budget.FloorSeconds) * time.Second,
		Ceiling: time.Duration(cfg.Budget.CeilingSeconds) * time.Second,
	}
	supervisor := encoding.NewSupervisor(manager, prober, estimator, encoding.Mode(cfg.Engine.Mode), logger)

	store, err := history.Open(cfg)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	return &runtime{
		cfg:        cfg,
		logger:     logger,
		engine:     manager,
		prober:     prober,
		supervisor: supervisor,
		store:      store,
		notifier:   notifications.NewService(cfg),
		lock:       lock,
	}, nil
}

func (r *runtime) Close() {
	if r == nil {
		return
	}
	if r.store != nil {
		_ = r.store.Close()
	}
	if r.lock != nil {
		_ = r.lock.Unlock()
	}
}
