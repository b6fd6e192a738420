package application

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/eugenenazirov/chainbuild/internal/builtin"
	"github.com/eugenenazirov/chainbuild/internal/config"
	"github.com/eugenenazirov/chainbuild/internal/network"
	"github.com/eugenenazirov/chainbuild/internal/task"
)

// ConfigFileName is the project configuration file looked up by
// DiscoverConfigFile.
const ConfigFileName = "chainbuild.yaml"

// App encapsulates the dependencies a task run needs.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	networks *network.Registry
	tasks    *task.Registry
	stdout   io.Writer
}

// Option customizes an App.
type Option func(*App)

// WithStdout sets the writer tasks print to. Defaults to os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(a *App) {
		a.stdout = w
	}
}

// NewTaskRegistry returns a registry holding every built-in task.
func NewTaskRegistry() (*task.Registry, error) {
	tasks := task.NewRegistry()
	if _, err := builtin.RegisterAll(tasks); err != nil {
		return nil, fmt.Errorf("register built-in tasks: %w", err)
	}
	return tasks, nil
}

// New initializes the application from the provided configuration. A nil
// task registry is replaced by NewTaskRegistry.
func New(cfg config.Config, logger *zap.Logger, tasks *task.Registry, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tasks == nil {
		var err error
		if tasks, err = NewTaskRegistry(); err != nil {
			return nil, err
		}
	}

	app := &App{
		cfg:      cfg,
		logger:   logger,
		networks: network.NewRegistry(cfg, logger),
		tasks:    tasks,
		stdout:   os.Stdout,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app, nil
}

// Tasks returns the registered tasks ordered by name.
func (a *App) Tasks() []task.Task {
	return a.tasks.Tasks()
}

// Networks returns the network registry backing task providers.
func (a *App) Networks() *network.Registry {
	return a.networks
}

// Run executes the named task against the default network.
func (a *App) Run(ctx context.Context, name string, args map[string]string) error {
	rt := &task.Runtime{
		Config:    a.cfg,
		Network:   a.cfg.DefaultNetwork,
		Providers: a.networks,
		Stdout:    a.stdout,
		Logger:    a.logger.With(zap.String("task", name)),
		Args:      args,
	}
	return a.tasks.Run(ctx, name, rt)
}

// DiscoverConfigFile walks up from start looking for ConfigFileName and
// returns its path.
func DiscoverConfigFile(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s from %s", ConfigFileName, start)
}
