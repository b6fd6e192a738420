package task

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/eugenenazirov/chainbuild/internal/chain"
	"github.com/eugenenazirov/chainbuild/internal/config"
)

// Action is the body of a task.
type Action func(ctx context.Context, rt *Runtime) error

// Param declares a named string argument accepted by a task.
type Param struct {
	Name        string
	Description string
	Default     string
}

// Task is a named operation exposed by the registry.
type Task struct {
	Name        string
	Description string
	Params      []Param
	Action      Action
}

// ProviderResolver hands out chain providers by network name.
type ProviderResolver interface {
	Provider(network string) (chain.Provider, error)
}

// Runtime is the environment a task action runs in.
type Runtime struct {
	Config    config.Config
	Network   string
	Providers ProviderResolver
	Stdout    io.Writer
	Logger    *zap.Logger
	Args      map[string]string
}

// Provider returns the chain provider of the selected network.
func (rt *Runtime) Provider() (chain.Provider, error) {
	if rt.Providers == nil {
		return nil, ErrNoProvider
	}
	return rt.Providers.Provider(rt.Network)
}

// Arg returns the value of a task argument, or "" when unset.
func (rt *Runtime) Arg(name string) string {
	return rt.Args[name]
}
