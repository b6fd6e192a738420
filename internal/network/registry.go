// Package network resolves configured network names to chain providers.
package network

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/eugenenazirov/chainbuild/internal/chain"
	"github.com/eugenenazirov/chainbuild/internal/config"
)

// ErrUnknownNetwork is returned for names missing from the configuration.
var ErrUnknownNetwork = errors.New("unknown network")

// Registry builds providers lazily and caches one per network. It is safe
// for concurrent use.
type Registry struct {
	networks   map[string]config.Network
	devnet     config.DevNet
	rpc        config.RPC
	logger     *zap.Logger
	httpClient *http.Client

	mu        sync.RWMutex
	providers map[string]chain.Provider
	dev       *chain.DevNet
}

// Option configures a Registry.
type Option func(*Registry)

// WithHTTPClient sets the HTTP client used by JSON-RPC providers.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Registry) {
		r.httpClient = client
	}
}

// NewRegistry copies the network settings out of cfg.
func NewRegistry(cfg config.Config, logger *zap.Logger, opts ...Option) *Registry {
	networks := make(map[string]config.Network, len(cfg.Networks))
	for name, n := range cfg.Networks {
		n.Accounts = append([]string(nil), n.Accounts...)
		networks[name] = n
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Registry{
		networks:   networks,
		devnet:     cfg.DevNet,
		rpc:        cfg.RPC,
		logger:     logger,
		httpClient: http.DefaultClient,
		providers:  make(map[string]chain.Provider),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Names returns the known network names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.networks))
	for name := range r.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the settings of a network.
func (r *Registry) Lookup(name string) (config.Network, bool) {
	n, ok := r.networks[name]
	return n, ok
}

// Provider returns the cached provider for name, creating it on first use.
func (r *Registry) Provider(name string) (chain.Provider, error) {
	r.mu.RLock()
	p, ok := r.providers[name]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	n, ok := r.networks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	p, err := r.newProvider(name, n)
	if err != nil {
		return nil, err
	}
	r.providers[name] = p
	return p, nil
}

// DevNet returns the in-memory development chain.
func (r *Registry) DevNet() (*chain.DevNet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.devNetLocked()
}

func (r *Registry) devNetLocked() (*chain.DevNet, error) {
	if r.dev != nil {
		return r.dev, nil
	}
	dev, err := chain.NewDevNet(r.devnet.ChainID, r.devnet.Accounts, r.devnet.Seed, r.devnet.Balance)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", config.DevNetwork, err)
	}
	r.dev = dev
	return dev, nil
}

// newProvider must be called with r.mu held.
func (r *Registry) newProvider(name string, n config.Network) (chain.Provider, error) {
	if n.InMemory {
		return r.devNetLocked()
	}

	timeout := n.Timeout
	if timeout == 0 {
		timeout = r.rpc.Timeout
	}
	rpcProvider := chain.NewRPCProvider(n.URL,
		chain.WithHTTPClient(r.httpClient),
		chain.WithTimeout(timeout),
		chain.WithRateLimit(r.rpc.RateLimitRPS, r.rpc.RateLimitBurst),
		chain.WithLogger(r.logger.With(zap.String("network", name))),
	)
	if len(n.Accounts) == 0 {
		return rpcProvider, nil
	}

	local, err := chain.NewLocalAccounts(rpcProvider, n.Accounts)
	if err != nil {
		return nil, fmt.Errorf("network %s: %w", name, err)
	}
	return local, nil
}
