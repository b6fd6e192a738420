package builtin

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"go.uber.org/zap"

	"github.com/eugenenazirov/chainbuild/internal/config"
	"github.com/eugenenazirov/chainbuild/internal/node"
	"github.com/eugenenazirov/chainbuild/internal/task"
)

// NodeTask is the name of the development node task.
const NodeTask = "node"

var weiPerEther = new(big.Float).SetInt(big.NewInt(1_000_000_000_000_000_000))

// RegisterNode registers the task serving the in-memory network over
// JSON-RPC until the run context is cancelled.
func RegisterNode(registry *task.Registry) (task.Task, error) {
	t := task.Task{
		Name:        NodeTask,
		Description: "Starts a JSON-RPC server on top of the in-memory network",
		Params: []task.Param{
			{Name: "hostname", Description: "Host to listen on (defaults to node.host)"},
			{Name: "port", Description: "Port to listen on (defaults to node.port)"},
		},
		Action: runNode,
	}
	if err := registry.Register(t); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func runNode(ctx context.Context, rt *task.Runtime) error {
	cfg := rt.Config.Node
	if host := rt.Arg("hostname"); host != "" {
		cfg.Host = host
	}
	if raw := rt.Arg("port"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port < 0 || port > 65535 {
			return fmt.Errorf("invalid port %q", raw)
		}
		cfg.Port = port
	}

	if rt.Providers == nil {
		return task.ErrNoProvider
	}
	provider, err := rt.Providers.Provider(config.DevNetwork)
	if err != nil {
		return err
	}
	dev, ok := provider.(node.Chain)
	if !ok {
		return fmt.Errorf("%s provider %T cannot be served", config.DevNetwork, provider)
	}

	server, err := node.New(cfg, dev, rt.Logger)
	if err != nil {
		return err
	}
	ln, err := server.Listen()
	if err != nil {
		return err
	}

	// The banner is printed even when ctx is already done.
	accounts, err := dev.Accounts(context.WithoutCancel(ctx))
	if err != nil {
		_ = ln.Close()
		return err
	}
	fmt.Fprintf(rt.Stdout, "Started JSON-RPC server at http://%s/\n\nAccounts\n========\n", ln.Addr())
	for i, account := range accounts {
		fmt.Fprintf(rt.Stdout, "Account #%d: %s (%s ETH)\n", i, account.Hex(), formatEther(dev.Balance(account)))
	}

	rt.Logger.Info("node started", zap.Int("accounts", len(accounts)))
	return server.Serve(ctx, ln)
}

func formatEther(wei *big.Int) string {
	ether := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEther)
	return ether.Text('f', -1)
}
