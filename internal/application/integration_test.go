package application

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/chainbuild/internal/config"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var startedPattern = regexp.MustCompile(`Started JSON-RPC server at (http://[^/\s]+)/`)

// startNode runs the node task in the background and returns its endpoint.
func startNode(t *testing.T, cfg config.Config) (*App, string) {
	t.Helper()

	out := &lockedBuffer{}
	app, err := New(cfg, zaptest.NewLogger(t), nil, WithStdout(out))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx, "node", map[string]string{"hostname": "127.0.0.1", "port": "0"})
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("node task returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("node task did not stop")
		}
	})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if m := startedPattern.FindStringSubmatch(out.String()); m != nil {
			return app, m[1]
		}
		select {
		case err := <-done:
			t.Fatalf("node task exited early: %v", err)
		case <-time.After(10 * time.Millisecond):
		}
	}
	t.Fatalf("node did not report its address, output %q", out.String())
	return nil, ""
}

func TestIntegrationAccountsOverJSONRPC(t *testing.T) {
	nodeCfg := config.Default(t.TempDir())
	nodeCfg.DevNet.Accounts = 5
	nodeCfg.Node.ShutdownGracePeriod = time.Second
	nodeApp, endpoint := startNode(t, nodeCfg)

	resp, err := http.Get(endpoint + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || health.Status != "ok" {
		t.Fatalf("unexpected health response %d %+v", resp.StatusCode, health)
	}

	clientCfg := config.Default(t.TempDir())
	clientCfg.DefaultNetwork = config.LocalhostNetwork
	clientCfg.Networks = map[string]config.Network{
		config.DevNetwork:       {ChainID: 31337, InMemory: true},
		config.LocalhostNetwork: {URL: endpoint},
	}

	var out bytes.Buffer
	clientApp, err := New(clientCfg, zaptest.NewLogger(t), nil, WithStdout(&out))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := clientApp.Run(context.Background(), "accounts", nil); err != nil {
		t.Fatalf("accounts over JSON-RPC returned error: %v", err)
	}

	dev, err := nodeApp.Networks().DevNet()
	if err != nil {
		t.Fatalf("DevNet returned error: %v", err)
	}
	expected, err := dev.Accounts(context.Background())
	if err != nil {
		t.Fatalf("Accounts returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != len(expected) {
		t.Fatalf("expected %d accounts, got %q", len(expected), out.String())
	}
	for i, account := range expected {
		if lines[i] != account.Hex() {
			t.Fatalf("account %d: expected %s, got %s", i, account.Hex(), lines[i])
		}
	}

	resp, err = http.Get(endpoint + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(body), `chainbuild_node_rpc_requests_total{code="0",method="eth_accounts"} 1`) {
		t.Fatalf("expected eth_accounts to be counted, got:\n%s", body)
	}
}
