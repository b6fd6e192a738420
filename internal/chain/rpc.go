package chain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	rpc "github.com/gorilla/rpc/v2/json2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RPCProvider talks JSON-RPC 2.0 over HTTP to an Ethereum node.
type RPCProvider struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// RPCOption configures an RPCProvider.
type RPCOption func(*RPCProvider)

// WithHTTPClient overrides the HTTP client (primarily for tests).
func WithHTTPClient(client *http.Client) RPCOption {
	return func(p *RPCProvider) {
		p.client = client
	}
}

// WithTimeout bounds every request. Zero disables the per-request timeout.
func WithTimeout(timeout time.Duration) RPCOption {
	return func(p *RPCProvider) {
		p.timeout = timeout
	}
}

// WithRateLimit throttles outgoing requests with a token bucket. A
// non-positive rate leaves requests unthrottled.
func WithRateLimit(ratePerSecond float64, burst int) RPCOption {
	return func(p *RPCProvider) {
		if ratePerSecond <= 0 {
			p.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
}

// WithLogger attaches a logger for request tracing at debug level.
func WithLogger(logger *zap.Logger) RPCOption {
	return func(p *RPCProvider) {
		p.logger = logger
	}
}

// NewRPCProvider creates a provider for the given endpoint URL.
func NewRPCProvider(endpoint string, opts ...RPCOption) *RPCProvider {
	p := &RPCProvider{
		endpoint: endpoint,
		client:   http.DefaultClient,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Endpoint returns the endpoint URL with any password redacted.
func (p *RPCProvider) Endpoint() string {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return p.endpoint
	}
	return u.Redacted()
}

// Accounts calls eth_accounts.
func (p *RPCProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := p.call(ctx, "eth_accounts", &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// ChainID calls eth_chainId.
func (p *RPCProvider) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := p.call(ctx, "eth_chainId", &id); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (p *RPCProvider) call(ctx context.Context, method string, reply interface{}) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: waiting for rate limiter: %w", method, err)
		}
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	requestBodyBytes, err := rpc.EncodeClientRequest(method, []interface{}{})
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request to %s: %w", method, p.Endpoint(), err)
	}
	defer cleanlyCloseBody(resp.Body)

	p.logger.Debug("json-rpc call",
		zap.String("method", method),
		zap.String("endpoint", p.Endpoint()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: %w: %d", method, ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := rpc.DecodeClientResponse(resp.Body, reply); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// cleanlyCloseBody drains the body before closing it so the connection can
// be reused.
func cleanlyCloseBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
