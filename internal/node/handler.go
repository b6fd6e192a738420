package node

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	rpc "github.com/gorilla/rpc/v2/json2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/chainbuild/internal/chain"
)

// ClientVersion is reported by web3_clientVersion.
const ClientVersion = "chainbuild/v0.1.0"

const maxBodyBytes = 1 << 20

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Chain is the state served over JSON-RPC.
type Chain interface {
	chain.Provider
	Balance(address common.Address) *big.Int
	BlockNumber() uint64
}

type methodFunc func(ctx context.Context, params json.RawMessage) (interface{}, *rpc.Error)

// Handler serves the JSON-RPC and health endpoints for a Chain.
type Handler struct {
	chain   Chain
	logger  *zap.Logger
	metrics *Metrics
	methods map[string]methodFunc

	clock   func() time.Time
	started time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithMetrics records every JSON-RPC call in m.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler constructs a Handler for the provided chain.
func NewHandler(c Chain, logger *zap.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		chain:  c,
		logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.started = h.clock()
	h.methods = map[string]methodFunc{
		"eth_accounts":       h.ethAccounts,
		"eth_chainId":        h.ethChainID,
		"net_version":        h.netVersion,
		"web3_clientVersion": h.clientVersion,
		"eth_blockNumber":    h.blockNumber,
		"eth_getBalance":     h.getBalance,
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
		Uptime:    h.clock().Sub(h.started).String(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRPC(w http.ResponseWriter, r *http.Request) {
	var body bytes.Buffer
	if _, err := body.ReadFrom(http.MaxBytesReader(w, r.Body, maxBodyBytes)); err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope(nil, rpc.E_INVALID_REQ, "request body too large"))
		return
	}

	raw := bytes.TrimSpace(body.Bytes())
	if len(raw) > 0 && raw[0] == '[' {
		h.handleBatch(r.Context(), w, raw)
		return
	}

	resp, ok := h.dispatch(r.Context(), raw)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleBatch(ctx context.Context, w http.ResponseWriter, raw []byte) {
	var batch []json.RawMessage
	if err := json.Unmarshal(raw, &batch); err != nil {
		h.metrics.observe("", rpc.E_PARSE)
		writeJSON(w, http.StatusOK, errorEnvelope(nil, rpc.E_PARSE, "parse error"))
		return
	}
	if len(batch) == 0 {
		h.metrics.observe("", rpc.E_INVALID_REQ)
		writeJSON(w, http.StatusOK, errorEnvelope(nil, rpc.E_INVALID_REQ, "empty batch"))
		return
	}

	responses := make([]rpcResponse, 0, len(batch))
	for _, item := range batch {
		if resp, ok := h.dispatch(ctx, item); ok {
			responses = append(responses, resp)
		}
	}
	if len(responses) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

// dispatch runs one request. It reports false for notifications, which get
// no response.
func (h *Handler) dispatch(ctx context.Context, raw []byte) (rpcResponse, bool) {
	var req rpcRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		if json.Valid(raw) {
			h.metrics.observe("", rpc.E_INVALID_REQ)
			return errorEnvelope(nil, rpc.E_INVALID_REQ, "invalid request"), true
		}
		h.metrics.observe("", rpc.E_PARSE)
		return errorEnvelope(nil, rpc.E_PARSE, "parse error"), true
	}
	if req.Version != "2.0" || req.Method == "" {
		h.metrics.observe("", rpc.E_INVALID_REQ)
		return errorEnvelope(req.ID, rpc.E_INVALID_REQ, "invalid request"), true
	}

	method, ok := h.methods[req.Method]
	if !ok {
		h.metrics.observe("", rpc.E_NO_METHOD)
		return errorEnvelope(req.ID, rpc.E_NO_METHOD, "the method "+req.Method+" does not exist/is not available"), req.ID != nil
	}

	result, rpcErr := method(ctx, req.Params)
	if rpcErr != nil {
		h.metrics.observe(req.Method, rpcErr.Code)
		return rpcResponse{Version: "2.0", Error: rpcErr, ID: idOrNull(req.ID)}, req.ID != nil
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		h.logger.Error("encode result", zap.String("method", req.Method), zap.Error(err))
		h.metrics.observe(req.Method, rpc.E_INTERNAL)
		return errorEnvelope(req.ID, rpc.E_INTERNAL, "internal error"), req.ID != nil
	}
	h.metrics.observe(req.Method, 0)
	return rpcResponse{Version: "2.0", Result: encoded, ID: idOrNull(req.ID)}, req.ID != nil
}

func (h *Handler) ethAccounts(ctx context.Context, _ json.RawMessage) (interface{}, *rpc.Error) {
	accounts, err := h.chain.Accounts(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	return accounts, nil
}

func (h *Handler) ethChainID(ctx context.Context, _ json.RawMessage) (interface{}, *rpc.Error) {
	id, err := h.chain.ChainID(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	return hexutil.Uint64(id), nil
}

func (h *Handler) netVersion(ctx context.Context, _ json.RawMessage) (interface{}, *rpc.Error) {
	id, err := h.chain.ChainID(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	return strconv.FormatUint(id, 10), nil
}

func (h *Handler) clientVersion(context.Context, json.RawMessage) (interface{}, *rpc.Error) {
	return ClientVersion, nil
}

func (h *Handler) blockNumber(context.Context, json.RawMessage) (interface{}, *rpc.Error) {
	return hexutil.Uint64(h.chain.BlockNumber()), nil
}

func (h *Handler) getBalance(_ context.Context, params json.RawMessage) (interface{}, *rpc.Error) {
	var args []json.RawMessage
	if err := json.Unmarshal(params, &args); err != nil || len(args) == 0 || len(args) > 2 {
		return nil, &rpc.Error{Code: rpc.E_BAD_PARAMS, Message: "expected [address, block]"}
	}
	var address common.Address
	if err := json.Unmarshal(args[0], &address); err != nil {
		return nil, &rpc.Error{Code: rpc.E_BAD_PARAMS, Message: "invalid address: " + err.Error()}
	}
	return (*hexutil.Big)(h.chain.Balance(address)), nil
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type rpcRequest struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

type rpcResponse struct {
	Version string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpc.Error      `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

func errorEnvelope(id json.RawMessage, code rpc.ErrorCode, message string) rpcResponse {
	return rpcResponse{
		Version: "2.0",
		Error:   &rpc.Error{Code: code, Message: message},
		ID:      idOrNull(id),
	}
}

func internalError(err error) *rpc.Error {
	return &rpc.Error{Code: rpc.E_INTERNAL, Message: err.Error()}
}

func idOrNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}
