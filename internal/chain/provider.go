// Package chain provides the chain-interaction capabilities used by tasks:
// listing signing accounts and reading the chain ID, either from a JSON-RPC
// endpoint, from locally configured private keys or from the in-memory
// development chain.
package chain

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrUnexpectedStatus is returned when an endpoint answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	// ErrInvalidKey is returned for malformed private keys.
	ErrInvalidKey = errors.New("invalid private key")
)

var (
	_ Provider = (*RPCProvider)(nil)
	_ Provider = (*LocalAccounts)(nil)
	_ Provider = (*DevNet)(nil)
)

// Provider describes the chain access required by tasks.
type Provider interface {
	// Accounts returns the signing accounts in a stable order.
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (uint64, error)
}
