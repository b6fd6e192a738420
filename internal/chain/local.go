package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// LocalAccounts serves accounts derived from configured private keys and
// delegates everything else to the wrapped provider.
type LocalAccounts struct {
	Provider
	addresses []common.Address
}

// NewLocalAccounts derives the addresses of the hex-encoded private keys,
// keeping their order.
func NewLocalAccounts(base Provider, keys []string) (*LocalAccounts, error) {
	addresses := make([]common.Address, 0, len(keys))
	for i, key := range keys {
		address, err := AddressFromKey(key)
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", i, err)
		}
		addresses = append(addresses, address)
	}
	return &LocalAccounts{Provider: base, addresses: addresses}, nil
}

// Accounts returns the configured accounts without contacting the node.
func (l *LocalAccounts) Accounts(ctx context.Context) ([]common.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]common.Address, len(l.addresses))
	copy(out, l.addresses)
	return out, nil
}

// AddressFromKey returns the address controlled by a hex private key, with
// or without the 0x prefix.
func AddressFromKey(key string) (common.Address, error) {
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(key), "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return crypto.PubkeyToAddress(priv.PublicKey), nil
}
