package chain

import (
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const maxDeriveAttempts = 8

// DevNet is the in-memory development chain. Its accounts are derived from a
// seed, so the same seed and count always yield the same addresses.
type DevNet struct {
	chainID   uint64
	addresses []common.Address
	balances  map[common.Address]*big.Int
}

// NewDevNet derives count accounts from seed, each funded with balance wei.
func NewDevNet(chainID uint64, count int, seed string, balance *big.Int) (*DevNet, error) {
	if count < 0 {
		return nil, fmt.Errorf("account count must be >= 0, got %d", count)
	}
	if seed == "" {
		return nil, errors.New("seed cannot be empty")
	}
	if balance == nil {
		balance = new(big.Int)
	}

	d := &DevNet{
		chainID:   chainID,
		addresses: make([]common.Address, 0, count),
		balances:  make(map[common.Address]*big.Int, count),
	}
	for i := 0; i < count; i++ {
		key, err := deriveKey([]byte(seed), uint32(i))
		if err != nil {
			return nil, fmt.Errorf("derive account %d: %w", i, err)
		}
		address := crypto.PubkeyToAddress(key.PublicKey)
		d.addresses = append(d.addresses, address)
		d.balances[address] = new(big.Int).Set(balance)
	}
	return d, nil
}

// Accounts returns the derived accounts in derivation order.
func (d *DevNet) Accounts(ctx context.Context) ([]common.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]common.Address, len(d.addresses))
	copy(out, d.addresses)
	return out, nil
}

func (d *DevNet) ChainID(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return d.chainID, nil
}

// Balance returns a copy of the balance of address; unknown addresses hold zero.
func (d *DevNet) Balance(address common.Address) *big.Int {
	if balance, ok := d.balances[address]; ok {
		return new(big.Int).Set(balance)
	}
	return new(big.Int)
}

// BlockNumber is always zero: the development chain never mines.
func (d *DevNet) BlockNumber() uint64 {
	return 0
}

// deriveKey hashes seed and index into a secp256k1 key, rehashing in the
// unlikely case the digest is not a valid scalar.
func deriveKey(seed []byte, index uint32) (*ecdsa.PrivateKey, error) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], index)
	digest := crypto.Keccak256(seed, buf[:])

	var lastErr error
	for attempt := 0; attempt < maxDeriveAttempts; attempt++ {
		key, err := crypto.ToECDSA(digest)
		if err == nil {
			return key, nil
		}
		lastErr = err
		digest = crypto.Keccak256(digest)
	}
	return nil, lastErr
}
