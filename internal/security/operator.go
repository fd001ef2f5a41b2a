// Package security holds the operator identity used to sign write transactions.
package security

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/logohunt-service/internal/types"
)

// Operator is the single signing identity of the service
type Operator struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewOperator parses a hex encoded secp256k1 key, with or without 0x prefix
func NewOperator(hexKey string) (*Operator, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, types.Errorf(types.KindConfiguration, "operator key", "private key is empty")
	}

	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		// never echo the key material
		return nil, types.Errorf(types.KindConfiguration, "operator key", "invalid private key")
	}

	op := &Operator{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}
	logrus.Infof("Operator identity loaded: %s", op.address.Hex())
	return op, nil
}

// NewOperatorFromKey wraps an already parsed key
func NewOperatorFromKey(key *ecdsa.PrivateKey) *Operator {
	return &Operator{privateKey: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Address returns the operator's account address
func (o *Operator) Address() common.Address {
	return o.address
}

// Transactor returns signing options bound to one chain ID.
// Callers copy the returned value before setting per-call fields.
func (o *Operator) Transactor(chainID uint64) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(o.privateKey, new(big.Int).SetUint64(chainID))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor for chain %d: %w", chainID, err)
	}
	return opts, nil
}

// String never includes key material
func (o *Operator) String() string {
	return "Operator(" + o.address.Hex() + ")"
}
