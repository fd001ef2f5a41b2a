// Package chain provides the single adapter through which the service talks to
// a network hosting the game contract.
package chain

import (
	"context"
	"math/big"

	"github.com/yourorg/logohunt-service/internal/model"
	"github.com/yourorg/logohunt-service/internal/types"
)

// Reader issues view calls against one chain's contract
type Reader interface {
	Descriptor() types.ChainDescriptor

	// Read calls a view method and returns its decoded outputs.
	// Failures are RpcFailure.
	Read(ctx context.Context, method string, args ...interface{}) ([]interface{}, error)
}

// Endpoint adds signed writes to a Reader
type Endpoint interface {
	Reader

	// Write submits a transaction carrying value and blocks until it is
	// confirmed. Failures are TransactionFailure.
	Write(ctx context.Context, method string, value *big.Int, args ...interface{}) (model.TransactionResult, error)
}

// ReadBig reads a method returning a single uint256
func ReadBig(ctx context.Context, r Reader, method string, args ...interface{}) (*big.Int, error) {
	out, err := r.Read(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, types.Errorf(types.KindRPC, method, "expected 1 output, got %d", len(out))
	}
	v, ok := out[0].(*big.Int)
	if !ok || v == nil {
		return nil, types.Errorf(types.KindRPC, method, "unexpected output type %T", out[0])
	}
	return v, nil
}

// ReadUint64 reads a counter method. Counters that do not fit uint64 are an error.
func ReadUint64(ctx context.Context, r Reader, method string, args ...interface{}) (uint64, error) {
	v, err := ReadBig(ctx, r, method, args...)
	if err != nil {
		return 0, err
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, types.Errorf(types.KindRPC, method, "counter %s out of range", v)
	}
	return v.Uint64(), nil
}
