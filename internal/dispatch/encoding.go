// Package dispatch encodes the cross-chain discovery payload and prices its delivery.
package dispatch

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/yourorg/logohunt-service/internal/model"
)

// discoveryArgs is the wire layout shared with the destination contract:
// abi.encode(address finder, uint256 newTotalCount, uint256 newPersonalCount).
// Reordering or resizing these fields breaks decoding on chain.
var discoveryArgs = mustArguments("address", "uint256", "uint256")

func mustArguments(typeNames ...string) abi.Arguments {
	args := make(abi.Arguments, 0, len(typeNames))
	for _, name := range typeNames {
		t, err := abi.NewType(name, "", nil)
		if err != nil {
			panic(fmt.Sprintf("dispatch: bad abi type %q: %v", name, err))
		}
		args = append(args, abi.Argument{Type: t})
	}
	return args
}

// EncodeDiscovery ABI-encodes a discovery message into 96 bytes
func EncodeDiscovery(msg model.DiscoveryMessage) ([]byte, error) {
	if msg.NewTotalCount == nil || msg.NewPersonalCount == nil {
		return nil, fmt.Errorf("discovery message has nil counters")
	}
	if msg.NewTotalCount.Sign() < 0 || msg.NewPersonalCount.Sign() < 0 {
		return nil, fmt.Errorf("discovery message has negative counters")
	}
	payload, err := discoveryArgs.Pack(msg.Finder, msg.NewTotalCount, msg.NewPersonalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to encode discovery message: %w", err)
	}
	return payload, nil
}
