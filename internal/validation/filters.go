// Package validation checks user supplied wallet addresses and address lists
// before any network call is made.
package validation

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/logohunt-service/internal/types"
)

// ParseWallet validates a wallet address string.
// Mixed-case input must carry a correct EIP-55 checksum; all-lower and
// all-upper hex are accepted as is. The zero address is rejected.
func ParseWallet(raw string) (common.Address, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return common.Address{}, types.Errorf(types.KindInvalidInput, "parse wallet", "wallet address is required")
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, types.Errorf(types.KindInvalidInput, "parse wallet", "invalid wallet address %q", raw)
	}

	addr := common.HexToAddress(s)
	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if isMixedCase(body) && addr.Hex()[2:] != body {
		return common.Address{}, types.Errorf(types.KindInvalidInput, "parse wallet", "bad address checksum %q", raw)
	}
	if addr == (common.Address{}) {
		return common.Address{}, types.Errorf(types.KindInvalidInput, "parse wallet", "zero address is not a valid wallet")
	}
	return addr, nil
}

func isMixedCase(s string) bool {
	return strings.ToLower(s) != s && strings.ToUpper(s) != s
}

// ParseAddressList parses a comma separated address list, failing on the first bad entry
func ParseAddressList(raw string) ([]common.Address, error) {
	var out []common.Address
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		addr, err := ParseWallet(part)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return FilterAddresses(out), nil
}

// FilterAddresses drops zero and duplicate addresses, keeping first-seen order
func FilterAddresses(addrs []common.Address) []common.Address {
	seen := make(map[common.Address]struct{}, len(addrs))
	out := make([]common.Address, 0, len(addrs))
	dropped := 0
	for _, a := range addrs {
		if a == (common.Address{}) {
			dropped++
			continue
		}
		if _, ok := seen[a]; ok {
			dropped++
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	if dropped > 0 {
		logrus.Debugf("Filtered %d zero or duplicate addresses", dropped)
	}
	return out
}
