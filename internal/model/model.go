// Package model defines the core data structures for the logo hunt service.
package model

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// CollectionSnapshot is a point-in-time view of the counters on one chain.
// It is built per request and never cached.
type CollectionSnapshot struct {
	Personal     uint64 `json:"personal"`
	Total        uint64 `json:"total"`
	Participants uint64 `json:"participants"`
}

// ChainStats pairs a snapshot with the chain it was read from
type ChainStats struct {
	Chain    string             `json:"chain"`
	Snapshot CollectionSnapshot `json:"snapshot"`

	// Degraded is set when a read failed and the snapshot was zeroed
	Degraded bool `json:"degraded,omitempty"`
}

// StatsView is the merged result of reading every configured chain
type StatsView struct {
	Chains            []ChainStats `json:"chains"`
	TotalLogos        uint64       `json:"totalLogos"`
	TotalParticipants uint64       `json:"totalParticipants"`
	PersonalTotal     uint64       `json:"personalTotal"`
}

// DegradedChains lists the chains whose values were zeroed by a failed read
func (v StatsView) DegradedChains() []string {
	var out []string
	for _, c := range v.Chains {
		if c.Degraded {
			out = append(out, c.Chain)
		}
	}
	return out
}

// DiscoveryMessage is the payload dispatched to the destination chain
type DiscoveryMessage struct {
	Finder           common.Address
	NewTotalCount    *big.Int
	NewPersonalCount *big.Int
}

// NewDiscoveryMessage predicts the counters after one more discovery
func NewDiscoveryMessage(finder common.Address, currentTotal, currentPersonal *big.Int) DiscoveryMessage {
	one := big.NewInt(1)
	return DiscoveryMessage{
		Finder:           finder,
		NewTotalCount:    new(big.Int).Add(currentTotal, one),
		NewPersonalCount: new(big.Int).Add(currentPersonal, one),
	}
}

// Quote is the native fee for delivering one message
type Quote struct {
	AmountWei *big.Int
}

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Ether renders the quote in ether with at least one decimal place
func (q Quote) Ether() string {
	return FormatEther(q.AmountWei)
}

// Wei renders the quote as a base-10 wei string
func (q Quote) Wei() string {
	if q.AmountWei == nil {
		return "0"
	}
	return q.AmountWei.String()
}

// FormatEther converts a wei amount to a decimal ether string ("0.0", "0.0001", "1.5")
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0.0"
	}
	neg := wei.Sign() < 0
	whole, frac := new(big.Int).QuoRem(new(big.Int).Abs(wei), weiPerEther, new(big.Int))

	fracStr := frac.String()
	fracStr = strings.Repeat("0", 18-len(fracStr)) + fracStr
	fracStr = strings.TrimRight(fracStr, "0")
	if fracStr == "" {
		fracStr = "0"
	}

	out := whole.String() + "." + fracStr
	if neg {
		out = "-" + out
	}
	return out
}

// TransactionResult is the outcome of one confirmed write
type TransactionResult struct {
	Hash      string `json:"hash"`
	Confirmed bool   `json:"confirmed"`
}

// CollectResult is returned by a successful collect
type CollectResult struct {
	Wallet             common.Address    `json:"wallet"`
	Origin             string            `json:"origin"`
	Destination        string            `json:"destination"`
	TotalLogos         uint64            `json:"totalLogos"`
	PersonalCollection uint64            `json:"personalCollection"`
	Quote              Quote             `json:"-"`
	Transaction        TransactionResult `json:"transaction"`
}

// PlayerEntry is a leaderboard row. It is for display only.
type PlayerEntry struct {
	Address  common.Address    `json:"address"`
	PerChain map[string]uint64 `json:"perChain"`
	Total    uint64            `json:"total"`
}

// ShortAddress renders an address as 0x1234...abcd
func ShortAddress(addr common.Address) string {
	hex := addr.Hex()
	return hex[:6] + "..." + hex[len(hex)-4:]
}
