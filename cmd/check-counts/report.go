package main

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yourorg/logohunt-service/internal/config"
	"github.com/yourorg/logohunt-service/internal/model"
)

// ChainReport is the counter set of one chain
type ChainReport struct {
	Chain        string `json:"chain"`
	Contract     string `json:"contract"`
	Total        uint64 `json:"total"`
	Participants uint64 `json:"participants"`
	Personal     uint64 `json:"personal"`
	Unreachable  bool   `json:"unreachable,omitempty"`
}

// Report is printed by check-counts
type Report struct {
	Wallet     string        `json:"wallet"`
	Chains     []ChainReport `json:"chains"`
	InSync     bool          `json:"inSync"`
	Difference uint64        `json:"difference"`
}

func buildReport(view model.StatsView, wallet common.Address, cfg *config.Config) Report {
	r := Report{Wallet: wallet.Hex()}
	for _, c := range view.Chains {
		cr := ChainReport{
			Chain:        c.Chain,
			Total:        c.Snapshot.Total,
			Participants: c.Snapshot.Participants,
			Personal:     c.Snapshot.Personal,
			Unreachable:  c.Degraded,
		}
		if desc, ok := cfg.Chain(c.Chain); ok {
			cr.Contract = desc.ContractAddress.Hex()
		}
		r.Chains = append(r.Chains, cr)
	}
	r.InSync, r.Difference = syncStatus(r.Chains)
	return r
}

// syncStatus compares the totals of reachable chains. Messages in flight on
// the bridge show up as a temporary difference.
func syncStatus(chains []ChainReport) (bool, uint64) {
	var (
		lo, hi uint64
		seen   bool
	)
	for _, c := range chains {
		if c.Unreachable {
			continue
		}
		if !seen || c.Total < lo {
			lo = c.Total
		}
		if !seen || c.Total > hi {
			hi = c.Total
		}
		seen = true
	}
	return hi == lo, hi - lo
}

// Print renders the report for a terminal
func (r Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Logo Hunt - cross-chain counts\n\n")
	for _, c := range r.Chains {
		if c.Unreachable {
			fmt.Fprintf(w, "%s: unreachable\n\n", c.Chain)
			continue
		}
		fmt.Fprintf(w, "%s: %d logos found\n", c.Chain, c.Total)
		fmt.Fprintf(w, "   Unique participants: %d\n", c.Participants)
		fmt.Fprintf(w, "   Collection of %s: %d\n", r.Wallet, c.Personal)
		fmt.Fprintf(w, "   Contract: %s\n\n", c.Contract)
	}
	if r.InSync {
		fmt.Fprintf(w, "Counts are in sync\n")
		return
	}
	fmt.Fprintf(w, "Counts are not in sync, difference: %d\n", r.Difference)
	fmt.Fprintf(w, "Cross-chain messages may still be in flight\n")
}
