// Package types contains shared type definitions used across multiple packages
package types

import (
	"math"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
)

// SupportedChain is the configuration name of a network hosting the game contract
type SupportedChain string

// Networks known out of the box
const (
	ChainSepolia         SupportedChain = "sepolia"
	ChainArbitrumSepolia SupportedChain = "arbitrumSepolia"
)

// KnownChainIDs maps the built-in network names to their chain IDs
var KnownChainIDs = map[SupportedChain]uint64{
	ChainSepolia:         11155111,
	ChainArbitrumSepolia: 421614,
}

// ChainDescriptor describes one network hosting a copy of the contract.
// It is built once at startup and never mutated.
type ChainDescriptor struct {
	Name            string         `json:"name"`
	ChainID         uint64         `json:"chainId"`
	RPCEndpoint     string         `json:"-"`
	ContractAddress common.Address `json:"contractAddress"`
}

// Domain returns the bridge domain identifier for the chain.
// Hyperlane domains equal chain IDs for every network we deploy to.
func (d ChainDescriptor) Domain() uint32 {
	return uint32(d.ChainID)
}

// ValidDomain reports whether the chain ID fits a bridge domain
func (d ChainDescriptor) ValidDomain() bool {
	return d.ChainID > 0 && d.ChainID <= math.MaxUint32
}

// RPCHost returns the host part of the RPC URL so it can be logged without API keys
func (d ChainDescriptor) RPCHost() string {
	u, err := url.Parse(d.RPCEndpoint)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return u.Host
}
