package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Deployment is one entry of the deployments file written by the deploy tooling
type Deployment struct {
	Address string `json:"address"`
	ChainID uint64 `json:"chainId"`
	Mailbox string `json:"mailbox,omitempty"`
}

// Deployments maps chain names to their deployment records
type Deployments map[string]Deployment

// LoadDeployments reads the deployments JSON file
func LoadDeployments(path string) (Deployments, error) {
	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deployments file: %w", err)
	}

	var d Deployments
	if err := json.Unmarshal(fileData, &d); err != nil {
		return nil, fmt.Errorf("failed to parse deployments file: %w", err)
	}
	if d == nil {
		d = Deployments{}
	}

	logrus.Infof("Loaded %d deployment records from %s", len(d), path)
	return d, nil
}

// Lookup finds a deployment by chain name, ignoring case.
// The deploy tooling writes "arbitrumsepolia" for the "arbitrumSepolia" chain.
func (d Deployments) Lookup(name string) (Deployment, bool) {
	if entry, ok := d[name]; ok && entry.Address != "" {
		return entry, true
	}
	for key, entry := range d {
		if strings.EqualFold(key, name) && entry.Address != "" {
			return entry, true
		}
	}
	return Deployment{}, false
}
