// Command check-counts prints the game counters of every configured chain
// and whether the chains agree on the total.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/logohunt-service/internal/aggregate"
	"github.com/yourorg/logohunt-service/internal/chain"
	"github.com/yourorg/logohunt-service/internal/config"
	"github.com/yourorg/logohunt-service/internal/security"
	"github.com/yourorg/logohunt-service/internal/validation"
)

func main() {
	wallet := flag.String("wallet", "", "Wallet to report the personal collection of (default: operator)")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	config.SetupLogging()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	who, err := resolveWallet(*wallet, cfg.PrivateKey)
	if err != nil {
		logrus.Fatalf("Invalid wallet: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	opts := chain.Options{ConfirmationTimeout: cfg.ConfirmationTimeout, RetryMax: cfg.RPCRetryMax}
	readers := make([]chain.Reader, 0, len(cfg.Chains))
	for _, desc := range cfg.Chains {
		// read-only: no operator key is attached
		ep, err := chain.Dial(ctx, desc, nil, opts)
		if err != nil {
			logrus.Fatalf("Failed to connect to %s: %v", desc.Name, err)
		}
		defer ep.Close()
		readers = append(readers, ep)
	}

	view, err := aggregate.New(readers, aggregate.WithReadTimeout(cfg.ReadTimeout)).UserStats(ctx, who)
	if err != nil {
		logrus.Fatalf("Failed to read counters: %v", err)
	}

	report := buildReport(view, who, cfg)
	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			logrus.Fatalf("Failed to encode report: %v", err)
		}
		return
	}
	report.Print(os.Stdout)
}

func resolveWallet(raw, privateKey string) (common.Address, error) {
	if raw != "" {
		return validation.ParseWallet(raw)
	}
	op, err := security.NewOperator(privateKey)
	if err != nil {
		return common.Address{}, err
	}
	return op.Address(), nil
}
