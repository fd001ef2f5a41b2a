// Package config provides configuration loading for the application.
//
// Load reads the environment exactly once. The returned Config is treated as
// immutable and passed by pointer to every component that needs it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/logohunt-service/internal/types"
	"github.com/yourorg/logohunt-service/internal/validation"
)

// DefaultChains is the chain list used when CHAINS is not set
const DefaultChains = "sepolia,arbitrumSepolia"

// Config holds all application configuration
type Config struct {
	// HTTP server port
	Port string

	// Hex encoded operator key used to sign findLogo transactions
	PrivateKey string

	// Chains in configuration order; the first is the default origin
	Chains []types.ChainDescriptor

	// Origin chain used when a collect request does not name one
	DefaultChain string

	// Where contract addresses are looked up when not set in the environment
	DeploymentsFile string

	// Timeouts for view calls and for write confirmation
	ReadTimeout         time.Duration
	ConfirmationTimeout time.Duration

	// Gas limit for findLogo; zero lets the node estimate
	GasLimit uint64

	// Transport level retries for RPC HTTP calls
	RPCRetryMax int

	// Leaderboard settings
	LeaderboardSize           int
	LeaderboardConcurrency    int
	LeaderboardCandidates     []common.Address
	LeaderboardLookbackBlocks uint64
	IncludeCollectedPlayers   bool

	// Postgres DSN for the receipt audit trail; empty disables it
	DatabaseURL string

	// OpenTelemetry endpoint for observability
	OtelEndpoint string

	// Rate limiting for POST /collect-logo
	RateLimitRPS   float64
	RateLimitBurst int

	// Per-chain circuit breaker settings
	CircuitFailureThreshold int
	CircuitResetDelay       time.Duration
}

// Load creates a new Config from environment variables and validates it.
// Missing contract addresses are reported as DeploymentDataMissing, every
// other problem as ConfigurationError.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                      GetEnvOrDefault("PORT", "8080"),
		PrivateKey:                strings.TrimSpace(GetEnvOrDefault("PRIVATE_KEY", "")),
		DefaultChain:              GetEnvOrDefault("DEFAULT_CHAIN", ""),
		DeploymentsFile:           GetEnvOrDefault("DEPLOYMENTS_FILE", "deployments/logohuntgame.json"),
		ReadTimeout:               GetEnvAsDuration("READ_TIMEOUT", 5*time.Second),
		ConfirmationTimeout:       GetEnvAsDuration("CONFIRMATION_TIMEOUT", 3*time.Minute),
		GasLimit:                  GetEnvAsUint("GAS_LIMIT", 0),
		RPCRetryMax:               GetEnvAsInt("RPC_HTTP_RETRIES", 0),
		LeaderboardSize:           GetEnvAsInt("LEADERBOARD_SIZE", 10),
		LeaderboardConcurrency:    GetEnvAsInt("LEADERBOARD_CONCURRENCY", 8),
		LeaderboardLookbackBlocks: GetEnvAsUint("LEADERBOARD_LOOKBACK_BLOCKS", 0),
		IncludeCollectedPlayers:   GetEnvAsBool("LEADERBOARD_INCLUDE_COLLECTED", false),
		DatabaseURL:               GetEnvOrDefault("DATABASE_URL", ""),
		OtelEndpoint:              GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		RateLimitRPS:              GetEnvAsFloat("RATE_LIMIT_RPS", 2.0),
		RateLimitBurst:            GetEnvAsInt("RATE_LIMIT_BURST", 5),
		CircuitFailureThreshold:   GetEnvAsInt("CIRCUIT_FAILURE_THRESHOLD", 3),
		CircuitResetDelay:         GetEnvAsDuration("CIRCUIT_RESET_DELAY", 30*time.Second),
	}

	if cfg.PrivateKey == "" {
		return nil, types.Errorf(types.KindConfiguration, "load config", "PRIVATE_KEY is required")
	}

	candidates, err := validation.ParseAddressList(GetEnvOrDefault("LEADERBOARD_CANDIDATES", ""))
	if err != nil {
		return nil, types.NewError(types.KindConfiguration, "LEADERBOARD_CANDIDATES", err)
	}
	cfg.LeaderboardCandidates = candidates

	var deployments Deployments
	names := splitList(GetEnvOrDefault("CHAINS", DefaultChains))
	for _, name := range names {
		chain, err := loadChain(name, cfg.DeploymentsFile, &deployments)
		if err != nil {
			return nil, err
		}
		cfg.Chains = append(cfg.Chains, chain)
	}

	if cfg.DefaultChain == "" && len(cfg.Chains) > 0 {
		cfg.DefaultChain = cfg.Chains[0].Name
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"chains":        cfg.ChainNames(),
		"default_chain": cfg.DefaultChain,
		"read_timeout":  cfg.ReadTimeout,
		"confirm_after": cfg.ConfirmationTimeout,
	}).Info("Configuration loaded")

	return cfg, nil
}

// loadChain resolves one chain from its prefixed environment variables,
// falling back to the deployments file for the contract address.
func loadChain(name, deploymentsFile string, deployments *Deployments) (types.ChainDescriptor, error) {
	prefix := EnvPrefix(name)
	op := "chain " + name

	rpcURL := strings.TrimSpace(GetEnvOrDefault(prefix+"_RPC_URL", ""))
	if rpcURL == "" {
		return types.ChainDescriptor{}, types.Errorf(types.KindConfiguration, op, "%s_RPC_URL is required", prefix)
	}

	chainID := types.KnownChainIDs[types.SupportedChain(name)]
	if raw, ok := GetEnv(prefix + "_CHAIN_ID"); ok && raw != "" {
		parsed, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return types.ChainDescriptor{}, types.Errorf(types.KindConfiguration, op, "invalid %s_CHAIN_ID: %v", prefix, err)
		}
		chainID = parsed
	}
	if chainID == 0 {
		return types.ChainDescriptor{}, types.Errorf(types.KindConfiguration, op, "%s_CHAIN_ID is required for unknown chain", prefix)
	}

	address := strings.TrimSpace(GetEnvOrDefault(prefix+"_CONTRACT_ADDRESS", ""))
	if address == "" {
		if *deployments == nil {
			loaded, err := LoadDeployments(deploymentsFile)
			if err != nil {
				return types.ChainDescriptor{}, types.NewError(types.KindDeploymentDataMissing, op, err)
			}
			*deployments = loaded
		}
		entry, ok := deployments.Lookup(name)
		if !ok {
			return types.ChainDescriptor{}, types.Errorf(types.KindDeploymentDataMissing, op,
				"no %s_CONTRACT_ADDRESS and no entry in %s; deploy the contract first", prefix, deploymentsFile)
		}
		address = entry.Address
	}
	if !common.IsHexAddress(address) {
		return types.ChainDescriptor{}, types.Errorf(types.KindConfiguration, op, "invalid contract address %q", address)
	}

	return types.ChainDescriptor{
		Name:            name,
		ChainID:         chainID,
		RPCEndpoint:     rpcURL,
		ContractAddress: common.HexToAddress(address),
	}, nil
}

// reservedChainName is the aggregate key in per-chain collection maps
const reservedChainName = "total"

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	const op = "validate config"
	if len(c.Chains) < 2 {
		return types.Errorf(types.KindConfiguration, op, "at least two chains are required, got %d", len(c.Chains))
	}

	names := make(map[string]struct{}, len(c.Chains))
	ids := make(map[uint64]string, len(c.Chains))
	for _, ch := range c.Chains {
		if strings.EqualFold(ch.Name, reservedChainName) {
			return types.Errorf(types.KindConfiguration, op, "%q is reserved and cannot name a chain", ch.Name)
		}
		if _, dup := names[ch.Name]; dup {
			return types.Errorf(types.KindConfiguration, op, "chain %s configured twice", ch.Name)
		}
		names[ch.Name] = struct{}{}
		if other, dup := ids[ch.ChainID]; dup {
			return types.Errorf(types.KindConfiguration, op, "chains %s and %s share chain id %d", other, ch.Name, ch.ChainID)
		}
		ids[ch.ChainID] = ch.Name
		if !ch.ValidDomain() {
			return types.Errorf(types.KindConfiguration, op, "chain id %d of %s does not fit a bridge domain", ch.ChainID, ch.Name)
		}
		if ch.ContractAddress == (common.Address{}) {
			return types.Errorf(types.KindConfiguration, op, "contract address for %s is the zero address", ch.Name)
		}
	}

	if _, ok := c.Chain(c.DefaultChain); !ok {
		return types.Errorf(types.KindConfiguration, op, "DEFAULT_CHAIN %q is not a configured chain", c.DefaultChain)
	}
	if c.ReadTimeout <= 0 || c.ConfirmationTimeout <= 0 {
		return types.Errorf(types.KindConfiguration, op, "timeouts must be positive")
	}
	if c.LeaderboardSize <= 0 || c.LeaderboardConcurrency <= 0 {
		return types.Errorf(types.KindConfiguration, op, "leaderboard size and concurrency must be positive")
	}
	if c.IncludeCollectedPlayers && c.DatabaseURL == "" {
		return types.Errorf(types.KindConfiguration, op, "LEADERBOARD_INCLUDE_COLLECTED requires DATABASE_URL")
	}
	if c.RPCRetryMax < 0 {
		return types.Errorf(types.KindConfiguration, op, "RPC_HTTP_RETRIES must not be negative")
	}
	return nil
}

// Chain returns the configured chain with the given name
func (c *Config) Chain(name string) (types.ChainDescriptor, bool) {
	for _, ch := range c.Chains {
		if ch.Name == name {
			return ch, true
		}
	}
	return types.ChainDescriptor{}, false
}

// ChainNames returns the configured chain names in order
func (c *Config) ChainNames() []string {
	names := make([]string, len(c.Chains))
	for i, ch := range c.Chains {
		names[i] = ch.Name
	}
	return names
}

// EnvPrefix turns a chain name into its environment prefix,
// e.g. "arbitrumSepolia" becomes "ARBITRUM_SEPOLIA".
func EnvPrefix(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		if r == '-' {
			r = '_'
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.Warnf("Invalid integer in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsUint retrieves an environment variable as an unsigned integer with a default value
func GetEnvAsUint(key string, defaultValue uint64) uint64 {
	if value, exists := GetEnv(key); exists {
		if uintValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintValue
		}
		logrus.Warnf("Invalid unsigned integer in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		logrus.Warnf("Invalid float in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		logrus.Warnf("Invalid boolean in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.Warnf("Invalid duration in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}

// String hides the private key when a Config is printed
func (c *Config) String() string {
	return fmt.Sprintf("Config{Port:%s Chains:%v DefaultChain:%s}", c.Port, c.ChainNames(), c.DefaultChain)
}
