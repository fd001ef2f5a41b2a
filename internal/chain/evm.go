package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/logohunt-service/internal/model"
	"github.com/yourorg/logohunt-service/internal/observability"
	"github.com/yourorg/logohunt-service/internal/otel"
	"github.com/yourorg/logohunt-service/internal/security"
	"github.com/yourorg/logohunt-service/internal/types"
)

// Backend is the node API the adapter needs. *ethclient.Client implements it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Options tune an EVMEndpoint
type Options struct {
	// ConfirmationTimeout bounds the wait for one confirmation after broadcast
	ConfirmationTimeout time.Duration

	// GasLimit overrides estimation when non-zero
	GasLimit uint64

	// RetryMax is the transport level retry count for RPC HTTP requests
	RetryMax int
}

// EVMEndpoint is the go-ethereum implementation of Endpoint
type EVMEndpoint struct {
	desc     types.ChainDescriptor
	backend  Backend
	contract *bind.BoundContract

	// nil for read-only endpoints
	auth *bind.TransactOpts

	confirmTimeout time.Duration
	gasLimit       uint64
	closeFn        func()
}

var _ Endpoint = (*EVMEndpoint)(nil)

// Dial connects to the chain's RPC endpoint. operator may be nil for a read-only endpoint.
func Dial(ctx context.Context, desc types.ChainDescriptor, operator *security.Operator, opts Options) (*EVMEndpoint, error) {
	if err := checkDescriptor(desc); err != nil {
		return nil, err
	}

	httpClient := StandardClient(newRetryClient(desc.Name, opts.RetryMax))
	rpcClient, err := rpc.DialOptions(ctx, desc.RPCEndpoint, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, types.Errorf(types.KindConfiguration, "dial "+desc.Name, "cannot dial rpc at %s: %v", desc.RPCHost(), err)
	}
	client := ethclient.NewClient(rpcClient)

	ep, err := NewEVMEndpoint(desc, client, operator, opts)
	if err != nil {
		client.Close()
		return nil, err
	}
	ep.closeFn = client.Close

	logrus.WithFields(logrus.Fields{
		"chain":    desc.Name,
		"chain_id": desc.ChainID,
		"rpc_host": desc.RPCHost(),
		"contract": desc.ContractAddress.Hex(),
	}).Info("Chain endpoint ready")
	return ep, nil
}

// NewEVMEndpoint binds the game contract on an existing backend
func NewEVMEndpoint(desc types.ChainDescriptor, backend Backend, operator *security.Operator, opts Options) (*EVMEndpoint, error) {
	if err := checkDescriptor(desc); err != nil {
		return nil, err
	}

	parsed, err := ParsedABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract abi: %w", err)
	}

	ep := &EVMEndpoint{
		desc:           desc,
		backend:        backend,
		contract:       bind.NewBoundContract(desc.ContractAddress, parsed, backend, backend, backend),
		confirmTimeout: opts.ConfirmationTimeout,
		gasLimit:       opts.GasLimit,
	}
	if ep.confirmTimeout <= 0 {
		ep.confirmTimeout = 3 * time.Minute
	}

	if operator != nil {
		ep.auth, err = operator.Transactor(desc.ChainID)
		if err != nil {
			return nil, types.NewError(types.KindConfiguration, "endpoint "+desc.Name, err)
		}
	}
	return ep, nil
}

func checkDescriptor(desc types.ChainDescriptor) error {
	op := "endpoint " + desc.Name
	if desc.RPCEndpoint == "" {
		return types.Errorf(types.KindConfiguration, op, "rpc url is required")
	}
	if desc.ContractAddress == (common.Address{}) {
		return types.Errorf(types.KindConfiguration, op, "contract address is required")
	}
	return nil
}

// Descriptor returns the chain this endpoint talks to
func (e *EVMEndpoint) Descriptor() types.ChainDescriptor {
	return e.desc
}

// Backend exposes the node client for log scanning
func (e *EVMEndpoint) Backend() Backend {
	return e.backend
}

// Read calls a view method on the contract
func (e *EVMEndpoint) Read(ctx context.Context, method string, args ...interface{}) (out []interface{}, err error) {
	ctx, span := otel.StartChainSpan(ctx, "chain.read", e.desc.Name, method)
	start := time.Now()
	defer func() {
		observability.RecordRead(e.desc.Name, method, time.Since(start).Seconds(), err)
		otel.EndSpan(span, err)
	}()

	if err = e.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, types.NewError(types.KindRPC, e.desc.Name+"."+method, err)
	}
	return out, nil
}

// Write signs and submits a transaction, then waits for one confirmation.
// Once the transaction is broadcast the wait is detached from ctx: a submitted
// transaction cannot be retracted, so only the confirmation timeout ends it.
func (e *EVMEndpoint) Write(ctx context.Context, method string, value *big.Int, args ...interface{}) (result model.TransactionResult, err error) {
	op := e.desc.Name + "." + method
	if e.auth == nil {
		return result, types.Errorf(types.KindTransaction, op, "endpoint has no operator key")
	}

	ctx, span := otel.StartChainSpan(ctx, "chain.write", e.desc.Name, method)
	defer func() { otel.EndSpan(span, err) }()

	opts := *e.auth
	opts.Context = ctx
	opts.Value = value
	if e.gasLimit > 0 {
		opts.GasLimit = e.gasLimit
	}

	tx, err := e.contract.Transact(&opts, method, args...)
	if err != nil {
		observability.RecordTransaction(e.desc.Name, "submit_failed")
		return result, types.NewError(types.KindTransaction, op, fmt.Errorf("submit: %w", err))
	}
	result.Hash = tx.Hash().Hex()

	log := logrus.WithFields(logrus.Fields{
		"chain":   e.desc.Name,
		"method":  method,
		"tx_hash": result.Hash,
		"value":   value,
	})
	log.Info("Transaction submitted, waiting for confirmation")

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.confirmTimeout)
	defer cancel()

	start := time.Now()
	receipt, err := bind.WaitMined(waitCtx, e.backend, tx)
	if err != nil {
		observability.RecordTransaction(e.desc.Name, "unconfirmed")
		log.WithError(err).Error("Transaction not confirmed")
		return result, types.NewError(types.KindTransaction, op,
			fmt.Errorf("transaction %s not confirmed within %s: %w", result.Hash, e.confirmTimeout, err))
	}
	observability.RecordConfirmationWait(e.desc.Name, time.Since(start).Seconds())

	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		observability.RecordTransaction(e.desc.Name, "reverted")
		log.WithField("block", receipt.BlockNumber).Error("Transaction reverted")
		return result, types.Errorf(types.KindTransaction, op, "transaction %s reverted in block %v", result.Hash, receipt.BlockNumber)
	}

	observability.RecordTransaction(e.desc.Name, "confirmed")
	log.WithField("block", receipt.BlockNumber).Info("Transaction confirmed")
	result.Confirmed = true
	return result, nil
}

// VerifyChainID checks that the node serves the configured chain
func (e *EVMEndpoint) VerifyChainID(ctx context.Context) error {
	id, err := e.backend.ChainID(ctx)
	if err != nil {
		return types.NewError(types.KindRPC, e.desc.Name+".chainId", err)
	}
	if !id.IsUint64() || id.Uint64() != e.desc.ChainID {
		return types.Errorf(types.KindConfiguration, "endpoint "+e.desc.Name,
			"node reports chain id %s, configured %d", id, e.desc.ChainID)
	}
	return nil
}

// Close releases the RPC connection
func (e *EVMEndpoint) Close() {
	if e.closeFn != nil {
		e.closeFn()
	}
}
