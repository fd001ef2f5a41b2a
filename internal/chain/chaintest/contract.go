// Package chaintest provides an in-memory game contract implementing chain.Endpoint.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/yourorg/logohunt-service/internal/chain"
	"github.com/yourorg/logohunt-service/internal/model"
	"github.com/yourorg/logohunt-service/internal/types"
)

// Call records one Read or Write
type Call struct {
	Method string
	Args   []interface{}
	Value  *big.Int
}

// Contract simulates the game contract on one chain
type Contract struct {
	desc types.ChainDescriptor

	mu           sync.Mutex
	total        uint64
	participants uint64
	personal     map[common.Address]uint64
	quote        *big.Int
	failures     map[string]error
	delays       map[string]time.Duration
	reads        []Call
	writes       []Call
	nonce        uint64

	// AfterWrite runs after a successful findLogo while no lock is held.
	// Tests use it to simulate other writers advancing the counters.
	AfterWrite func(c *Contract)
}

var _ chain.Endpoint = (*Contract)(nil)

// NewContract creates an empty contract for a named chain
func NewContract(name string, chainID uint64) *Contract {
	return &Contract{
		desc: types.ChainDescriptor{
			Name:            name,
			ChainID:         chainID,
			RPCEndpoint:     "http://" + name + ".invalid",
			ContractAddress: common.BigToAddress(new(big.Int).SetUint64(chainID)),
		},
		personal: make(map[common.Address]uint64),
		quote:    big.NewInt(100_000_000_000_000),
		failures: make(map[string]error),
		delays:   make(map[string]time.Duration),
	}
}

// SetCounters sets the global counters
func (c *Contract) SetCounters(total, participants uint64) *Contract {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = total
	c.participants = participants
	return c
}

// SetPersonal sets one user's personal collection
func (c *Contract) SetPersonal(user common.Address, n uint64) *Contract {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.personal[user] = n
	return c
}

// SetQuote sets the dispatch fee returned by quoteDispatch
func (c *Contract) SetQuote(wei *big.Int) *Contract {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quote = wei
	return c
}

// Fail makes every call of method return err; an empty method fails every call
func (c *Contract) Fail(method string, err error) *Contract {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[method] = err
	return c
}

// Delay makes calls of method block for d or until ctx is done
func (c *Contract) Delay(method string, d time.Duration) *Contract {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delays[method] = d
	return c
}

// Descriptor implements chain.Reader
func (c *Contract) Descriptor() types.ChainDescriptor {
	return c.desc
}

// Read implements chain.Reader
func (c *Contract) Read(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	if err := c.before(ctx, method, types.KindRPC); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads = append(c.reads, Call{Method: method, Args: args})

	switch method {
	case chain.MethodLogosFound:
		return []interface{}{new(big.Int).SetUint64(c.total)}, nil
	case chain.MethodUniqueParticipants:
		return []interface{}{new(big.Int).SetUint64(c.participants)}, nil
	case chain.MethodPersonalCollection:
		user, err := addressArg(args, 0)
		if err != nil {
			return nil, types.NewError(types.KindRPC, c.desc.Name+"."+method, err)
		}
		return []interface{}{new(big.Int).SetUint64(c.personal[user])}, nil
	case chain.MethodQuoteDispatch:
		return []interface{}{new(big.Int).Set(c.quote)}, nil
	default:
		return nil, types.Errorf(types.KindRPC, c.desc.Name+"."+method, "execution reverted: unknown method")
	}
}

// Write implements chain.Endpoint. findLogo increments the counters like the real contract.
func (c *Contract) Write(ctx context.Context, method string, value *big.Int, args ...interface{}) (model.TransactionResult, error) {
	if err := c.before(ctx, method, types.KindTransaction); err != nil {
		return model.TransactionResult{}, err
	}

	c.mu.Lock()
	c.writes = append(c.writes, Call{Method: method, Args: args, Value: value})
	if method != chain.MethodFindLogo {
		c.mu.Unlock()
		return model.TransactionResult{}, types.Errorf(types.KindTransaction, c.desc.Name+"."+method, "execution reverted")
	}
	user, err := addressArg(args, 1)
	if err != nil {
		c.mu.Unlock()
		return model.TransactionResult{}, types.NewError(types.KindTransaction, c.desc.Name+"."+method, err)
	}
	if value == nil || value.Cmp(c.quote) < 0 {
		c.mu.Unlock()
		return model.TransactionResult{}, types.Errorf(types.KindTransaction, c.desc.Name+"."+method, "execution reverted: insufficient fee")
	}

	c.total++
	if c.personal[user] == 0 {
		c.participants++
	}
	c.personal[user]++
	c.nonce++
	hash := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s/%d", c.desc.Name, c.nonce)))
	hook := c.AfterWrite
	c.mu.Unlock()

	if hook != nil {
		hook(c)
	}
	return model.TransactionResult{Hash: hash.Hex(), Confirmed: true}, nil
}

// Bump simulates another writer finding n logos
func (c *Contract) Bump(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total += n
}

// Reads returns the recorded view calls
func (c *Contract) Reads() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.reads...)
}

// Writes returns the recorded write calls
func (c *Contract) Writes() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.writes...)
}

// CallCount returns the number of reads and writes issued
func (c *Contract) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reads) + len(c.writes)
}

func (c *Contract) before(ctx context.Context, method string, kind types.ErrorKind) error {
	c.mu.Lock()
	delay := c.delays[method]
	err := c.failures[method]
	if err == nil {
		err = c.failures[""]
	}
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return types.NewError(kind, c.desc.Name+"."+method, ctx.Err())
		}
	}
	if err != nil {
		return types.NewError(kind, c.desc.Name+"."+method, err)
	}
	return nil
}

func addressArg(args []interface{}, i int) (common.Address, error) {
	if len(args) <= i {
		return common.Address{}, errors.New("missing address argument")
	}
	addr, ok := args[i].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("argument %d is %T, want common.Address", i, args[i])
	}
	return addr, nil
}
