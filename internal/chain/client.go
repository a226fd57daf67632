// Package chain is a stateless facade over a public EVM RPC endpoint. Every
// call reflects live network state, nothing is cached locally; nonce and fee
// values in particular must be fetched immediately before use.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
)

// RPCError is the distinct error class for endpoint failures (network
// timeout, malformed response, open circuit breaker), separate from
// transaction-logic errors so callers can decide independently whether to
// retry.
type RPCError struct {
	Op  string
	Err error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s failed: %v", e.Op, e.Err)
}

func (e *RPCError) Unwrap() error { return e.Err }

// FeeEstimate is the current EIP-1559 fee suggestion.
type FeeEstimate struct {
	GasTipCap *big.Int
	GasFeeCap *big.Int
}

type Client struct {
	eth *ethclient.Client
	rpc *rpc.Client
	cb  *gobreaker.CircuitBreaker
}

// Dial connects to the RPC endpoint. The connection is lazy for HTTP
// endpoints, so a bad URL surfaces on first use, not here.
func Dial(ctx context.Context, url string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial rpc endpoint")
	}

	return &Client{
		eth: ethclient.NewClient(rpcClient),
		rpc: rpcClient,
		cb:  newBreaker(),
	}, nil
}

func newBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "chain-rpc",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests > 10 && ratio >= 0.6
		},
	})
}

func (c *Client) Close() {
	c.eth.Close()
}

// BalanceAt returns the current balance of the address in wei.
func (c *Client) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.eth.BalanceAt(ctx, address, nil)
	})
	if err != nil {
		return nil, &RPCError{Op: "eth_getBalance", Err: err}
	}

	return res.(*big.Int), nil
}

// PendingNonceAt returns the next usable nonce for the address, including
// pending transactions.
func (c *Client) PendingNonceAt(ctx context.Context, address common.Address) (uint64, error) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.eth.PendingNonceAt(ctx, address)
	})
	if err != nil {
		return 0, &RPCError{Op: "eth_getTransactionCount", Err: err}
	}

	return res.(uint64), nil
}

// EstimateFees suggests EIP-1559 fee caps from the node's tip suggestion and
// the latest base fee.
func (c *Client) EstimateFees(ctx context.Context) (*FeeEstimate, error) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		tip, err := c.eth.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, err
		}

		head, err := c.eth.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, err
		}

		return &FeeEstimate{
			GasTipCap: tip,
			GasFeeCap: MaxFeePerGas(head.BaseFee, tip),
		}, nil
	})
	if err != nil {
		return nil, &RPCError{Op: "fee_estimate", Err: err}
	}

	return res.(*FeeEstimate), nil
}

// MaxFeePerGas computes the fee cap as 2*baseFee + tip, the headroom
// suggested by go-ethereum for inclusion across base fee swings. A nil base
// fee (pre-1559 endpoint) degrades to the tip alone.
func MaxFeePerGas(baseFee, tip *big.Int) *big.Int {
	if baseFee == nil {
		return new(big.Int).Set(tip)
	}

	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	return feeCap.Add(feeCap, tip)
}

// BroadcastRaw submits wire-format transaction bytes and returns the
// transaction hash as assigned by the network, not self-computed.
func (c *Client) BroadcastRaw(ctx context.Context, raw []byte) (common.Hash, error) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		var txHash common.Hash
		if err := c.rpc.CallContext(ctx, &txHash, "eth_sendRawTransaction", hexutil.Encode(raw)); err != nil {
			return nil, err
		}
		return txHash, nil
	})
	if err != nil {
		return common.Hash{}, &RPCError{Op: "eth_sendRawTransaction", Err: err}
	}

	return res.(common.Hash), nil
}
