package chain

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// The chain components depend on the narrow slices of *rpc.Client they use,
// so tests can substitute scripted nodes.

type TxSender interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

type StatusGetter interface {
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

type AccountGetter interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

type TokenAccountGetter interface {
	AccountGetter
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
}

// NetworkClient is everything the trade pipeline needs from a node.
type NetworkClient interface {
	TxSender
	StatusGetter
	TokenAccountGetter
}

var _ NetworkClient = (*rpc.Client)(nil)

func NewRPCClient(endpoint string) *rpc.Client {
	return rpc.New(endpoint)
}

// DefaultCallTimeout bounds a single node call when no timeout is configured.
const DefaultCallTimeout = 10 * time.Second

// TimeoutClient gives every node call its own deadline, on top of whatever
// deadline the caller's context already carries.
type TimeoutClient struct {
	next    NetworkClient
	timeout time.Duration
}

func WithCallTimeout(next NetworkClient, timeout time.Duration) *TimeoutClient {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &TimeoutClient{next: next, timeout: timeout}
}

var _ NetworkClient = (*TimeoutClient)(nil)

func (c *TimeoutClient) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.next.GetLatestBlockhash(ctx, commitment)
}

func (c *TimeoutClient) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.next.SendTransactionWithOpts(ctx, tx, opts)
}

func (c *TimeoutClient) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.next.GetSignatureStatuses(ctx, searchTransactionHistory, signatures...)
}

func (c *TimeoutClient) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.next.GetAccountInfo(ctx, account)
}

func (c *TimeoutClient) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.next.GetTokenAccountsByOwner(ctx, owner, conf, opts)
}
