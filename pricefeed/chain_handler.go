package pricefeed

import (
	"context"

	"github.com/sljivkov/fiatoracle/chains"
)

// AccountProvider resolves the signer's account number and sequence.
type AccountProvider interface {
	// FetchAccountMeta must be called on every run; a stale sequence gets
	// the transaction rejected by the ledger.
	FetchAccountMeta(ctx context.Context, address string) (chains.AccountMeta, error)
}

// TxBroadcaster submits a signed price update and waits for it to be committed.
type TxBroadcaster interface {
	BroadcastCommit(ctx context.Context, tx *chains.SignedTx) (*chains.CommitResult, error)
}
