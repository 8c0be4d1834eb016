// Package domain defines the error kinds shared by every stage of the price updater
package domain

import (
	"errors"
	"fmt"
)

// ErrNoValidPrices is returned when every rate was filtered out. Nothing
// must be sent to the ledger in that case.
var ErrNoValidPrices = errors.New("no valid prices available")

// FeedError reports a transport or schema failure of the price feed.
// The pipeline recovers from it by substituting an all-zero snapshot.
type FeedError struct {
	Op  string
	Err error
}

func (e *FeedError) Error() string { return format("feed", e.Op, e.Err) }
func (e *FeedError) Unwrap() error { return e.Err }

// KeyError reports a malformed seed phrase or a key derivation failure.
type KeyError struct {
	Op  string
	Err error
}

func (e *KeyError) Error() string { return format("key", e.Op, e.Err) }
func (e *KeyError) Unwrap() error { return e.Err }

// RPCError reports a failed ledger query or broadcast.
type RPCError struct {
	Op  string
	Err error
}

func (e *RPCError) Error() string { return format("rpc", e.Op, e.Err) }
func (e *RPCError) Unwrap() error { return e.Err }

// SignError reports a failure while encoding or signing a transaction.
type SignError struct {
	Op  string
	Err error
}

func (e *SignError) Error() string { return format("sign", e.Op, e.Err) }
func (e *SignError) Unwrap() error { return e.Err }

func format(kind, op string, err error) string {
	if op == "" {
		return fmt.Sprintf("%s: %v", kind, err)
	}

	return fmt.Sprintf("%s: %s: %v", kind, op, err)
}
