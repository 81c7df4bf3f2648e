// Package ledger moves value between accounts and reports who is calling.
// Balances live in the same store as the marketplace records, so a transfer
// commits or rolls back together with the operation that caused it.
package ledger

import (
	"context"
	"errors"

	"github.com/seantiz/proofmarket/internal/model"
	"github.com/seantiz/proofmarket/internal/store"
)

// ErrInsufficientFunds is returned when the source account cannot cover a transfer.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger is the value-transfer and identity service the marketplace relies on.
type Ledger interface {
	// Caller returns the identity of the invoker of the current operation.
	Caller(ctx context.Context) (model.AccountID, error)

	// Transfer pays amount from the escrow account to `to` inside tx. It
	// either moves the whole amount or writes nothing.
	Transfer(ctx context.Context, tx store.Tx, to model.AccountID, amount uint64) error
}

type callerKey struct{}

// WithCaller attaches the invoking account to ctx.
func WithCaller(ctx context.Context, account model.AccountID) context.Context {
	return context.WithValue(ctx, callerKey{}, account)
}

// CallerFrom returns the account attached by WithCaller.
func CallerFrom(ctx context.Context) (model.AccountID, bool) {
	account, ok := ctx.Value(callerKey{}).(model.AccountID)
	if !ok || account == "" {
		return "", false
	}
	return account, true
}
