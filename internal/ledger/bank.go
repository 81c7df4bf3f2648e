package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/seantiz/proofmarket/internal/model"
	"github.com/seantiz/proofmarket/internal/store"
)

// Compile-time interface satisfaction check.
var _ Ledger = (*Bank)(nil)

// Bank is a Ledger keeping 256-bit balances in the entity store.
// Payouts are drawn from a single escrow account.
type Bank struct {
	escrow   model.AccountID
	balances store.Collection[model.AccountID, []byte]
	meta     store.Collection[string, uint64]
}

// NewBank returns a bank that pays out of escrow.
func NewBank(escrow model.AccountID) *Bank {
	return &Bank{
		escrow: escrow,
		balances: store.NewCollection[model.AccountID, []byte]("balance", func(id model.AccountID) []byte {
			return store.StringKey(string(id))
		}),
		meta: store.NewCollection[string, uint64]("ledger_meta", store.StringKey),
	}
}

// Escrow returns the account payouts are drawn from.
func (b *Bank) Escrow() model.AccountID {
	return b.escrow
}

// Caller reads the identity attached to ctx with WithCaller.
func (b *Bank) Caller(ctx context.Context) (model.AccountID, error) {
	account, ok := CallerFrom(ctx)
	if !ok {
		return "", model.ErrNoCaller
	}
	return account, nil
}

// Balance returns the balance of account; unknown accounts hold zero.
func (b *Bank) Balance(tx store.Tx, account model.AccountID) (*uint256.Int, error) {
	raw, err := b.balances.Get(tx, account)
	if errors.Is(err, store.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read balance of %s: %w", account, err)
	}
	return new(uint256.Int).SetBytes(raw), nil
}

func (b *Bank) setBalance(tx store.Tx, account model.AccountID, v *uint256.Int) error {
	if err := b.balances.Insert(tx, account, v.Bytes()); err != nil {
		return fmt.Errorf("write balance of %s: %w", account, err)
	}
	return nil
}

// Mint credits account with amount out of thin air. It seeds escrow at genesis.
func (b *Bank) Mint(tx store.Tx, account model.AccountID, amount uint64) error {
	bal, err := b.Balance(tx, account)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(bal, uint256.NewInt(amount))
	if overflow {
		return fmt.Errorf("mint to %s: balance overflow", account)
	}
	return b.setBalance(tx, account, sum)
}

// Genesis mints amount into escrow the first time it runs against a store and
// is a no-op afterwards. It reports whether it minted.
func (b *Bank) Genesis(tx store.Tx, amount uint64) (bool, error) {
	done, err := b.meta.Has(tx, "genesis")
	if err != nil {
		return false, fmt.Errorf("read genesis marker: %w", err)
	}
	if done {
		return false, nil
	}
	if err := b.Mint(tx, b.escrow, amount); err != nil {
		return false, err
	}
	if err := b.meta.Insert(tx, "genesis", amount); err != nil {
		return false, fmt.Errorf("write genesis marker: %w", err)
	}
	return true, nil
}

// Transfer moves amount from the escrow account to `to`.
func (b *Bank) Transfer(_ context.Context, tx store.Tx, to model.AccountID, amount uint64) error {
	return b.Move(tx, b.escrow, to, amount)
}

// Move transfers amount between two arbitrary accounts. Both balances are
// checked before either is written. A move to the source account writes
// nothing but still fails when the source cannot cover amount.
func (b *Bank) Move(tx store.Tx, from, to model.AccountID, amount uint64) error {
	value := uint256.NewInt(amount)

	fromBal, err := b.Balance(tx, from)
	if err != nil {
		return err
	}
	if fromBal.Lt(value) {
		return fmt.Errorf("move %d from %s: %w", amount, from, ErrInsufficientFunds)
	}
	if from == to {
		return nil
	}
	toBal, err := b.Balance(tx, to)
	if err != nil {
		return err
	}
	credited, overflow := new(uint256.Int).AddOverflow(toBal, value)
	if overflow {
		return fmt.Errorf("move %d to %s: balance overflow", amount, to)
	}

	if err := b.setBalance(tx, from, new(uint256.Int).Sub(fromBal, value)); err != nil {
		return err
	}
	return b.setBalance(tx, to, credited)
}
