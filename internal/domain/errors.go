package domain

import "errors"

var (
	// ErrNotFound is returned when a market or user id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput covers malformed arguments: empty ids, unknown
	// outcome strings, non-positive share counts or liquidity.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIllegalState covers lifecycle violations: trading on a resolved
	// market, resolving twice, settling a position twice.
	ErrIllegalState = errors.New("illegal state")

	// ErrInsufficientBalance is returned when a user's balance is strictly
	// less than the trade cost.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAmountTooSmall is returned when a budget buys no shares at all.
	ErrAmountTooSmall = errors.New("amount too small to buy any shares")

	// ErrDuplicateName is returned when a market name is already taken.
	ErrDuplicateName = errors.New("market name already exists")

	// ErrDuplicateUser is returned when a user id is already taken.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrStructural is returned when persisted state fails invariant
	// checks on load. It aborts startup; the snapshot is never repaired.
	ErrStructural = errors.New("structural error in persisted state")

	// ErrDurability is returned when the in-memory commit succeeded but
	// the persistence write failed. Memory and storage have diverged.
	ErrDurability = errors.New("durability error")
)
