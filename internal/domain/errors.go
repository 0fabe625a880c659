package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidOrder  = errors.New("invalid order parameters")
	ErrSigningFailed = errors.New("signing failed")
	ErrWSDisconnect  = errors.New("websocket disconnected")
	ErrContextDone   = errors.New("context cancelled")
	ErrLockHeld      = errors.New("lock already held")

	// ErrUnderflow is returned by Position.OnSellFill when a fill would
	// take the ledger below zero. The caller must reset the position
	// from exchange truth and abort the current tick.
	ErrUnderflow = errors.New("position underflow: sell fill exceeds tracked size")

	// ErrStaleBook names an operation that needs a fresh book while the
	// book is stale. No code path in this module returns it: on a stale
	// book strategy.Evaluate suppresses buys with ActionNothing instead.
	ErrStaleBook = errors.New("book is stale")

	// ErrNoLiquidity names a book with no usable bid/ask on the side an
	// evaluation needs. No code path in this module returns it: a missing
	// side makes strategy.Evaluate return ActionNothing instead.
	ErrNoLiquidity = errors.New("no liquidity on required side")

	// ErrOrderTimeout is returned when order placement or a top-of-book
	// REST fetch exceeds its deadline.
	ErrOrderTimeout = errors.New("order operation timed out")
)
