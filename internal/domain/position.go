package domain

// Position is the local ledger for a single tracked asset: how many
// shares this agent believes it holds, and the configured cap on that
// holding. It is intentionally minimal — no cross-restart accounting,
// no multi-asset portfolio (see Non-goals) — and is reseeded from
// exchange truth at startup, on market rotation, and whenever a fill
// would underflow it. A reconnect of the streaming feed does not reseed it.
type Position struct {
	AssetID AssetId
	Shares  Size
	Cap     Size

	// EntryPrice is the size-weighted average buy price of the current
	// holding, tracked only for session-summary P&L reporting; it plays
	// no part in Strategy's SL/TP/Buy decisions.
	EntryPrice Price

	// RealizedPnL accumulates (exit-entry)*size across sells for the
	// current window, in price-tick*size units, again for reporting only.
	RealizedPnL int64
}
