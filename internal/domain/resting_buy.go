package domain

// RestingBuy tracks the single outstanding GTC buy order this agent may
// have live on the book at any time. There is at most one: a new buy is
// never placed while one is already resting, it is only cancelled,
// replaced, or left alone.
type RestingBuy struct {
	OrderID string
	Price   Price
	Size    Size
}
