package models

type CaptureStatus string

const (
	CaptureStatusCompleted CaptureStatus = "COMPLETED"
)

// UnknownPayer is recorded as the buyer identity when the provider does not
// report a payer email.
const UnknownPayer = "desconhecido@usuario"

// CaptureResult is what the provider reports after capturing an order.
type CaptureResult struct {
	OrderID string
	// ProductID is the product the order was opened for, echoed by the provider.
	ProductID  string
	Status     CaptureStatus
	Amount     string
	Currency   string
	PayerEmail string
}

// Grant is a verified capture: the tier to unlock and who paid for it.
type Grant struct {
	Tier     string
	Identity string
}
