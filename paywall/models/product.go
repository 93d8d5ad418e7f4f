package models

// Product is a purchasable premium tier. Amount is kept as the decimal string
// the provider reports back ("4.99") so comparisons never go through floats.
type Product struct {
	ID       string `json:"id" yaml:"id"`
	Currency string `json:"currency" yaml:"currency"`
	Amount   string `json:"amount" yaml:"amount"`
	Label    string `json:"label" yaml:"label"`
}

// PaymentIntent is the provider order opened for a product. It is returned to
// the caller and never stored.
type PaymentIntent struct {
	OrderID   string
	ProductID string
}
