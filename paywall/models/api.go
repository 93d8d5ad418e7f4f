package models

type CreateRequest struct {
	ProductID string `json:"productId"`
}

type CreateResponse struct {
	OrderID string `json:"orderId"`
}

type CaptureRequest struct {
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
}

type CaptureResponse struct {
	OK   bool   `json:"ok"`
	Tier string `json:"tier"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
