// Package paypaltest provides an in-process fake of the PayPal REST endpoints
// used by the paywall, for tests.
package paypaltest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"
)

const (
	ClientID     = "test-client-id"
	ClientSecret = "test-client-secret"
	AccessToken  = "A21AA-test-token"
	PayerEmail   = "buyer@example.com"
)

// Order is what the fake remembers about a created order.
type Order struct {
	ID          string
	ProductID   string
	Currency    string
	Amount      string
	Description string
	ReturnURL   string
	CancelURL   string
	BrandName   string
}

// CaptureReply overrides the capture answer for one order. Zero fields fall
// back to the order's own values; HTTPStatus other than 0/201 returns an
// error body instead.
type CaptureReply struct {
	HTTPStatus int
	Status     string
	Amount     string
	Currency   string
	PayerEmail string
	OmitPayer  bool
}

type Server struct {
	*httptest.Server

	mu          sync.Mutex
	seq         int
	orders      map[string]Order
	replies     map[string]CaptureReply
	requestIDs  []string
	tokenStatus int
	expiresIn   int64
	tokens      []string

	TokenCalls   int
	CreateCalls  int
	CaptureCalls int
}

func NewServer() *Server {
	s := &Server{
		orders:    map[string]Order{},
		replies:   map[string]CaptureReply{},
		expiresIn: 32400,
	}

	r := chi.NewRouter()
	r.Post("/v1/oauth2/token", s.token)
	r.Route("/v2/checkout/orders", func(r chi.Router) {
		r.Post("/", s.createOrder)
		r.Post("/{orderID}/capture", s.captureOrder)
	})
	s.Server = httptest.NewServer(r)
	return s
}

// FailTokens makes the token endpoint answer with status.
func (s *Server) FailTokens(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenStatus = status
}

// SetTokenLifetime changes expires_in of issued tokens (seconds).
func (s *Server) SetTokenLifetime(seconds int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresIn = seconds
}

// RevokeTokens makes every previously issued token answer 401.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = nil
}

func (s *Server) SetCapture(orderID string, reply CaptureReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[orderID] = reply
}

func (s *Server) Order(id string) (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return o, ok
}

// RequestIDs returns the PayPal-Request-Id headers seen so far.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TokenCalls++

	if s.tokenStatus != 0 {
		writeJSON(w, s.tokenStatus, map[string]string{"error": "invalid_client", "error_description": "Client Authentication failed"})
		return
	}
	id, secret, ok := r.BasicAuth()
	if !ok || id != ClientID || secret != ClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	tok := fmt.Sprintf("%s-%d", AccessToken, s.TokenCalls)
	s.tokens = append(s.tokens, tok)
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": tok,
		"token_type":   "Bearer",
		"expires_in":   s.expiresIn,
	})
}

// authorized must be called with mu held.
func (s *Server) authorized(r *http.Request) bool {
	got := r.Header.Get("Authorization")
	for _, t := range s.tokens {
		if got == "Bearer "+t {
			return true
		}
	}
	return false
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreateCalls++
	s.requestIDs = append(s.requestIDs, r.Header.Get("PayPal-Request-Id"))

	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"name": "AUTHENTICATION_FAILURE"})
		return
	}

	var req struct {
		Intent        string `json:"intent"`
		PurchaseUnits []struct {
			ReferenceID string `json:"reference_id"`
			Amount      struct {
				CurrencyCode string `json:"currency_code"`
				Value        string `json:"value"`
			} `json:"amount"`
			Description string `json:"description"`
		} `json:"purchase_units"`
		ApplicationContext struct {
			BrandName string `json:"brand_name"`
			ReturnURL string `json:"return_url"`
			CancelURL string `json:"cancel_url"`
		} `json:"application_context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Intent != "CAPTURE" || len(req.PurchaseUnits) != 1 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"name": "UNPROCESSABLE_ENTITY"})
		return
	}

	s.seq++
	pu := req.PurchaseUnits[0]
	o := Order{
		ID:          fmt.Sprintf("ORDER-%04d", s.seq),
		ProductID:   pu.ReferenceID,
		Currency:    pu.Amount.CurrencyCode,
		Amount:      pu.Amount.Value,
		Description: pu.Description,
		ReturnURL:   req.ApplicationContext.ReturnURL,
		CancelURL:   req.ApplicationContext.CancelURL,
		BrandName:   req.ApplicationContext.BrandName,
	}
	s.orders[o.ID] = o
	writeJSON(w, http.StatusCreated, map[string]string{"id": o.ID, "status": "CREATED"})
}

func (s *Server) captureOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CaptureCalls++
	s.requestIDs = append(s.requestIDs, r.Header.Get("PayPal-Request-Id"))

	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"name": "AUTHENTICATION_FAILURE"})
		return
	}

	id := chi.URLParam(r, "orderID")
	o, ok := s.orders[id]
	reply, hasReply := s.replies[id]
	if !ok && !hasReply {
		writeJSON(w, http.StatusNotFound, map[string]string{"name": "RESOURCE_NOT_FOUND", "debug_id": "dbg-1"})
		return
	}
	if reply.HTTPStatus != 0 && reply.HTTPStatus != http.StatusCreated {
		writeJSON(w, reply.HTTPStatus, map[string]string{"name": "UNPROCESSABLE_ENTITY", "message": "ORDER_NOT_APPROVED"})
		return
	}

	status, amount, currency, email := "COMPLETED", o.Amount, o.Currency, PayerEmail
	if reply.Status != "" {
		status = reply.Status
	}
	if reply.Amount != "" {
		amount = reply.Amount
	}
	if reply.Currency != "" {
		currency = reply.Currency
	}
	if reply.PayerEmail != "" {
		email = reply.PayerEmail
	}

	resp := map[string]any{
		"id":     id,
		"status": status,
		"purchase_units": []any{map[string]any{
			"reference_id": o.ProductID,
			"payments": map[string]any{
				"captures": []any{map[string]any{
					"id":     "CAP-" + id,
					"status": status,
					"amount": map[string]string{"currency_code": currency, "value": amount},
				}},
			},
		}},
	}
	if !reply.OmitPayer {
		resp["payer"] = map[string]any{"email_address": email}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Paypal-Debug-Id", "fake-debug-id")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
