package paywall

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meuqianimal/paywall/internal/catalog"
	"github.com/meuqianimal/paywall/internal/credential"
	"github.com/meuqianimal/paywall/internal/middleware"
	"github.com/meuqianimal/paywall/internal/schema"
	"github.com/meuqianimal/paywall/paywall/models"
	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/exp/slog"
)

// Messages shown to buyers. Provider and verification detail stays in the logs.
const (
	msgInvalidProduct  = "Tipo inválido."
	msgInvalidRequest  = "Dados inválidos."
	msgCreateFailed    = "Erro ao criar ordem PayPal."
	msgInvalidPayment  = "Pagamento inválido ou incompleto."
	msgCaptureFailed   = "Erro ao capturar pagamento."
	msgInternalFailure = "Erro interno."
)

type API struct {
	service       *Service
	issuer        *credential.Issuer
	secureCookies bool
	logger        *slog.Logger
}

func NewAPI(service *Service, issuer *credential.Issuer, secureCookies bool, logger *slog.Logger) *API {
	return &API{
		service:       service,
		issuer:        issuer,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Route("/api/paypal", func(r chi.Router) {
		r.Post("/create", a.createOrder)
		r.Post("/capture", a.captureOrder)
	})
}

func (a *API) createOrder(w http.ResponseWriter, r *http.Request) {
	logger := middleware.Logger(r, a.logger)

	var req models.CreateRequest
	if err := decode(r, schema.CreateRequest, &req); err != nil {
		logger.Info("create request rejected", slog.Any("err", err))
		writeError(w, http.StatusBadRequest, msgInvalidProduct)
		return
	}

	intent, err := a.service.CreateTransaction(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownProduct) {
			logger.Info("create request rejected", slog.Any("err", err))
			writeError(w, http.StatusBadRequest, msgInvalidProduct)
			return
		}
		logger.Error("create order failed", slog.String("product", req.ProductID), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, msgCreateFailed)
		return
	}

	writeJSON(w, http.StatusOK, models.CreateResponse{OrderID: intent.OrderID})
}

func (a *API) captureOrder(w http.ResponseWriter, r *http.Request) {
	logger := middleware.Logger(r, a.logger)

	var req models.CaptureRequest
	if err := decode(r, schema.CaptureRequest, &req); err != nil {
		logger.Info("capture request rejected", slog.Any("err", err))
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	grant, err := a.service.CaptureTransaction(r.Context(), req.OrderID, req.ProductID)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidRequest):
		logger.Info("capture request rejected", slog.Any("err", err))
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	case errors.Is(err, ErrPaymentVerification):
		logger.Warn("payment verification failed", slog.String("order_id", req.OrderID), slog.Any("err", err))
		writeError(w, http.StatusBadRequest, msgInvalidPayment)
		return
	default:
		logger.Error("capture failed", slog.String("order_id", req.OrderID), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, msgCaptureFailed)
		return
	}

	token, err := a.issuer.Issue(grant.Tier, grant.Identity)
	if err != nil {
		logger.Error("issuing credential", slog.String("order_id", req.OrderID), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, msgInternalFailure)
		return
	}

	http.SetCookie(w, a.issuer.Cookie(token, a.secureCookies))
	writeJSON(w, http.StatusOK, models.CaptureResponse{OK: true, Tier: grant.Tier})
}

// decode validates the body against s before unmarshalling it into v.
func decode(r *http.Request, s *gojsonschema.Schema, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if err := schema.Validate(s, body); err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
