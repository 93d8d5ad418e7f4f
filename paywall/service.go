package paywall

import (
	"context"
	"fmt"
	"time"

	"github.com/meuqianimal/paywall/internal/catalog"
	"github.com/meuqianimal/paywall/internal/fingerprint"
	"github.com/meuqianimal/paywall/paywall/models"
	"golang.org/x/exp/slog"
)

// Provider is the payment provider as the orchestrator sees it.
// *paypal.Client satisfies it.
type Provider interface {
	AccessToken(ctx context.Context) (string, error)
	CreateOrder(ctx context.Context, accessToken string, product models.Product) (string, error)
	CaptureOrder(ctx context.Context, accessToken, orderID string) (models.CaptureResult, error)
}

// Service opens provider orders for catalog products and decides whether a
// capture pays for the product it claims to.
type Service struct {
	catalog  *catalog.Catalog
	provider Provider
	logger   *slog.Logger
	timeout  time.Duration
	logKey   []byte
}

func NewService(cat *catalog.Catalog, provider Provider, logger *slog.Logger, cfg *Config) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{
		catalog:  cat,
		provider: provider,
		logger:   logger,
		timeout:  cfg.PayPal.Timeout,
		logKey:   fingerprint.DeriveKey([]byte(cfg.SigningSecret), fingerprint.LogKeyLabel),
	}
}

func (s *Service) CreateTransaction(ctx context.Context, productID string) (models.PaymentIntent, error) {
	product, err := s.catalog.Lookup(productID)
	if err != nil {
		return models.PaymentIntent{}, err
	}

	ctx, cancel := s.providerContext(ctx)
	defer cancel()

	token, err := s.provider.AccessToken(ctx)
	if err != nil {
		return models.PaymentIntent{}, fmt.Errorf("%w: %w", ErrPaymentCreate, err)
	}
	orderID, err := s.provider.CreateOrder(ctx, token, product)
	if err != nil {
		return models.PaymentIntent{}, fmt.Errorf("%w: %w", ErrPaymentCreate, err)
	}

	s.logger.Info("order created",
		slog.String("order_id", orderID),
		slog.String("product", product.ID),
		slog.String("amount", product.Amount),
		slog.String("currency", product.Currency),
	)
	return models.PaymentIntent{OrderID: orderID, ProductID: product.ID}, nil
}

func (s *Service) CaptureTransaction(ctx context.Context, orderID, productID string) (models.Grant, error) {
	if orderID == "" || productID == "" {
		return models.Grant{}, fmt.Errorf("%w: orderId and productId are required", ErrInvalidRequest)
	}
	product, err := s.catalog.Lookup(productID)
	if err != nil {
		return models.Grant{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	ctx, cancel := s.providerContext(ctx)
	defer cancel()

	token, err := s.provider.AccessToken(ctx)
	if err != nil {
		return models.Grant{}, fmt.Errorf("%w: %w", ErrPaymentCapture, err)
	}
	result, err := s.provider.CaptureOrder(ctx, token, orderID)
	if err != nil {
		return models.Grant{}, fmt.Errorf("%w: %w", ErrPaymentCapture, err)
	}

	if err := Verify(product, result); err != nil {
		s.logger.Warn("capture rejected",
			slog.String("order_id", orderID),
			slog.String("product", product.ID),
			slog.String("status", string(result.Status)),
			slog.String("order_product", result.ProductID),
			slog.String("amount", result.Amount),
			slog.String("currency", result.Currency),
			slog.String("expected_amount", product.Amount),
			slog.String("expected_currency", product.Currency),
		)
		return models.Grant{}, err
	}

	identity := result.PayerEmail
	if identity == "" {
		identity = models.UnknownPayer
	}
	s.logger.Info("capture verified",
		slog.String("order_id", orderID),
		slog.String("tier", product.ID),
		slog.String("payer", fingerprint.MaskEmail(identity)),
		slog.String("payer_fp", fingerprint.Identity(identity, s.logKey)),
		slog.Bool("payer_unknown", identity == models.UnknownPayer),
	)
	return models.Grant{Tier: product.ID, Identity: identity}, nil
}

// Verify accepts a capture only when it completed, for an order opened for
// product, at exactly the catalog amount and currency. Amounts are compared
// as strings.
func Verify(product models.Product, result models.CaptureResult) error {
	switch {
	case result.Status != models.CaptureStatusCompleted:
		return fmt.Errorf("%w: status %q", ErrPaymentVerification, result.Status)
	case result.ProductID != product.ID:
		return fmt.Errorf("%w: order is for product %q, want %q", ErrPaymentVerification, result.ProductID, product.ID)
	case result.Amount != product.Amount:
		return fmt.Errorf("%w: amount %q, want %q", ErrPaymentVerification, result.Amount, product.Amount)
	case result.Currency != product.Currency:
		return fmt.Errorf("%w: currency %q, want %q", ErrPaymentVerification, result.Currency, product.Currency)
	}
	return nil
}

// providerContext keeps ctx values but not its cancellation, so a client that
// hangs up does not abort a capture halfway through. The timeout still bounds it.
func (s *Service) providerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.timeout
	if timeout <= 0 {
		timeout = DefaultConfig().PayPal.Timeout
	}
	return context.WithTimeout(detached{ctx}, timeout)
}

type detached struct {
	parent context.Context
}

func (detached) Deadline() (time.Time, bool) { return time.Time{}, false }
func (detached) Done() <-chan struct{}       { return nil }
func (detached) Err() error                  { return nil }
func (d detached) Value(key any) any         { return d.parent.Value(key) }
