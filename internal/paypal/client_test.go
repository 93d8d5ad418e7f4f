package paypal_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/meuqianimal/paywall/internal/paypal"
	"github.com/meuqianimal/paywall/internal/paypal/paypaltest"
	"github.com/meuqianimal/paywall/paywall/models"
	"github.com/stretchr/testify/require"
)

var predador = models.Product{ID: "predador", Currency: "BRL", Amount: "4.99", Label: "Predador"}

func newClient(srv *paypaltest.Server, cache bool) *paypal.Client {
	return paypal.New(paypal.Config{
		BaseURL:      srv.URL,
		ClientID:     paypaltest.ClientID,
		ClientSecret: paypaltest.ClientSecret,
		AppBaseURL:   "https://shop.example/",
		BrandName:    "Meu QI Animal",
		Timeout:      5 * time.Second,
		CacheTokens:  cache,
	}, nil)
}

func TestAccessToken(t *testing.T) {
	srv := paypaltest.NewServer()
	defer srv.Close()

	tok, err := newClient(srv, false).AccessToken(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.Equal(t, 1, srv.TokenCalls)
}

func TestAccessTokenFailures(t *testing.T) {
	t.Run("bad credentials", func(t *testing.T) {
		srv := paypaltest.NewServer()
		defer srv.Close()

		c := paypal.New(paypal.Config{BaseURL: srv.URL, ClientID: "x", ClientSecret: "y"}, nil)
		_, err := c.AccessToken(context.Background())
		require.ErrorIs(t, err, paypal.ErrProviderAuth)

		var reqErr *paypal.RequestError
		require.True(t, errors.As(err, &reqErr))
		require.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
		require.Contains(t, reqErr.Body, "invalid_client")
	})

	t.Run("provider outage", func(t *testing.T) {
		srv := paypaltest.NewServer()
		defer srv.Close()
		srv.FailTokens(http.StatusServiceUnavailable)

		_, err := newClient(srv, false).AccessToken(context.Background())
		require.ErrorIs(t, err, paypal.ErrProviderAuth)
	})

	t.Run("network failure", func(t *testing.T) {
		srv := paypaltest.NewServer()
		c := newClient(srv, false)
		srv.Close()

		_, err := c.AccessToken(context.Background())
		require.ErrorIs(t, err, paypal.ErrProviderAuth)
	})
}

func TestCreateOrder(t *testing.T) {
	srv := paypaltest.NewServer()
	defer srv.Close()
	c := newClient(srv, false)
	ctx := context.Background()

	tok, err := c.AccessToken(ctx)
	require.NoError(t, err)

	id, err := c.CreateOrder(ctx, tok, predador)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	order, ok := srv.Order(id)
	require.True(t, ok)
	require.Equal(t, "4.99", order.Amount)
	require.Equal(t, "BRL", order.Currency)
	require.Equal(t, "Meu QI Animal - Predador", order.Description)
	require.Equal(t, "https://shop.example/return", order.ReturnURL)
	require.Equal(t, "https://shop.example/cancel", order.CancelURL)
	require.Equal(t, "Meu QI Animal", order.BrandName)

	ids := srv.RequestIDs()
	require.Len(t, ids, 1)
	require.NotEmpty(t, ids[0])
}

func TestCreateOrderRejected(t *testing.T) {
	srv := paypaltest.NewServer()
	defer srv.Close()

	_, err := newClient(srv, false).CreateOrder(context.Background(), "bogus", predador)
	require.ErrorIs(t, err, paypal.ErrProviderRequest)

	var reqErr *paypal.RequestError
	require.True(t, errors.As(err, &reqErr))
	require.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
	require.Equal(t, "fake-debug-id", reqErr.DebugID)
	require.Contains(t, reqErr.Error(), "AUTHENTICATION_FAILURE")
}

func TestCaptureOrder(t *testing.T) {
	srv := paypaltest.NewServer()
	defer srv.Close()
	c := newClient(srv, false)
	ctx := context.Background()

	tok, err := c.AccessToken(ctx)
	require.NoError(t, err)
	id, err := c.CreateOrder(ctx, tok, predador)
	require.NoError(t, err)

	res, err := c.CaptureOrder(ctx, tok, id)
	require.NoError(t, err)
	require.Equal(t, models.CaptureResult{
		OrderID:    id,
		ProductID:  "predador",
		Status:     models.CaptureStatusCompleted,
		Amount:     "4.99",
		Currency:   "BRL",
		PayerEmail: paypaltest.PayerEmail,
	}, res)

	ids := srv.RequestIDs()
	require.Len(t, ids, 2)
	require.NotEqual(t, ids[0], ids[1])
	require.Equal(t, paypal.CaptureRequestID(id), ids[1])
}

func TestCaptureRetryReusesRequestID(t *testing.T) {
	srv := paypaltest.NewServer()
	defer srv.Close()
	c := newClient(srv, false)
	ctx := context.Background()

	tok, err := c.AccessToken(ctx)
	require.NoError(t, err)
	first, err := c.CreateOrder(ctx, tok, predador)
	require.NoError(t, err)
	second, err := c.CreateOrder(ctx, tok, predador)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = c.CaptureOrder(ctx, tok, first)
		require.NoError(t, err)
	}
	_, err = c.CaptureOrder(ctx, tok, second)
	require.NoError(t, err)

	ids := srv.RequestIDs()
	require.Len(t, ids, 5)
	require.NotEqual(t, ids[0], ids[1], "each create gets its own id")
	require.Equal(t, ids[2], ids[3])
	require.NotEqual(t, ids[3], ids[4])
}

func TestCaptureOrderReportsProduct(t *testing.T) {
	srv := paypaltest.NewServer()
	defer srv.Close()
	c := newClient(srv, false)
	ctx := context.Background()

	gato := models.Product{ID: "gato", Currency: "BRL", Amount: "4.99", Label: "Gato"}

	tok, err := c.AccessToken(ctx)
	require.NoError(t, err)
	id, err := c.CreateOrder(ctx, tok, gato)
	require.NoError(t, err)

	order, ok := srv.Order(id)
	require.True(t, ok)
	require.Equal(t, "gato", order.ProductID)

	res, err := c.CaptureOrder(ctx, tok, id)
	require.NoError(t, err)
	require.Equal(t, "gato", res.ProductID)
}

func TestCaptureOrderWithoutPayer(t *testing.T) {
	srv := paypaltest.NewServer()
	defer srv.Close()
	c := newClient(srv, false)
	ctx := context.Background()

	tok, err := c.AccessToken(ctx)
	require.NoError(t, err)
	id, err := c.CreateOrder(ctx, tok, predador)
	require.NoError(t, err)
	srv.SetCapture(id, paypaltest.CaptureReply{OmitPayer: true, Status: "PENDING"})

	res, err := c.CaptureOrder(ctx, tok, id)
	require.NoError(t, err)
	require.Empty(t, res.PayerEmail)
	require.Equal(t, models.CaptureStatus("PENDING"), res.Status)
}

func TestCaptureOrderFailures(t *testing.T) {
	srv := paypaltest.NewServer()
	defer srv.Close()
	c := newClient(srv, false)
	ctx := context.Background()

	tok, err := c.AccessToken(ctx)
	require.NoError(t, err)

	_, err = c.CaptureOrder(ctx, tok, "ORDER-404")
	require.ErrorIs(t, err, paypal.ErrProviderRequest)

	id, err := c.CreateOrder(ctx, tok, predador)
	require.NoError(t, err)
	srv.SetCapture(id, paypaltest.CaptureReply{HTTPStatus: http.StatusUnprocessableEntity})
	_, err = c.CaptureOrder(ctx, tok, id)
	require.ErrorIs(t, err, paypal.ErrProviderRequest)

	var reqErr *paypal.RequestError
	require.True(t, errors.As(err, &reqErr))
	require.Equal(t, http.StatusUnprocessableEntity, reqErr.StatusCode)
	require.Contains(t, reqErr.Body, "ORDER_NOT_APPROVED")
}

func TestTokenCaching(t *testing.T) {
	srv := paypaltest.NewServer()
	defer srv.Close()
	c := newClient(srv, true)
	ctx := context.Background()

	first, err := c.AccessToken(ctx)
	require.NoError(t, err)
	second, err := c.AccessToken(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, srv.TokenCalls)

	// A revoked token is dropped on the first 401 and never served again.
	srv.RevokeTokens()
	_, err = c.CreateOrder(ctx, first, predador)
	require.ErrorIs(t, err, paypal.ErrProviderRequest)

	third, err := c.AccessToken(ctx)
	require.NoError(t, err)
	require.NotEqual(t, first, third)
	require.Equal(t, 2, srv.TokenCalls)

	_, err = c.CreateOrder(ctx, third, predador)
	require.NoError(t, err)
}

func TestShortLivedTokensAreNotCached(t *testing.T) {
	srv := paypaltest.NewServer()
	defer srv.Close()
	srv.SetTokenLifetime(60)
	c := newClient(srv, true)

	_, err := c.AccessToken(context.Background())
	require.NoError(t, err)
	_, err = c.AccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, srv.TokenCalls)
}

func TestResolveBaseURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", paypal.LiveBaseURL, true},
		{"live", paypal.LiveBaseURL, true},
		{"Sandbox", paypal.SandboxBaseURL, true},
		{"http://127.0.0.1:8080/", "http://127.0.0.1:8080", true},
		{"api.paypal.com", "", false},
	}
	for _, c := range cases {
		got, err := paypal.ResolveBaseURL(c.in)
		if (err == nil) != c.ok {
			t.Fatalf("ResolveBaseURL(%q) ok=%v got err=%v", c.in, c.ok, err)
		}
		require.Equal(t, c.want, got)
	}
}
