package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskEmail(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"", ""},
		{"  Buyer@Example.com ", "b****@example.com"},
		{"a@b.com", "*@b.com"},
		{"desconhecido@usuario", "d***********@usuario"},
		{"x", "*"},
		{"noat", "n***"},
	}
	for _, c := range cases {
		require.Equal(t, c.out, MaskEmail(c.in), "MaskEmail(%q)", c.in)
	}
}

func TestIdentity(t *testing.T) {
	key := []byte("k")
	a := Identity("Buyer@Example.com", key)
	require.Len(t, a, 16)
	require.Equal(t, a, Identity(" buyer@example.com", key))
	require.NotEqual(t, a, Identity("other@example.com", key))
	require.NotEqual(t, a, Identity("buyer@example.com", []byte("other-key")))
}

func TestDeriveKey(t *testing.T) {
	secret := []byte("signing-secret")
	key := DeriveKey(secret, LogKeyLabel)
	require.Len(t, key, 32)
	require.Equal(t, key, DeriveKey(secret, LogKeyLabel))
	require.NotEqual(t, secret, key)
	require.NotEqual(t, key, DeriveKey(secret, "other-purpose"))
	require.NotEqual(t, key, DeriveKey([]byte("other-secret"), LogKeyLabel))
	require.NotEqual(t, Identity("buyer@example.com", secret), Identity("buyer@example.com", key))
}
