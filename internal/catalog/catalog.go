package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/meuqianimal/paywall/paywall/models"
)

var ErrUnknownProduct = errors.New("unknown product")

// Product ids become URL segments and protected file names.
var idPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// Catalog maps product identifiers to their expected price. It is built once
// at startup and only read afterwards.
type Catalog struct {
	products map[string]models.Product
}

// Default returns the built-in storefront catalog.
func Default() *Catalog {
	c, _ := New([]models.Product{
		{ID: "predador", Currency: "BRL", Amount: "4.99", Label: "Predador"},
		{ID: "cachorro", Currency: "BRL", Amount: "9.99", Label: "Cachorro"},
	})
	return c
}

// New validates products and builds a catalog from them.
func New(products []models.Product) (*Catalog, error) {
	if len(products) == 0 {
		return nil, fmt.Errorf("catalog must contain at least one product")
	}
	m := make(map[string]models.Product, len(products))
	for _, p := range products {
		if err := validate(p); err != nil {
			return nil, fmt.Errorf("product %q: %w", p.ID, err)
		}
		if _, ok := m[p.ID]; ok {
			return nil, fmt.Errorf("product %q defined twice", p.ID)
		}
		m[p.ID] = p
	}
	return &Catalog{products: m}, nil
}

// Lookup returns the product registered under id.
func (c *Catalog) Lookup(id string) (models.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return models.Product{}, fmt.Errorf("%q: %w", id, ErrUnknownProduct)
	}
	return p, nil
}

// Tiers returns the product identifiers in lexical order.
func (c *Catalog) Tiers() []string {
	ids := make([]string, 0, len(c.products))
	for id := range c.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func validate(p models.Product) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if !idPattern.MatchString(p.ID) {
		return fmt.Errorf("id %q must match %s", p.ID, idPattern)
	}
	if err := ValidateCurrency(p.Currency); err != nil {
		return err
	}
	if err := ValidateAmount(p.Amount); err != nil {
		return err
	}
	if p.Label == "" {
		return fmt.Errorf("label is required")
	}
	return nil
}

// ValidateCurrency checks for a 3-letter upper-case ISO 4217 code.
func ValidateCurrency(cur string) error {
	if len(cur) != 3 {
		return fmt.Errorf("currency must be a 3-letter code")
	}
	for i := 0; i < 3; i++ {
		if cur[i] < 'A' || cur[i] > 'Z' {
			return fmt.Errorf("currency must be upper-case letters")
		}
	}
	return nil
}

// ValidateAmount checks the provider's fixed-point format: digits, a dot and
// exactly two decimals ("4.99").
func ValidateAmount(amount string) error {
	whole, frac, ok := strings.Cut(amount, ".")
	if !ok || whole == "" || len(frac) != 2 {
		return fmt.Errorf("amount must be formatted as N.NN")
	}
	if !isDigits(whole) || !isDigits(frac) {
		return fmt.Errorf("amount must contain digits only")
	}
	if len(whole) > 1 && whole[0] == '0' {
		return fmt.Errorf("amount must not have leading zeros")
	}
	if strings.Trim(whole+frac, "0") == "" {
		return fmt.Errorf("amount must be positive")
	}
	return nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
