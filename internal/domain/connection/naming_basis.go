package connection

import (
	"strings"

	"golang.org/x/text/cases"
)

// NamingBasis decides how an ERP item code is derived from a storefront product.
// It is a closed set: the zero value means "not set" and only the two
// declared variants are valid.
type NamingBasis string

const (
	// NamingBasisUnset is the zero value
	NamingBasisUnset NamingBasis = ""
	// NamingBasisWooCommerceID names items after the storefront product ID
	NamingBasisWooCommerceID NamingBasis = "WOOCOMMERCE_ID"
	// NamingBasisProductSKU names items after the product SKU, falling back to the ID
	NamingBasisProductSKU NamingBasis = "PRODUCT_SKU"
)

// IsValid returns true for the two declared variants
func (b NamingBasis) IsValid() bool {
	switch b {
	case NamingBasisWooCommerceID, NamingBasisProductSKU:
		return true
	default:
		return false
	}
}

// IsSet returns true if a basis has been chosen
func (b NamingBasis) IsSet() bool {
	return b != NamingBasisUnset
}

// String returns the string representation of NamingBasis
func (b NamingBasis) String() string {
	return string(b)
}

// DisplayName returns the label used by the storefront settings screen
func (b NamingBasis) DisplayName() string {
	switch b {
	case NamingBasisWooCommerceID:
		return "WooCommerce ID"
	case NamingBasisProductSKU:
		return "Product SKU"
	default:
		return ""
	}
}

// ParseNamingBasis accepts the enum value or its display label in any case,
// e.g. "PRODUCT_SKU", "Product SKU" or "product-sku". An empty input yields
// NamingBasisUnset.
func ParseNamingBasis(s string) (NamingBasis, error) {
	key := normalizeNamingKey(s)
	switch key {
	case "":
		return NamingBasisUnset, nil
	case normalizeNamingKey(string(NamingBasisWooCommerceID)):
		return NamingBasisWooCommerceID, nil
	case normalizeNamingKey(string(NamingBasisProductSKU)):
		return NamingBasisProductSKU, nil
	default:
		return NamingBasisUnset, ErrInvalidNamingBasis
	}
}

func normalizeNamingKey(s string) string {
	// Casers keep state, so each call gets its own.
	folded := cases.Fold().String(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(folded)
}
