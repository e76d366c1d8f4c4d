// Package session identifies the shopper's cart on express checkout calls.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunglas/httpsfv"
)

const (
	// Header carries the cart binding as an RFC 8941 dictionary:
	// cart="<token>".
	Header = "Checkout-Session"
	// CartTokenHeader is the plain store cart token, accepted as a fallback.
	CartTokenHeader = "Cart-Token"
)

// ParseHeader extracts the cart token from a Checkout-Session header.
//
// Examples:
//   - cart="c_123"             → c_123
//   - cart="c_123";ttl=900     → c_123 (params ignored)
//   - cart="c_123", express=?1 → c_123 (other keys ignored)
func ParseHeader(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("empty Checkout-Session header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return "", fmt.Errorf("invalid Checkout-Session header: %w", err)
	}

	member, ok := dict.Get("cart")
	if !ok {
		return "", errors.New("cart key not found in Checkout-Session header")
	}

	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", errors.New("cart value must be an item")
	}

	token, ok := item.Value.(string)
	if !ok || token == "" {
		return "", errors.New("cart value must be a non-empty string")
	}

	return token, nil
}

// FormatHeader renders the Checkout-Session header for a cart token.
func FormatHeader(cartToken string) (string, error) {
	dict := httpsfv.NewDictionary()
	dict.Add("cart", httpsfv.NewItem(cartToken))
	return httpsfv.Marshal(dict)
}
