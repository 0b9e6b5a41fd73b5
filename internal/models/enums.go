package models

import "fmt"

// CurrencyCode is an ISO 4217 code accepted for product prices.
type CurrencyCode string

const (
	CurrencyUSD CurrencyCode = "USD"
	CurrencyKRW CurrencyCode = "KRW"
)

// Valid reports whether c is a supported currency.
func (c CurrencyCode) Valid() bool {
	switch c {
	case CurrencyUSD, CurrencyKRW:
		return true
	}
	return false
}

// ParseCurrencyCode returns the currency for s or an error for unknown codes.
func ParseCurrencyCode(s string) (CurrencyCode, error) {
	c := CurrencyCode(s)
	if !c.Valid() {
		return "", fmt.Errorf("unsupported currency code %q", s)
	}
	return c, nil
}

// Tag labels a product listing.
type Tag string

const (
	TagVerified  Tag = "VERIFIED"
	TagFirstPost Tag = "1ST_POST"
	TagPopular   Tag = "POPULAR"
)

// Valid reports whether t belongs to the closed tag set.
func (t Tag) Valid() bool {
	switch t {
	case TagVerified, TagFirstPost, TagPopular:
		return true
	}
	return false
}

// ParseTags converts raw tag strings, rejecting anything outside the tag set.
// Duplicates are collapsed, keeping first occurrence order.
func ParseTags(raw []string) ([]Tag, error) {
	tags := make([]Tag, 0, len(raw))
	seen := make(map[Tag]bool, len(raw))
	for _, r := range raw {
		t := Tag(r)
		if !t.Valid() {
			return nil, fmt.Errorf("unsupported tag %q", r)
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags, nil
}

// Provider identifies how a user account was created or last linked.
type Provider string

const (
	ProviderEmail  Provider = "email"
	ProviderGoogle Provider = "google"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	return p == ProviderEmail || p == ProviderGoogle
}
