// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"math"
	"strconv"
)

// Page bounds used by ClampPage. MaxPage keeps Offset within 32 bits.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = math.MaxInt32 / MaxPageSize
)

// Page is a validated 1-based page request.
type Page struct {
	Number int
	Size   int
}

// Offset returns the number of rows before this page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// ClampPage parses raw page and page-size values. Missing or unparsable
// values fall back to page 1 and DefaultPageSize; out-of-range values are
// clamped into [1, MaxPage] and [1, MaxPageSize].
func ClampPage(page, size string) Page {
	p := Page{
		Number: AtoiDefault(page, 1),
		Size:   AtoiDefault(size, DefaultPageSize),
	}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Number > MaxPage {
		p.Number = MaxPage
	}
	if p.Size < 1 {
		p.Size = 1
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
