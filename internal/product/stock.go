package product

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrInsufficientStock = errors.New("product: insufficient stock")

// ReserveMode selects whether Reserve only checks availability or also takes
// the stock.
type ReserveMode int

const (
	CheckOnly ReserveMode = iota
	Decrement
)

func (m ReserveMode) String() string {
	if m == Decrement {
		return "decrement"
	}
	return "check"
}

type Line struct {
	ProductID string
	Quantity  int
}

type Shortage struct {
	ProductID string
	Requested int
	Available int
}

// ShortageError lists every line that could not be covered. It matches
// ErrInsufficientStock with errors.Is.
type ShortageError struct {
	Shortages []Shortage
}

func (e *ShortageError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", s.ProductID, s.Requested, s.Available))
	}
	return "insufficient stock for " + strings.Join(parts, ", ")
}

func (e *ShortageError) Unwrap() error { return ErrInsufficientStock }

// Inventory is the single stock-check-and-reserve operation. Reserve is
// all-or-nothing: on any shortage nothing is decremented.
type Inventory interface {
	Reserve(ctx context.Context, lines []Line, mode ReserveMode) error
}

// mergeLines sums quantities per product and sorts by id so concurrent
// reservations lock rows in the same order.
func mergeLines(lines []Line) []Line {
	sums := make(map[string]int, len(lines))
	for _, l := range lines {
		sums[l.ProductID] += l.Quantity
	}
	out := make([]Line, 0, len(sums))
	for id, q := range sums {
		out = append(out, Line{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
