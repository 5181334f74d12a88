package selection

import (
	"context"
	"sync"
)

// Budget is a remaining-operations counter shared by everything executing
// inside one claim. It replaces reliance on runtime exhaustion signals.
type Budget struct {
	mu        sync.Mutex
	remaining uint64
}

// NewBudget returns a budget holding units operations.
func NewBudget(units uint64) *Budget {
	return &Budget{remaining: units}
}

// Spend deducts units and reports whether they were available. A failed
// spend leaves the budget untouched.
func (b *Budget) Spend(units uint64) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if units > b.remaining {
		return false
	}
	b.remaining -= units
	return true
}

// Remaining returns the units left.
func (b *Budget) Remaining() uint64 {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

type budgetKey struct{}

// WithBudget attaches b to ctx.
func WithBudget(ctx context.Context, b *Budget) context.Context {
	return context.WithValue(ctx, budgetKey{}, b)
}

// BudgetFrom returns the budget attached to ctx, or a fresh budget of
// fallback units when none is attached.
func BudgetFrom(ctx context.Context, fallback uint64) *Budget {
	if ctx != nil {
		if b, ok := ctx.Value(budgetKey{}).(*Budget); ok && b != nil {
			return b
		}
	}
	return NewBudget(fallback)
}

// HasBudget reports whether ctx carries a budget.
func HasBudget(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	b, ok := ctx.Value(budgetKey{}).(*Budget)
	return ok && b != nil
}
