// Package gatewaytest provides an in-memory Gateway for tests and local
// development.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/storefront/gateway"
	"github.com/xraph/storefront/types"
)

// Fake is an in-memory gateway. Intents auto-capture unless the reference
// is failed via FailNext or Decline. Safe for concurrent use.
type Fake struct {
	mu       sync.Mutex
	intents  map[string]*gateway.Intent
	captures []gateway.Capture
	declined map[string]bool
	failNext bool
}

var _ gateway.Gateway = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		intents:  make(map[string]*gateway.Intent),
		declined: make(map[string]bool),
	}
}

// FailNext makes the next CreateIntent return an error, simulating an
// unreachable provider.
func (f *Fake) FailNext() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = true
}

// Decline marks a reference so Confirm reports it unverified.
func (f *Fake) Decline(ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declined[ref] = true
}

// InjectCapture records a capture with no corresponding intent, simulating
// a provider-side settlement the engine never committed. Used to exercise
// reconciliation.
func (f *Fake) InjectCapture(ref string, amount types.Money, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures = append(f.captures, gateway.Capture{Ref: ref, Amount: amount, CapturedAt: at})
}

func (f *Fake) CreateIntent(ctx context.Context, userID string, amount types.Money) (*gateway.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failNext {
		f.failNext = false
		return nil, fmt.Errorf("gatewaytest: provider unreachable")
	}

	intent := &gateway.Intent{
		Ref:       "pay_" + uuid.NewString(),
		Amount:    amount,
		CreatedAt: time.Now(),
	}
	f.intents[intent.Ref] = intent
	f.captures = append(f.captures, gateway.Capture{
		Ref:        intent.Ref,
		Amount:     amount,
		CapturedAt: intent.CreatedAt,
	})
	return intent, nil
}

func (f *Fake) Confirm(ctx context.Context, ref string) (*gateway.Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	intent, ok := f.intents[ref]
	if !ok {
		return nil, fmt.Errorf("gatewaytest: unknown reference %q", ref)
	}
	if f.declined[ref] {
		return &gateway.Confirmation{Ref: ref, Verified: false}, nil
	}
	return &gateway.Confirmation{Ref: ref, Verified: true, Captured: intent.Amount}, nil
}

func (f *Fake) Captures(ctx context.Context, since time.Time) ([]gateway.Capture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []gateway.Capture
	for _, c := range f.captures {
		if !c.CapturedAt.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}
