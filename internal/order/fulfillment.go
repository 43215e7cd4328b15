package order

import (
	"context"
	"fmt"
	"time"
)

// FulfillmentPolicy decides which Pending orders the hourly pass ships.
type FulfillmentPolicy interface {
	Name() string
	Filter(now time.Time) PromoteFilter
}

// AgePolicy ships every order that has been Pending for at least Timeout,
// whether or not anything was fulfilled.
type AgePolicy struct{ Timeout time.Duration }

func (p AgePolicy) Name() string { return "age" }

func (p AgePolicy) Filter(now time.Time) PromoteFilter {
	return PromoteFilter{CreatedBefore: now.Add(-p.Timeout)}
}

// ConfirmedPolicy ships only orders an admin flagged as fulfilled.
type ConfirmedPolicy struct{}

func (ConfirmedPolicy) Name() string { return "confirmed" }

func (ConfirmedPolicy) Filter(now time.Time) PromoteFilter {
	return PromoteFilter{CreatedBefore: now, ConfirmedOnly: true}
}

func PolicyByName(name string, timeout time.Duration) (FulfillmentPolicy, error) {
	switch name {
	case "", "age":
		return AgePolicy{Timeout: timeout}, nil
	case "confirmed":
		return ConfirmedPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown fulfillment policy %q", name)
	}
}

// PromoteJob moves the orders selected by the policy from Pending to Shipped
// in one conditional bulk update. Orders already moved no longer match, so a
// second run is a no-op.
type PromoteJob struct {
	repo   Repository
	policy FulfillmentPolicy
	now    func() time.Time
}

func NewPromoteJob(repo Repository, policy FulfillmentPolicy) *PromoteJob {
	return &PromoteJob{repo: repo, policy: policy, now: time.Now}
}

func (j *PromoteJob) Name() string { return "order_promote_pending" }

func (j *PromoteJob) Run(ctx context.Context) (int64, error) {
	return j.repo.PromotePending(ctx, j.policy.Filter(j.now().UTC()), StatusShipped)
}
