package metering

import (
	"fmt"
	"time"

	vo "tally/internal/domain/metering/valueobjects"
)

type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusInactive PlanStatus = "inactive"
)

// Plan is read-only reference data: a tier with per-cycle credit quotas.
// Plans are managed externally; this subsystem only reads them.
type Plan struct {
	id           uint
	sid          string
	name         string
	slug         string
	billingCycle vo.BillingCycle
	status       PlanStatus
	quotas       map[vo.FeatureKey]int64
	createdAt    time.Time
	updatedAt    time.Time
}

func NewPlan(name, slug string, billingCycle vo.BillingCycle, quotas map[vo.FeatureKey]int64) (*Plan, error) {
	if name == "" {
		return nil, fmt.Errorf("plan name is required")
	}
	if slug == "" {
		return nil, fmt.Errorf("plan slug is required")
	}
	if len(name) > 100 {
		return nil, fmt.Errorf("plan name too long (max 100 characters)")
	}
	if !billingCycle.IsValid() {
		return nil, fmt.Errorf("invalid billing cycle: %s", billingCycle)
	}
	for feature, quota := range quotas {
		if !feature.IsValid() {
			return nil, fmt.Errorf("unknown feature key in quotas: %s", feature)
		}
		if quota < 0 {
			return nil, fmt.Errorf("quota for %s cannot be negative", feature)
		}
	}

	now := time.Now()
	return &Plan{
		name:         name,
		slug:         slug,
		billingCycle: billingCycle,
		status:       PlanStatusActive,
		quotas:       copyQuotas(quotas),
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

func ReconstructPlan(id uint, sid, name, slug string, billingCycle vo.BillingCycle,
	status string, quotas map[vo.FeatureKey]int64, createdAt, updatedAt time.Time) (*Plan, error) {

	if id == 0 {
		return nil, fmt.Errorf("plan ID cannot be zero")
	}

	planStatus := PlanStatus(status)
	if planStatus != PlanStatusActive && planStatus != PlanStatusInactive {
		return nil, fmt.Errorf("invalid plan status: %s", status)
	}
	if !billingCycle.IsValid() {
		return nil, fmt.Errorf("invalid billing cycle: %s", billingCycle)
	}

	return &Plan{
		id:           id,
		sid:          sid,
		name:         name,
		slug:         slug,
		billingCycle: billingCycle,
		status:       planStatus,
		quotas:       copyQuotas(quotas),
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}, nil
}

func copyQuotas(quotas map[vo.FeatureKey]int64) map[vo.FeatureKey]int64 {
	copied := make(map[vo.FeatureKey]int64, len(quotas))
	for feature, quota := range quotas {
		copied[feature] = quota
	}
	return copied
}

func (p *Plan) ID() uint                       { return p.id }
func (p *Plan) SID() string                    { return p.sid }
func (p *Plan) Name() string                   { return p.name }
func (p *Plan) Slug() string                   { return p.slug }
func (p *Plan) BillingCycle() vo.BillingCycle  { return p.billingCycle }
func (p *Plan) Status() PlanStatus             { return p.status }
func (p *Plan) CreatedAt() time.Time           { return p.createdAt }
func (p *Plan) UpdatedAt() time.Time           { return p.updatedAt }
func (p *Plan) IsActive() bool                 { return p.status == PlanStatusActive }
func (p *Plan) IsFree() bool                   { return p.billingCycle.IsDaily() }

// QuotaFor returns the per-cycle credit quota for a feature.
// A feature absent from the plan's quota table is not metered for this tier.
func (p *Plan) QuotaFor(feature vo.FeatureKey) (int64, error) {
	quota, ok := p.quotas[feature]
	if !ok {
		return 0, fmt.Errorf("%w: plan=%s feature=%s", ErrFeatureNotMetered, p.slug, feature)
	}
	return quota, nil
}

// Quotas returns a copy of the per-feature quota table.
func (p *Plan) Quotas() map[vo.FeatureKey]int64 {
	return copyQuotas(p.quotas)
}

func (p *Plan) SetID(id uint) error {
	if id == 0 {
		return fmt.Errorf("plan ID cannot be zero")
	}
	p.id = id
	return nil
}

func (p *Plan) SetSID(sid string) {
	p.sid = sid
}
