// Package split implements the allocation arithmetic for membership
// contributions. All amounts are integer minor units; every code path
// conserves the input total exactly.
package split

import (
	"sort"

	"github.com/google/uuid"
	"github.com/membership-split-service/internal/domain/hierarchy"
	"github.com/membership-split-service/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Allocation is one recipient's share of a contribution. Rule is set only
// for rule-driven sub-splits, for the audit snapshot.
type Allocation struct {
	RecipientNodeID uuid.UUID
	AmountUnits     int64
	Rule            *hierarchy.SplitRule
}

// Calculator computes split allocations. It is a pure component: all inputs
// arrive as arguments and via injected configuration, never ambient state.
type Calculator struct {
	flatFeeUnits   int64
	nationalNodeID uuid.UUID
}

func NewCalculator(flatFeeUnits int64, nationalNodeID uuid.UUID) *Calculator {
	return &Calculator{
		flatFeeUnits:   flatFeeUnits,
		nationalNodeID: nationalNodeID,
	}
}

// Calculate maps a contribution amount to allocations that sum exactly to
// totalUnits.
//
// The national node takes min(flatFee, total) off the top. The remainder goes
// to the state node, unless the state's active configuration is
// national_managed with active rules, in which case the remainder is
// distributed across the rules by percentage using the largest-remainder
// method. A nil stateNodeID sends everything to the national node.
func (c *Calculator) Calculate(totalUnits int64, stateNodeID *uuid.UUID, cfg *hierarchy.SplitConfiguration, rules []hierarchy.SplitRule) []Allocation {
	if stateNodeID == nil {
		return []Allocation{{RecipientNodeID: c.nationalNodeID, AmountUnits: totalUnits}}
	}

	rootShare := c.flatFeeUnits
	if totalUnits < rootShare {
		rootShare = totalUnits
	}
	allocations := []Allocation{{RecipientNodeID: c.nationalNodeID, AmountUnits: rootShare}}

	remainder := totalUnits - rootShare
	if remainder == 0 {
		return allocations
	}

	activeRules := filterActive(rules)
	if cfg == nil || cfg.Model != shared.DisbursementNationalManaged || len(activeRules) == 0 || weightSum(activeRules).IsZero() {
		return append(allocations, Allocation{RecipientNodeID: *stateNodeID, AmountUnits: remainder})
	}

	weights := make([]decimal.Decimal, len(activeRules))
	for i, rule := range activeRules {
		weights[i] = rule.Percentage
	}
	shares := DistributeByWeights(remainder, weights)
	for i := range activeRules {
		rule := activeRules[i]
		allocations = append(allocations, Allocation{
			RecipientNodeID: rule.RecipientNodeID,
			AmountUnits:     shares[i],
			Rule:            &rule,
		})
	}
	return allocations
}

// DistributeByWeights splits total (non-negative, minor units) proportionally
// to weights so the shares sum exactly to total. Each raw share is floored;
// the leftover units go one-by-one to the largest fractional remainders,
// ties broken by original position. A zero weight sum yields all-zero shares;
// callers must guard against it when total > 0.
func DistributeByWeights(total int64, weights []decimal.Decimal) []int64 {
	shares := make([]int64, len(weights))
	if total <= 0 || len(weights) == 0 {
		return shares
	}

	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w)
	}
	if sum.IsZero() {
		return shares
	}

	totalDec := decimal.NewFromInt(total)
	type fractional struct {
		idx  int
		frac decimal.Decimal
	}
	fracs := make([]fractional, len(weights))

	var allocated int64
	for i, w := range weights {
		raw := totalDec.Mul(w).Div(sum)
		floored := raw.Floor()
		shares[i] = floored.IntPart()
		allocated += shares[i]
		fracs[i] = fractional{idx: i, frac: raw.Sub(floored)}
	}

	// Stable sort keeps original order among equal remainders.
	sort.SliceStable(fracs, func(a, b int) bool {
		return fracs[a].frac.GreaterThan(fracs[b].frac)
	})

	leftover := total - allocated
	for i := int64(0); i < leftover; i++ {
		shares[fracs[int(i)%len(fracs)].idx]++
	}
	return shares
}

func filterActive(rules []hierarchy.SplitRule) []hierarchy.SplitRule {
	active := make([]hierarchy.SplitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Active {
			active = append(active, rule)
		}
	}
	return active
}

func weightSum(rules []hierarchy.SplitRule) decimal.Decimal {
	sum := decimal.Zero
	for _, rule := range rules {
		sum = sum.Add(rule.Percentage)
	}
	return sum
}
