// Package decision implements the VIN processing decision engine. Given a
// candidate vehicle and the full cross-dealership history for its VIN, it
// decides whether the vehicle is a new graphics-production opportunity.
//
// Decide is pure: identical inputs always yield identical output. The
// reference date is injected so the engine never reads the wall clock.
package decision

import (
	"fmt"
	"time"

	"github.com/lotsign/vinflow/internal/common"
	"github.com/lotsign/vinflow/internal/model"
)

// Verdict is the engine's output: process the VIN or skip it.
type Verdict string

// Verdict constants.
const (
	VerdictProcess Verdict = "PROCESS"
	VerdictSkip    Verdict = "SKIP"
)

// Rule identifies which ordered rule produced a verdict. Every decision is
// attributable to exactly one rule.
type Rule int

// Rules, in evaluation order. The first matching rule wins.
const (
	// RuleSameDaySuppression skips a VIN processed at the same dealership
	// within the last day, regardless of type.
	RuleSameDaySuppression Rule = 1
	// RuleCooldown skips a same-dealership, same-type reprocess within the
	// seven-day window.
	RuleCooldown Rule = 2
	// RuleCrossDealership processes a VIN previously seen at a different
	// dealership: the vehicle moved, new customer context.
	RuleCrossDealership Rule = 3
	// RuleStatusChange processes a same-dealership type change, e.g. a new
	// vehicle relisted as certified.
	RuleStatusChange Rule = 4
	// RuleFirstSighting processes a VIN with no history at all.
	RuleFirstSighting Rule = 5
	// RuleStaleRelist processes a same-dealership, same-type reappearance
	// beyond the cooldown window, treated as a refresh opportunity.
	RuleStaleRelist Rule = 6
)

// Cooldown windows.
const (
	sameDayWindow  = 24 * time.Hour
	cooldownWindow = 7 * 24 * time.Hour
)

// Decision is a verdict plus the rule that produced it.
type Decision struct {
	Verdict Verdict
	Rule    Rule
}

// Decide applies the ordered rules to one candidate. history must contain
// every entry for the VIN across all dealerships, not just the current one.
// asOf is the reference date for the day-window comparisons.
//
// Note the deliberate rule ordering: the one-day suppression is evaluated
// before the status-change rule, so a same-dealership type change within a
// day of the prior processing is skipped. That matches the recorded business
// behavior; do not reorder without confirmation.
func Decide(vin, dealership string, candidateType model.VehicleType, history []model.HistoryEntry, asOf time.Time) (Decision, error) {
	if err := checkHistory(vin, history, asOf); err != nil {
		return Decision{}, err
	}

	if len(history) == 0 {
		return Decision{Verdict: VerdictProcess, Rule: RuleFirstSighting}, nil
	}

	latest := latestEntry(history)
	sameDealer := latest.Dealership == dealership
	age := asOf.Sub(latest.OrderDate)

	// Rule 1: immediate duplicate work, same dealership, any type.
	if sameDealer && age <= sameDayWindow {
		return Decision{Verdict: VerdictSkip, Rule: RuleSameDaySuppression}, nil
	}

	// Rule 2: same-context cooldown.
	if sameDealer && latest.Type == candidateType && age <= cooldownWindow {
		return Decision{Verdict: VerdictSkip, Rule: RuleCooldown}, nil
	}

	// Rule 3: cross-dealership opportunity.
	for _, e := range history {
		if e.Dealership != dealership {
			return Decision{Verdict: VerdictProcess, Rule: RuleCrossDealership}, nil
		}
	}

	// Rule 4: status change at the same dealership.
	if sameDealer && latest.Type != candidateType {
		return Decision{Verdict: VerdictProcess, Rule: RuleStatusChange}, nil
	}

	// Rule 6: stale relist, beyond the cooldown window.
	return Decision{Verdict: VerdictProcess, Rule: RuleStaleRelist}, nil
}

// latestEntry returns the history entry with the most recent order date.
func latestEntry(history []model.HistoryEntry) model.HistoryEntry {
	latest := history[0]
	for _, e := range history[1:] {
		if e.OrderDate.After(latest.OrderDate) {
			latest = e
		}
	}
	return latest
}

// checkHistory rejects history that violates the ledger invariants. These
// are data-integrity failures and must surface, never be silently corrected.
func checkHistory(vin string, history []model.HistoryEntry, asOf time.Time) error {
	seen := make(map[string]struct{}, len(history))
	for _, e := range history {
		if e.VIN != vin {
			return fmt.Errorf("%w: entry for VIN %s in history of %s", common.ErrInvalidHistory, e.VIN, vin)
		}
		if e.OrderDate.After(asOf) {
			return fmt.Errorf("%w: future order date %s for VIN %s", common.ErrInvalidHistory,
				e.OrderDate.Format("2006-01-02"), vin)
		}
		key := e.Dealership + "|" + e.OrderDate.Format("2006-01-02")
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate entry for VIN %s at %s on %s", common.ErrInvalidHistory,
				vin, e.Dealership, e.OrderDate.Format("2006-01-02"))
		}
		seen[key] = struct{}{}
	}
	return nil
}
