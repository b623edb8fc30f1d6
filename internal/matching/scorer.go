// internal/matching/scorer.go
// Compatibility scoring strategies

package matching

import (
	"context"
	"fmt"

	"github.com/xperia/xperia-backend/internal/travelers"
)

// Strategy scores a pair of complete profiles and explains the result
type Strategy interface {
	Name() string
	Score(a, b *travelers.Profile) int
	// Threshold is the minimum score for the initiator to get a proposal
	Threshold(initiator *travelers.Profile) int
	Reason(ctx context.Context, a, b *travelers.Profile, score int, common []string) string
}

// ReasonGenerator writes match explanations
type ReasonGenerator interface {
	Enabled() bool
	MatchReason(ctx context.Context, a, b *travelers.Profile, score int) string
}

var compatibleStyles = map[travelers.TravelStyle][]travelers.TravelStyle{
	travelers.StyleAdventure: {travelers.StyleNature, travelers.StyleParty},
	travelers.StyleNature:    {travelers.StyleAdventure},
	travelers.StyleCultural:  {travelers.StyleRelaxed},
	travelers.StyleRelaxed:   {travelers.StyleCultural},
	travelers.StyleParty:     {travelers.StyleAdventure},
}

// CompatibleStyles reports whether two different styles pair well
func CompatibleStyles(a, b travelers.TravelStyle) bool {
	for _, style := range compatibleStyles[a] {
		if style == b {
			return true
		}
	}
	return false
}

// CommonItems returns the items of a that also appear in b, in a's order
func CommonItems(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, item := range b {
		set[item] = true
	}

	common := []string{}
	for _, item := range a {
		if set[item] {
			common = append(common, item)
		}
	}
	return common
}

// AgentStrategy is the scoring used by the autonomous agent
type AgentStrategy struct {
	Generator ReasonGenerator
}

func (AgentStrategy) Name() string { return "agent" }

func (AgentStrategy) Score(a, b *travelers.Profile) int {
	score := 0

	diff := a.Age - b.Age
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 5:
		score += 20
	case diff <= 10:
		score += 10
	case diff <= 15:
		score += 5
	}

	if a.TravelStyle == b.TravelStyle {
		score += 40
	} else if CompatibleStyles(a.TravelStyle, b.TravelStyle) {
		score += 20
	}

	score += 15 * len(CommonItems(a.Interests, b.Interests))
	score += 5 * len(CommonItems(a.Languages, b.Languages))

	return clampScore(score)
}

func (AgentStrategy) Threshold(initiator *travelers.Profile) int {
	return initiator.EffectiveThreshold()
}

func (s AgentStrategy) Reason(ctx context.Context, a, b *travelers.Profile, score int, common []string) string {
	if s.Generator != nil && s.Generator.Enabled() {
		return s.Generator.MatchReason(ctx, a, b, score)
	}
	return fmt.Sprintf("You both share %d common interests and have compatible travel styles!", len(common))
}

// ManualScanThreshold is the minimum score of a "find matches now" proposal
const ManualScanThreshold = 40

// ManualScanStrategy is the scoring used by an explicit scan
type ManualScanStrategy struct{}

func (ManualScanStrategy) Name() string { return "manual" }

func (ManualScanStrategy) Score(a, b *travelers.Profile) int {
	score := 0
	if a.TravelStyle == b.TravelStyle {
		score += 60
	}
	score += 20 * len(CommonItems(a.Interests, b.Interests))
	return clampScore(score)
}

func (ManualScanStrategy) Threshold(*travelers.Profile) int {
	return ManualScanThreshold
}

func (ManualScanStrategy) Reason(_ context.Context, a, b *travelers.Profile, _ int, common []string) string {
	if a.TravelStyle == b.TravelStyle {
		return fmt.Sprintf("You both love %s travel - perfect match!", a.TravelStyle)
	}
	return fmt.Sprintf("You share %d common interests!", len(common))
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
