package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xperia/xperia-backend/internal/travelers"
)

var allStyles = []travelers.TravelStyle{
	travelers.StyleAdventure, travelers.StyleCultural, travelers.StyleRelaxed, travelers.StyleParty, travelers.StyleNature,
}

func TestAliceAndBobScores(t *testing.T) {
	alice, bob := aliceProfile(), bobProfile()
	ctx := context.Background()

	agent := AgentStrategy{}
	assert.Equal(t, 80, agent.Score(alice, bob))
	assert.Equal(t, 50, agent.Threshold(alice))
	assert.Equal(t, "You both share 1 common interests and have compatible travel styles!",
		agent.Reason(ctx, alice, bob, 80, []string{"photography"}))

	manual := ManualScanStrategy{}
	assert.Equal(t, 80, manual.Score(alice, bob))
	assert.Equal(t, 40, manual.Threshold(alice))
	assert.Equal(t, "You both love adventure travel - perfect match!",
		manual.Reason(ctx, alice, bob, 80, []string{"photography"}))
}

func TestAgentScoreTerms(t *testing.T) {
	base := func(age int, style travelers.TravelStyle) *travelers.Profile {
		p := aliceProfile()
		p.Age = age
		p.TravelStyle = style
		p.Interests = []string{"a"}
		p.Languages = []string{"x"}
		return p
	}
	other := func(age int, style travelers.TravelStyle) *travelers.Profile {
		p := base(age, style)
		p.Interests = []string{"b"}
		p.Languages = []string{"y"}
		return p
	}

	tests := []struct {
		name string
		a, b *travelers.Profile
		want int
	}{
		{"age diff 5", base(30, travelers.StyleParty), other(35, travelers.StyleCultural), 20},
		{"age diff 10", base(30, travelers.StyleParty), other(40, travelers.StyleCultural), 10},
		{"age diff 15", base(30, travelers.StyleParty), other(45, travelers.StyleCultural), 5},
		{"age diff 16", base(30, travelers.StyleParty), other(46, travelers.StyleCultural), 0},
		{"same style", base(30, travelers.StyleNature), other(60, travelers.StyleNature), 40},
		{"compatible style", base(30, travelers.StyleCultural), other(60, travelers.StyleRelaxed), 20},
		{"incompatible style", base(30, travelers.StyleNature), other(60, travelers.StyleParty), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgentStrategy{}.Score(tt.a, tt.b))
		})
	}
}

func TestAgentScoreIsBoundedAndSymmetric(t *testing.T) {
	interests := [][]string{{}, {"hiking"}, {"hiking", "food", "art", "surf", "wine", "music", "yoga"}}
	languages := [][]string{{"english"}, {"english", "spanish", "french"}}
	ages := []int{18, 25, 33, 60}

	var profiles []*travelers.Profile
	for _, style := range allStyles {
		for _, in := range interests {
			for _, lang := range languages {
				for _, age := range ages {
					p := aliceProfile()
					p.TravelStyle, p.Interests, p.Languages, p.Age = style, in, lang, age
					profiles = append(profiles, p)
				}
			}
		}
	}

	for _, strategy := range []Strategy{AgentStrategy{}, ManualScanStrategy{}} {
		for _, a := range profiles {
			for _, b := range profiles {
				score := strategy.Score(a, b)
				assert.GreaterOrEqual(t, score, 0)
				assert.LessOrEqual(t, score, 100)
				assert.Equal(t, score, strategy.Score(b, a))
			}
		}
	}

	full := aliceProfile()
	full.Interests = interests[2]
	full.Languages = languages[1]
	assert.Equal(t, 100, AgentStrategy{}.Score(full, full))
}

func TestCompatibleStyles(t *testing.T) {
	pairs := map[[2]travelers.TravelStyle]bool{
		{travelers.StyleAdventure, travelers.StyleNature}: true,
		{travelers.StyleCultural, travelers.StyleRelaxed}: true,
		{travelers.StyleParty, travelers.StyleAdventure}:  true,
	}

	for _, a := range allStyles {
		for _, b := range allStyles {
			want := pairs[[2]travelers.TravelStyle{a, b}] || pairs[[2]travelers.TravelStyle{b, a}]
			assert.Equal(t, want, CompatibleStyles(a, b), "%s/%s", a, b)
		}
	}
}

func TestCommonItemsKeepsFirstOrder(t *testing.T) {
	assert.Equal(t, []string{"c", "a"}, CommonItems([]string{"c", "b", "a"}, []string{"a", "c", "d"}))
	assert.Empty(t, CommonItems(nil, []string{"a"}))
}

func TestManualReasonWithDifferentStyles(t *testing.T) {
	alice, bob := aliceProfile(), bobProfile()
	bob.TravelStyle = travelers.StyleCultural
	assert.Equal(t, "You share 1 common interests!", ManualScanStrategy{}.Reason(context.Background(), alice, bob, 20, []string{"photography"}))
}

func TestManualScoreIsCappedAt100(t *testing.T) {
	alice, bob := aliceProfile(), bobProfile()
	bob.TravelStyle = alice.TravelStyle
	alice.Interests = []string{"hiking", "photography", "diving"}
	bob.Interests = []string{"diving", "photography", "hiking"}

	assert.Equal(t, 100, ManualScanStrategy{}.Score(alice, bob), "60 for style plus 3x20 for interests")

	bob.TravelStyle = travelers.StyleRelaxed
	assert.Equal(t, 60, ManualScanStrategy{}.Score(alice, bob))
}

type staticReasons struct {
	enabled bool
}

func (s staticReasons) Enabled() bool { return s.enabled }

func (s staticReasons) MatchReason(context.Context, *travelers.Profile, *travelers.Profile, int) string {
	return "generated"
}

func TestAgentReasonUsesGenerator(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "generated", AgentStrategy{Generator: staticReasons{enabled: true}}.Reason(ctx, aliceProfile(), bobProfile(), 80, nil))
	assert.Contains(t, AgentStrategy{Generator: staticReasons{}}.Reason(ctx, aliceProfile(), bobProfile(), 80, nil), "common interests")
}
