package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAccess(t *testing.T) {
	tests := []struct {
		name    string
		user    Tier
		content Tier
		want    bool
	}{
		{name: "no content tier", user: Free, content: "", want: true},
		{name: "free content, no user tier", user: "", content: Free, want: true},
		{name: "free content", user: Free, content: Free, want: true},
		{name: "pro content, free user", user: Free, content: Pro, want: false},
		{name: "pro content, no user tier", user: "", content: Pro, want: false},
		{name: "pro content, pro user", user: Pro, content: Pro, want: true},
		{name: "pro content, ultra user", user: Ultra, content: Pro, want: true},
		{name: "ultra content, pro user", user: Pro, content: Ultra, want: false},
		{name: "ultra content, ultra user", user: Ultra, content: Ultra, want: true},
		{name: "ultra content, unknown user tier", user: "gold", content: Ultra, want: false},
		{name: "capitalized pro content, free user", user: Free, content: "Pro", want: false},
		{name: "capitalized pro content, pro user", user: Pro, content: "Pro", want: true},
		{name: "uppercase ultra content, free user", user: Free, content: "ULTRA", want: false},
		{name: "uppercase ultra content, ultra user", user: Ultra, content: "ULTRA", want: true},
		{name: "pro content, uppercase user tier", user: "PRO", content: Pro, want: true},
		{name: "capitalized free content", user: "", content: "Free", want: true},
		{name: "unknown content tier, free user", user: Free, content: "gold", want: false},
		{name: "unknown content tier, ultra user", user: Ultra, content: "gold", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAccess(tt.user, tt.content))
		})
	}
}

func TestHasAccess_rankIsMonotonic(t *testing.T) {
	for _, u := range All {
		for _, c := range All {
			assert.Equal(t, Rank(u) >= Rank(c), HasAccess(u, c), "user %s content %s", u, c)
		}
	}
}

func TestRequired(t *testing.T) {
	assert.Equal(t, Free, Required(""))
	assert.Equal(t, Free, Required("  "))
	assert.Equal(t, Pro, Required("Pro"))
	assert.Equal(t, Ultra, Required(" ULTRA"))
	assert.Equal(t, Tier("gold"), Required("Gold"))
}

func TestUpgrades(t *testing.T) {
	assert.Equal(t, []Tier{Pro, Ultra}, Upgrades(Free))
	assert.Equal(t, []Tier{Pro, Ultra}, Upgrades(""))
	assert.Equal(t, []Tier{Ultra}, Upgrades(Pro))
	assert.Empty(t, Upgrades(Ultra))

	assert.False(t, CanUpgrade(Pro, Free))
	assert.False(t, CanUpgrade(Pro, Pro))
	assert.False(t, CanUpgrade(Free, "gold"))
	assert.True(t, CanUpgrade(Pro, Ultra))
}

func TestParse(t *testing.T) {
	got, ok := Parse(" ULTRA ")
	assert.True(t, ok)
	assert.Equal(t, Ultra, got)

	_, ok = Parse("gold")
	assert.False(t, ok)
}

func TestPlans(t *testing.T) {
	plans := Plans()
	if assert.Len(t, plans, 3) {
		assert.Equal(t, Free, plans[0].Tier)
		assert.True(t, plans[1].Popular)
		assert.Equal(t, "$49", plans[2].Price)
	}
	plans[0].Name = "changed"
	assert.Equal(t, "Free", Plans()[0].Name)
}

func TestRequiredMessage(t *testing.T) {
	assert.Equal(t, "Ultra membership required", RequiredMessage(Ultra))
	assert.Equal(t, "Pro membership required", RequiredMessage(Pro))
	assert.Equal(t, "Gold membership required", RequiredMessage(Required("gold")))
	assert.Equal(t, "Free", Tier("").Label())
}
