// Package tier holds the subscription tiers and the rules gating content behind them.
package tier

import "strings"

type Tier string

const (
	Free  Tier = "free"
	Pro   Tier = "pro"
	Ultra Tier = "ultra"
)

var (
	All = []Tier{Free, Pro, Ultra}

	ranks = map[Tier]int{
		Free:  0,
		Pro:   1,
		Ultra: 2,
	}

	plans = []Plan{
		{
			Tier:        Free,
			Name:        "Free",
			Price:       "$0",
			Period:      "forever",
			Description: "Perfect for getting started",
			Features:    []string{"Access to free courses", "Community support", "Progress tracking"},
		},
		{
			Tier:        Pro,
			Name:        "Pro",
			Price:       "$19",
			Period:      "/month",
			Description: "For serious learners",
			Popular:     true,
			Features: []string{
				"Everything in Free",
				"Access to Pro courses",
				"Priority support",
				"Downloadable resources",
			},
		},
		{
			Tier:        Ultra,
			Name:        "Ultra",
			Price:       "$49",
			Period:      "/month",
			Description: "The complete experience",
			Features: []string{
				"Everything in Pro",
				"AI Tutor access",
				"Ultra exclusive content",
				"1-on-1 mentorship",
				"Early access to new courses",
			},
		},
	}
)

// Plan is a purchasable subscription level.
type Plan struct {
	Tier        Tier     `json:"tier"`
	Name        string   `json:"name"`
	Price       string   `json:"price"`
	Period      string   `json:"period"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Popular     bool     `json:"popular"`
}

// Parse normalizes s into a Tier. ok is false for unknown tiers.
func Parse(s string) (t Tier, ok bool) {
	t = Tier(strings.ToLower(strings.TrimSpace(s)))
	_, ok = ranks[t]
	return t, ok
}

func Valid(t Tier) bool {
	_, ok := ranks[t]
	return ok
}

// Rank returns the position of t in the tier hierarchy. Unknown tiers rank as free.
func Rank(t Tier) int {
	return ranks[t]
}

// Required returns the tier gating content marked with t: free when t is empty, the normalized tier otherwise.
// An unknown tier is returned lowercased as is, and no user tier reaches it.
func Required(t Tier) Tier {
	if strings.TrimSpace(string(t)) == "" {
		return Free
	}
	required, _ := Parse(string(t))
	return required
}

// OrFree returns t, or Free when t is empty or unknown.
func OrFree(t Tier) Tier {
	if !Valid(t) {
		return Free
	}
	return t
}

// HasAccess reports whether a user on userTier may access content gated at contentTier.
// Content without a tier is free for everyone. Content with an unknown tier is closed to everyone.
func HasAccess(userTier, contentTier Tier) bool {
	required := Required(contentTier)
	if required == Free {
		return true
	}
	if !Valid(required) {
		return false
	}
	current, _ := Parse(string(userTier))
	return Rank(OrFree(current)) >= Rank(required)
}

// CanUpgrade reports whether current may be upgraded to target.
func CanUpgrade(current, target Tier) bool {
	return target != Free && Valid(target) && Rank(target) > Rank(OrFree(current))
}

// Upgrades lists the tiers current may be upgraded to.
func Upgrades(current Tier) []Tier {
	out := make([]Tier, 0, len(All))
	for _, t := range All {
		if CanUpgrade(current, t) {
			out = append(out, t)
		}
	}
	return out
}

// Plans returns the pricing plans, cheapest first.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

func (t Tier) Label() string {
	switch t {
	case Pro:
		return "Pro"
	case Ultra:
		return "Ultra"
	case Free, "":
		return "Free"
	default:
		return strings.ToUpper(string(t[:1])) + string(t[1:])
	}
}

// RequiredMessage is the message shown when content needs at least tier t.
func RequiredMessage(t Tier) string {
	return t.Label() + " membership required"
}
