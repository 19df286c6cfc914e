// Package messages maps campaign objectives to outreach message templates.
//
// The deterministic path (Select) is a pure keyword lookup. Suggester layers
// an optional generative-text enrichment on top of it that degrades to the
// deterministic templates on any failure.
package messages

import (
	"strings"

	"github.com/solatis/segmentkeeper/internal/types"
)

// TemplateSet names a group of canned templates.
type TemplateSet string

const (
	SetWelcome     TemplateSet = "welcome"
	SetRetention   TemplateSet = "retention"
	SetDiscount    TemplateSet = "discount"
	SetAnniversary TemplateSet = "anniversary"
	SetDefault     TemplateSet = "default"
)

// keywordGroup maps objective keywords to a template set.
type keywordGroup struct {
	set      TemplateSet
	keywords []string
}

// keywordGroups are checked in order; the first group with any keyword match wins.
var keywordGroups = []keywordGroup{
	{set: SetWelcome, keywords: []string{"welcome", "new"}},
	{set: SetRetention, keywords: []string{"retention", "come back"}},
	{set: SetDiscount, keywords: []string{"discount", "sale"}},
	{set: SetAnniversary, keywords: []string{"anniversary", "loyalty"}},
}

var templates = map[TemplateSet][]string{
	SetWelcome: {
		"Hi [Name], welcome to our community! Enjoy 10% off your first purchase with code WELCOME10",
		"Hello [Name], we're thrilled to have you! Here's 15% off your first order as our gift",
		"Dear [Name], welcome! Start shopping with an exclusive 20% discount for new members",
	},
	SetRetention: {
		"Hi [Name], we miss you! Here's 15% off to welcome you back",
		"Hello [Name], your favorites are waiting! Enjoy 20% off your next purchase",
		"Dear [Name], as a valued customer, enjoy this exclusive 25% discount",
	},
	SetDiscount: {
		"Hi [Name], enjoy 20% off everything today only! Use code SAVE20",
		"Hello [Name], flash sale! Get 30% off for the next 24 hours",
		"Dear [Name], exclusive offer: 25% off all items this week",
	},
	SetAnniversary: {
		"Hi [Name], happy anniversary! Enjoy a special 25% discount",
		"Hello [Name], thank you for being with us! Here's 30% off to celebrate",
		"Dear [Name], we appreciate your loyalty! Enjoy this anniversary gift of 35% off",
	},
	SetDefault: {
		"Hi [Name], we have a special offer just for you!",
		"Hello [Name], don't miss out on our exclusive deal!",
		"Dear [Name], thank you for being a valued customer!",
	},
}

// Classify returns the template set selected for an objective.
// Matching is a case-insensitive substring test.
func Classify(objective string) TemplateSet {
	lower := strings.ToLower(objective)
	for _, g := range keywordGroups {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return g.set
			}
		}
	}
	return SetDefault
}

// Select returns the candidate templates for an objective.
// The returned slice is a copy; callers may modify it.
func Select(objective string) []string {
	set := templates[Classify(objective)]
	out := make([]string, len(set))
	copy(out, set)
	return out
}

// HasPlaceholder reports whether msg contains the recipient name token.
func HasPlaceholder(msg string) bool {
	return strings.Contains(msg, types.NamePlaceholder)
}
