package schema

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FoldLabel canonicalises a categorical label for comparison:
// NFKC normalisation, collapsed whitespace and Unicode case folding.
func FoldLabel(label string) string {
	collapsed := strings.Join(strings.Fields(norm.NFKC.String(label)), " ")
	// Casers carry state, so one is created per call.
	return cases.Fold().String(collapsed)
}

// MatchCategory finds the category whose label folds to the same value as raw
func (e Entry) MatchCategory(raw string) (Category, bool) {
	want := FoldLabel(raw)
	for _, c := range e.Categories {
		if FoldLabel(c.Label) == want {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryForCode returns the category carrying code
func (e Entry) CategoryForCode(code int) (Category, bool) {
	for _, c := range e.Categories {
		if c.Code == code {
			return c, true
		}
	}
	return Category{}, false
}
