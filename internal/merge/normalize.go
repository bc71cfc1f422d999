package merge

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeLabel folds case and canonical form so "Noun", "noun " and
// decomposed accents compare equal. A Caser keeps state, so each call gets its own.
func NormalizeLabel(s string) string {
	s = norm.NFD.String(strings.TrimSpace(s))
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}
