package merge

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sillsdev/liftmerge/internal/domain"
)

func gid(n int) string {
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
}

func uid(n int) uuid.UUID {
	return uuid.MustParse(gid(n))
}

func ms(text string) domain.MultiString {
	return domain.MultiString{"en": text}
}

func lexEntry(n int, form string, senses ...domain.LiftSense) domain.LiftEntry {
	return domain.LiftEntry{
		ID:          form + "_" + gid(n),
		GUID:        gid(n),
		LexicalUnit: domain.MultiString{"seh": form},
		Senses:      senses,
	}
}

func lexSense(n int, gloss string) domain.LiftSense {
	return domain.LiftSense{ID: "s_" + gid(n), GUID: gid(n), Gloss: ms(gloss)}
}

func relation(typ string, target int) domain.LiftRelation {
	return domain.LiftRelation{Type: typ, Ref: gid(target)}
}

func ordered(typ string, target, order int) domain.LiftRelation {
	return domain.LiftRelation{Type: typ, Ref: gid(target), Order: &order}
}

func withRelations(e domain.LiftEntry, rels ...domain.LiftRelation) domain.LiftEntry {
	e.Relations = append(e.Relations, rels...)
	return e
}

func mappingTrait(kind string) []domain.LiftTrait {
	return []domain.LiftTrait{{Name: "referenceType", Value: kind}}
}

func relationRanges() []domain.LiftRange {
	return []domain.LiftRange{{
		ID: RangeLexicalRelation,
		Elements: []domain.LiftRangeElement{
			{ID: "Compare", GUID: gid(900), Label: ms("Compare"), Traits: mappingTrait("collection")},
			{ID: "Antonym", GUID: gid(901), Label: ms("Antonym"), Traits: mappingTrait("pair")},
			{ID: "Calendar", GUID: gid(902), Label: ms("Calendar"), Traits: mappingTrait("sequence")},
			{ID: "Part", GUID: gid(903), Label: ms("Part"), ReverseLabel: ms("Whole"), Traits: mappingTrait("tree")},
		},
	}}
}

type importCase struct {
	style   domain.MergeStyle
	trust   bool
	ranges  []domain.LiftRange
	headers []domain.FieldHeader
	entries []domain.LiftEntry
}

func runImport(t *testing.T, lex *domain.Lexicon, c importCase) Result {
	t.Helper()
	eng := NewEngine(lex, Options{Style: c.style, TrustTimestamps: c.trust})
	eng.ImportRanges(c.ranges)
	eng.AddHeaders(c.headers)
	res, err := eng.Run(context.Background(), NewSliceSource(c.entries))
	require.NoError(t, err)
	return res
}

func countEntryRefs(lex *domain.Lexicon) int {
	n := 0
	for _, e := range lex.Entries() {
		n += len(e.EntryRefs)
	}
	return n
}

func countSenses(lex *domain.Lexicon) int {
	n := 0
	for _, e := range lex.Entries() {
		n += len(e.Senses)
	}
	return n
}
