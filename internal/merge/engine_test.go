package merge

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sillsdev/liftmerge/internal/domain"
)

func TestImportTwiceKeepsCounts(t *testing.T) {
	entries := []domain.LiftEntry{
		withRelations(lexEntry(1, "do", lexSense(11, "make")), relation("Compare", 2), relation("Antonym", 3)),
		lexEntry(2, "todo", lexSense(21, "all")),
		lexEntry(3, "undo", lexSense(31, "reverse")),
		withRelations(lexEntry(4, "undone"), domain.LiftRelation{
			Type: componentRelation, Ref: "undo_" + gid(3),
			Traits: []domain.LiftTrait{{Name: "complex-form-type", Value: "Derivative"}},
		}),
	}
	lex := domain.NewLexicon()
	c := importCase{style: domain.KeepNew, ranges: relationRanges(), entries: entries}

	runImport(t, lex, c)
	first := []int{lex.EntryCount(), countSenses(lex), len(lex.Links()), countEntryRefs(lex), len(lex.ReferenceTypes())}

	second := runImport(t, lex, c)
	again := []int{lex.EntryCount(), countSenses(lex), len(lex.Links()), countEntryRefs(lex), len(lex.ReferenceTypes())}

	assert.Equal(t, first, again)
	assert.Equal(t, []int{4, 3, 2, 1, 4}, again)
	assert.Equal(t, 4, second.EntriesProcessed)
	assert.Equal(t, 4, second.Merged)
	assert.Zero(t, second.Created)
}

func TestCollectionIsNeverFragmented(t *testing.T) {
	do := func(rels ...domain.LiftRelation) domain.LiftEntry { return withRelations(lexEntry(1, "do"), rels...) }
	todo := func(rels ...domain.LiftRelation) domain.LiftEntry { return withRelations(lexEntry(2, "todo"), rels...) }
	to := func(rels ...domain.LiftRelation) domain.LiftEntry { return withRelations(lexEntry(3, "to"), rels...) }

	tests := []struct {
		name    string
		entries []domain.LiftEntry
	}{
		{
			name: "all pairwise",
			entries: []domain.LiftEntry{
				do(relation("Compare", 2), relation("Compare", 3)),
				todo(relation("Compare", 1), relation("Compare", 3)),
				to(relation("Compare", 1), relation("Compare", 2)),
			},
		},
		{
			name: "reverse order",
			entries: []domain.LiftEntry{
				to(relation("Compare", 2), relation("Compare", 1)),
				todo(relation("Compare", 3), relation("Compare", 1)),
				do(relation("Compare", 3), relation("Compare", 2)),
			},
		},
		{
			name: "ring",
			entries: []domain.LiftEntry{
				do(relation("Compare", 2)),
				todo(relation("Compare", 3)),
				to(relation("Compare", 1)),
			},
		},
		{
			name: "one side only",
			entries: []domain.LiftEntry{
				todo(),
				to(),
				do(relation("Compare", 2), relation("Compare", 3)),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lex := domain.NewLexicon()
			runImport(t, lex, importCase{style: domain.KeepNew, ranges: relationRanges(), entries: tt.entries})

			links := lex.LinksOfType(uid(900))
			require.Len(t, links, 1)
			assert.ElementsMatch(t, []uuid.UUID{uid(1), uid(2), uid(3)}, links[0].Targets)

			runImport(t, lex, importCase{style: domain.KeepNew, ranges: relationRanges(), entries: tt.entries})
			assert.Len(t, lex.LinksOfType(uid(900)), 1)
		})
	}
}

func TestCollectionsCombinedWhenOwnerHoldsTwo(t *testing.T) {
	lex := domain.NewLexicon()
	runImport(t, lex, importCase{style: domain.KeepNew, ranges: relationRanges(), entries: []domain.LiftEntry{
		withRelations(lexEntry(1, "a"), relation("Compare", 2)),
		lexEntry(2, "b"),
	}})
	runImport(t, lex, importCase{style: domain.KeepOld, entries: []domain.LiftEntry{
		withRelations(lexEntry(3, "c"), relation("Compare", 1)),
	}})
	require.Len(t, lex.LinksContaining(uid(1), uid(900)), 2)

	res := runImport(t, lex, importCase{style: domain.KeepNew, entries: []domain.LiftEntry{
		withRelations(lexEntry(1, "a"), relation("Compare", 2), relation("Compare", 3)),
	}})
	links := lex.LinksOfType(uid(900))
	require.Len(t, links, 1)
	assert.ElementsMatch(t, []uuid.UUID{uid(1), uid(2), uid(3)}, links[0].Targets)

	var combined bool
	for _, entry := range res.Log {
		combined = combined || entry.Message == "combined collections"
	}
	assert.True(t, combined)
}

func TestPairDeclaredOnOneEndIsVisibleFromBoth(t *testing.T) {
	lex := domain.NewLexicon()
	runImport(t, lex, importCase{style: domain.KeepNew, ranges: relationRanges(), entries: []domain.LiftEntry{
		withRelations(lexEntry(1, "hot"), relation("Antonym", 2)),
		lexEntry(2, "cold"),
	}})

	fromHot := lex.LinksContaining(uid(1), uid(901))
	fromCold := lex.LinksContaining(uid(2), uid(901))
	require.Len(t, fromHot, 1)
	require.Len(t, fromCold, 1)
	assert.Equal(t, fromHot[0].GUID, fromCold[0].GUID)
	assert.Len(t, fromHot[0].Targets, 2)
}

func TestSequenceReorderedInPlace(t *testing.T) {
	lex := domain.NewLexicon()
	c := importCase{style: domain.KeepNew, ranges: relationRanges(), entries: []domain.LiftEntry{
		withRelations(lexEntry(1, "monday"), ordered("Calendar", 2, 1), ordered("Calendar", 3, 2)),
		lexEntry(2, "tuesday"),
		lexEntry(3, "wednesday"),
	}}
	runImport(t, lex, c)
	links := lex.LinksOfType(uid(902))
	require.Len(t, links, 1)
	assert.Equal(t, []uuid.UUID{uid(1), uid(2), uid(3)}, links[0].Targets)
	first := links[0].GUID

	c.entries[0] = withRelations(lexEntry(1, "monday"), ordered("Calendar", 2, 2), ordered("Calendar", 3, 1))
	runImport(t, lex, c)
	links = lex.LinksOfType(uid(902))
	require.Len(t, links, 1)
	assert.Equal(t, first, links[0].GUID)
	assert.Equal(t, []uuid.UUID{uid(1), uid(3), uid(2)}, links[0].Targets)
}

func TestSequenceDeclaredByEveryMember(t *testing.T) {
	week := func(mon, tue, wed int) []domain.LiftEntry {
		return []domain.LiftEntry{
			withRelations(lexEntry(1, "monday"), ordered("Calendar", 2, tue), ordered("Calendar", 3, wed)),
			withRelations(lexEntry(2, "tuesday"), ordered("Calendar", 1, mon), ordered("Calendar", 3, wed)),
			withRelations(lexEntry(3, "wednesday"), ordered("Calendar", 1, mon), ordered("Calendar", 2, tue)),
		}
	}
	lex := domain.NewLexicon()
	runImport(t, lex, importCase{style: domain.KeepNew, ranges: relationRanges(), entries: week(0, 1, 2)})

	links := lex.LinksOfType(uid(902))
	require.Len(t, links, 1)
	assert.Equal(t, []uuid.UUID{uid(1), uid(2), uid(3)}, links[0].Targets)
	first := links[0].GUID

	runImport(t, lex, importCase{style: domain.KeepNew, entries: week(2, 1, 0)})
	links = lex.LinksOfType(uid(902))
	require.Len(t, links, 1)
	assert.Equal(t, first, links[0].GUID)
	assert.Equal(t, []uuid.UUID{uid(3), uid(2), uid(1)}, links[0].Targets)
}

func TestAdditiveStylesKeepRelationsApart(t *testing.T) {
	tests := []struct {
		name  string
		style domain.MergeStyle
		again domain.LiftEntry
	}{
		{name: "keep old, relation repeated", style: domain.KeepOld, again: withRelations(lexEntry(1, "a"), relation("Compare", 2))},
		{name: "keep old, relation omitted", style: domain.KeepOld, again: lexEntry(1, "a")},
		{name: "keep both, relation repeated", style: domain.KeepBoth, again: withRelations(lexEntry(1, "a"), relation("Compare", 2))},
		{name: "keep both, relation omitted", style: domain.KeepBoth, again: lexEntry(1, "a")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lex := domain.NewLexicon()
			runImport(t, lex, importCase{style: domain.KeepNew, ranges: relationRanges(), entries: []domain.LiftEntry{
				withRelations(lexEntry(1, "a"), relation("Compare", 2)),
				lexEntry(2, "b"),
			}})
			runImport(t, lex, importCase{style: domain.KeepOld, entries: []domain.LiftEntry{
				withRelations(lexEntry(3, "c"), relation("Compare", 1)),
			}})

			res := runImport(t, lex, importCase{style: tt.style, entries: []domain.LiftEntry{tt.again}})

			links := lex.LinksOfType(uid(900))
			require.Len(t, links, 2)
			assert.ElementsMatch(t, []uuid.UUID{uid(1), uid(2)}, links[0].Targets)
			assert.ElementsMatch(t, []uuid.UUID{uid(3), uid(1)}, links[1].Targets)
			for _, entry := range res.Log {
				assert.NotEqual(t, "combined collections", entry.Message)
				assert.NotEqual(t, domain.LogDeleted, entry.Kind)
			}
		})
	}
}

func TestTreeWholeAndPartShareOneLink(t *testing.T) {
	lex := domain.NewLexicon()
	runImport(t, lex, importCase{style: domain.KeepNew, ranges: relationRanges(), entries: []domain.LiftEntry{
		withRelations(lexEntry(3, "wheel"), relation("Whole", 1)),
		withRelations(lexEntry(1, "car"), relation("Part", 2), relation("Part", 3)),
		lexEntry(2, "door"),
		withRelations(lexEntry(4, "seat"), relation("Whole", 1)),
	}})

	links := lex.LinksOfType(uid(903))
	require.Len(t, links, 1)
	assert.Equal(t, uid(1), links[0].Head())
	assert.ElementsMatch(t, []uuid.UUID{uid(1), uid(2), uid(3), uid(4)}, links[0].Targets)
}

func TestKeepOnlyNewRemovesDroppedRelation(t *testing.T) {
	lex := domain.NewLexicon()
	runImport(t, lex, importCase{style: domain.KeepNew, ranges: relationRanges(), entries: []domain.LiftEntry{
		withRelations(lexEntry(1, "hot"), relation("Antonym", 2), relation("Compare", 3)),
		lexEntry(2, "cold"),
		lexEntry(3, "warm"),
		withRelations(lexEntry(4, "tepid"), relation("Compare", 3)),
	}})
	require.Len(t, lex.LinksContaining(uid(1), uuid.Nil), 2)
	require.Len(t, lex.LinksContaining(uid(3), uid(900)), 1)

	runImport(t, lex, importCase{style: domain.KeepOnlyNew, entries: []domain.LiftEntry{
		lexEntry(1, "hot"),
	}})

	assert.Empty(t, lex.LinksContaining(uid(1), uuid.Nil))
	assert.Empty(t, lex.LinksContaining(uid(2), uid(901)))
	compare := lex.LinksContaining(uid(3), uid(900))
	require.Len(t, compare, 1)
	assert.ElementsMatch(t, []uuid.UUID{uid(3), uid(4)}, compare[0].Targets)
}

func TestKeepNewOnlyRemovesDeclaredTypes(t *testing.T) {
	lex := domain.NewLexicon()
	runImport(t, lex, importCase{style: domain.KeepNew, ranges: relationRanges(), entries: []domain.LiftEntry{
		withRelations(lexEntry(1, "hot"), relation("Antonym", 2), relation("Compare", 3)),
		lexEntry(2, "cold"),
		lexEntry(3, "warm"),
	}})

	runImport(t, lex, importCase{style: domain.KeepNew, entries: []domain.LiftEntry{
		withRelations(lexEntry(1, "hot"), relation("Compare", 4)),
		lexEntry(4, "tepid"),
	}})

	assert.Len(t, lex.LinksContaining(uid(1), uid(901)), 1, "antonym untouched")
	compare := lex.LinksContaining(uid(1), uid(900))
	require.Len(t, compare, 1)
	assert.ElementsMatch(t, []uuid.UUID{uid(1), uid(4)}, compare[0].Targets)
	left := lex.LinksContaining(uid(3), uid(900))
	require.Len(t, left, 1)
	assert.Equal(t, []uuid.UUID{uid(3)}, left[0].Targets)
}

func TestComplexFormComponentsStayTogether(t *testing.T) {
	compound := []domain.LiftTrait{{Name: "complex-form-type", Value: "Compound"}}
	house := withRelations(lexEntry(2, "greenhouse"),
		domain.LiftRelation{Type: componentRelation, Ref: "green_" + gid(1), Traits: compound},
		domain.LiftRelation{Type: componentRelation, Ref: "greenhouse_" + gid(2), Traits: compound},
	)
	lex := domain.NewLexicon()
	c := importCase{style: domain.KeepNew, entries: []domain.LiftEntry{lexEntry(1, "green"), house}}

	runImport(t, lex, c)
	runImport(t, lex, c)

	e, ok := lex.Entry(uid(2))
	require.True(t, ok)
	refs := e.EntryRefsOfKind(domain.RefComplexForm)
	require.Len(t, refs, 1)
	assert.Equal(t, []uuid.UUID{uid(1), uid(2)}, refs[0].Components)
	require.Len(t, refs[0].Types, 1)
	item, ok := lex.Item(refs[0].Types[0])
	require.True(t, ok)
	assert.Equal(t, "Compound", item.LiftID)
}

func TestVariantPlaceholderAbsorbed(t *testing.T) {
	spelling := []domain.LiftTrait{{Name: "variant-type", Value: "Spelling Variant"}}
	lex := domain.NewLexicon()
	v := lexEntry(2, "colour")
	v.Variants = []domain.LiftVariant{{Traits: spelling}}
	runImport(t, lex, importCase{style: domain.KeepNew, entries: []domain.LiftEntry{lexEntry(1, "color"), v}})

	e, _ := lex.Entry(uid(2))
	require.Len(t, e.EntryRefs, 1)
	assert.True(t, e.EntryRefs[0].IsPlaceholder())

	v.Variants = []domain.LiftVariant{{Ref: gid(1), Traits: spelling}}
	runImport(t, lex, importCase{style: domain.KeepNew, entries: []domain.LiftEntry{v}})
	require.Len(t, e.EntryRefs, 1)
	assert.Equal(t, []uuid.UUID{uid(1)}, e.EntryRefs[0].Components)
	assert.Equal(t, domain.RefVariant, e.EntryRefs[0].Kind)
}

func TestCustomIntegerFieldIsTyped(t *testing.T) {
	lex := domain.NewLexicon()
	e := lexEntry(1, "kuda")
	e.Traits = []domain.LiftTrait{{Name: "CustomFldEntry Number", Value: "13"}}
	runImport(t, lex, importCase{
		style:   domain.KeepNew,
		headers: []domain.FieldHeader{{Tag: "CustomFldEntry Number", Spec: "Class=LexEntry; Type=Integer; WsSelector=0"}},
		entries: []domain.LiftEntry{e},
	})

	def, ok := lex.FieldDef(domain.OwnerEntry, "CustomFldEntry Number")
	require.True(t, ok)
	assert.Equal(t, domain.FieldInteger, def.Type)
	v, ok := lex.FieldValue(uid(1), "CustomFldEntry Number")
	require.True(t, ok)
	assert.Equal(t, 13, v.Int)
	stored, _ := lex.Entry(uid(1))
	assert.NotContains(t, stored.Residue, "CustomFldEntry Number")
}

func TestRedefinedFieldTypeKeepsDefinitionAndResidue(t *testing.T) {
	lex := domain.NewLexicon()
	first := lexEntry(1, "kuda")
	first.Fields = []domain.LiftField{{Type: "Number", Forms: ms("twelve")}}
	runImport(t, lex, importCase{style: domain.KeepNew, entries: []domain.LiftEntry{first}})

	again := lexEntry(1, "kuda")
	again.Traits = []domain.LiftTrait{{Name: "Number", Value: "13"}}
	other := lexEntry(2, "sapi")
	other.Traits = []domain.LiftTrait{{Name: "Number", Value: "4"}}
	res := runImport(t, lex, importCase{
		style:   domain.KeepNew,
		headers: []domain.FieldHeader{{Tag: "Number", Spec: "Class=LexEntry; Type=Integer"}},
		entries: []domain.LiftEntry{again, other},
	})

	def, ok := lex.FieldDef(domain.OwnerEntry, "Number")
	require.True(t, ok)
	assert.Equal(t, domain.FieldMultiUnicode, def.Type)
	v, ok := lex.FieldValue(uid(1), "Number")
	require.True(t, ok)
	assert.Equal(t, "twelve", v.Multi.Get("en"))

	stored, _ := lex.Entry(uid(1))
	assert.Contains(t, stored.Residue, `<trait name="Number" value="13"/>`)

	var typeConflicts, warnings int
	for _, entry := range res.Log {
		if entry.Kind == domain.LogConflict && entry.ObjectKind == domain.KindField {
			typeConflicts++
			assert.Equal(t, string(domain.FieldMultiUnicode), entry.Old)
			assert.Equal(t, string(domain.FieldInteger), entry.New)
		}
		if entry.Kind == domain.LogWarning && entry.Field == "Number" {
			warnings++
		}
	}
	assert.Equal(t, 1, typeConflicts)
	assert.Equal(t, 2, warnings)
}

func TestUnresolvedTargetIsLoggedAndSkipped(t *testing.T) {
	lex := domain.NewLexicon()
	res := runImport(t, lex, importCase{style: domain.KeepNew, ranges: relationRanges(), entries: []domain.LiftEntry{
		withRelations(lexEntry(1, "alone"), relation("Antonym", 99)),
	}})
	assert.Equal(t, 1, res.EntriesProcessed)
	assert.Empty(t, lex.Links())
	var unresolved int
	for _, entry := range res.Log {
		if entry.Kind == domain.LogUnresolved {
			unresolved++
		}
	}
	assert.Equal(t, 1, unresolved)
}

func TestMergeStyles(t *testing.T) {
	original := lexEntry(1, "kuda", lexSense(11, "horse"))
	changed := lexEntry(1, "kudaa", lexSense(11, "pony"))
	changed.CitationForm = domain.MultiString{"seh": "kudaa"}

	tests := []struct {
		name      string
		style     domain.MergeStyle
		entries   int
		lexeme    string
		gloss     string
		citation  string
		conflicts bool
	}{
		{name: "keep new", style: domain.KeepNew, entries: 1, lexeme: "kudaa", gloss: "pony", citation: "kudaa"},
		{name: "keep old", style: domain.KeepOld, entries: 1, lexeme: "kuda", gloss: "horse", citation: "kudaa", conflicts: true},
		{name: "keep both", style: domain.KeepBoth, entries: 2, lexeme: "kuda", gloss: "horse", conflicts: true},
		{name: "keep only new", style: domain.KeepOnlyNew, entries: 1, lexeme: "kudaa", gloss: "pony", citation: "kudaa"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lex := domain.NewLexicon()
			runImport(t, lex, importCase{style: domain.KeepNew, entries: []domain.LiftEntry{original}})
			res := runImport(t, lex, importCase{style: tt.style, entries: []domain.LiftEntry{changed}})

			assert.Equal(t, tt.entries, lex.EntryCount())
			e, ok := lex.Entry(uid(1))
			require.True(t, ok)
			assert.Equal(t, tt.lexeme, e.LexemeForm.Get("seh"))
			assert.Equal(t, tt.citation, e.CitationForm.Get("seh"))
			require.Len(t, e.Senses, 1)
			assert.Equal(t, tt.gloss, e.Senses[0].Gloss.Get("en"))

			var conflicts int
			for _, entry := range res.Log {
				if entry.Kind == domain.LogConflict {
					conflicts++
				}
			}
			assert.Equal(t, tt.conflicts, conflicts > 0)
		})
	}
}

func TestKeepBothSiblingGetsOwnSenses(t *testing.T) {
	lex := domain.NewLexicon()
	runImport(t, lex, importCase{style: domain.KeepNew, entries: []domain.LiftEntry{lexEntry(1, "kuda", lexSense(11, "horse"))}})
	runImport(t, lex, importCase{style: domain.KeepBoth, entries: []domain.LiftEntry{lexEntry(1, "kudaa", lexSense(11, "horse"))}})

	require.Equal(t, 2, lex.EntryCount())
	for _, e := range lex.Entries() {
		require.Len(t, e.Senses, 1)
		assert.Equal(t, e.GUID, e.Senses[0].Entry)
	}
	assert.Equal(t, 2, countSenses(lex))
}

func TestKeepBothSplitsOnAnyConflictingValue(t *testing.T) {
	source := []domain.FieldHeader{{Tag: "Source", Spec: "Class=LexEntry; Type=String"}}
	withSource := func(value string) domain.LiftEntry {
		e := lexEntry(1, "kuda", lexSense(11, "horse"))
		e.Fields = []domain.LiftField{{Type: "Source", Forms: ms(value)}}
		return e
	}
	withNote := func(text string) domain.LiftEntry {
		e := lexEntry(1, "kuda", lexSense(11, "horse"))
		e.Notes = []domain.LiftNote{{Forms: ms(text)}}
		return e
	}
	withPOS := func(pos string) domain.LiftEntry {
		sense := lexSense(11, "horse")
		sense.GrammaticalInfo = pos
		return lexEntry(1, "kuda", sense)
	}

	tests := []struct {
		name     string
		original domain.LiftEntry
		incoming domain.LiftEntry
		entries  int
	}{
		{name: "custom field", original: withSource("Smith 1990"), incoming: withSource("Jones 2001"), entries: 2},
		{name: "same custom field", original: withSource("Smith 1990"), incoming: withSource("Smith 1990"), entries: 1},
		{name: "note", original: withNote("common"), incoming: withNote("rare"), entries: 2},
		{name: "grammatical info", original: withPOS("Noun"), incoming: withPOS("Verb"), entries: 2},
		{name: "grammatical info filled in", original: withPOS(""), incoming: withPOS("Verb"), entries: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lex := domain.NewLexicon()
			runImport(t, lex, importCase{style: domain.KeepNew, headers: source, entries: []domain.LiftEntry{tt.original}})
			runImport(t, lex, importCase{style: domain.KeepBoth, headers: source, entries: []domain.LiftEntry{tt.incoming}})

			assert.Equal(t, tt.entries, lex.EntryCount())
		})
	}

	lex := domain.NewLexicon()
	runImport(t, lex, importCase{style: domain.KeepNew, headers: source, entries: []domain.LiftEntry{withSource("Smith 1990")}})
	runImport(t, lex, importCase{style: domain.KeepBoth, headers: source, entries: []domain.LiftEntry{withSource("Jones 2001")}})
	kept, ok := lex.FieldValue(uid(1), "Source")
	require.True(t, ok)
	assert.Equal(t, "Smith 1990", kept.Text)
}

func TestKeepOnlyNewDeletesMissingChildren(t *testing.T) {
	lex := domain.NewLexicon()
	full := lexEntry(1, "kuda", lexSense(11, "horse"), lexSense(12, "steed"))
	full.Pronunciations = []domain.LiftPronunciation{{GUID: gid(13), Forms: domain.MultiString{"seh-fonipa": "kuda"}}}
	runImport(t, lex, importCase{style: domain.KeepNew, entries: []domain.LiftEntry{full}})

	runImport(t, lex, importCase{style: domain.KeepOnlyNew, entries: []domain.LiftEntry{lexEntry(1, "kuda", lexSense(11, "horse"))}})

	e, _ := lex.Entry(uid(1))
	require.Len(t, e.Senses, 1)
	assert.Equal(t, uid(11), e.Senses[0].GUID)
	assert.Empty(t, e.Pronunciations)
	_, ok := lex.Sense(uid(12))
	assert.False(t, ok)
}

func TestTrustTimestampsSkipsOlderRecords(t *testing.T) {
	lex := domain.NewLexicon()
	stamp := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	first := lexEntry(1, "kuda", lexSense(11, "horse"))
	first.DateModified = stamp
	runImport(t, lex, importCase{style: domain.KeepNew, entries: []domain.LiftEntry{first}})

	stale := lexEntry(1, "kudaa", lexSense(11, "pony"))
	stale.DateModified = stamp
	res := runImport(t, lex, importCase{style: domain.KeepNew, trust: true, entries: []domain.LiftEntry{stale}})
	assert.Equal(t, 1, res.Skipped)
	e, _ := lex.Entry(uid(1))
	assert.Equal(t, "kuda", e.LexemeForm.Get("seh"))

	res = runImport(t, lex, importCase{style: domain.KeepNew, trust: false, entries: []domain.LiftEntry{stale}})
	assert.Zero(t, res.Skipped)
	assert.Equal(t, "kudaa", e.LexemeForm.Get("seh"))
}

func TestEmptySensesAndTranslationsAreDropped(t *testing.T) {
	lex := domain.NewLexicon()
	rec := lexEntry(1, "kuda", lexSense(11, "horse"), domain.LiftSense{GUID: gid(12), Gloss: domain.MultiString{"en": ""}})
	rec.Senses[0].Examples = []domain.LiftExample{
		{Forms: domain.MultiString{"seh": "kuda iyi"}, Translations: []domain.LiftTranslation{
			{Type: "Free translation", Forms: ms("this horse")},
			{Type: "Reversal", Forms: domain.MultiString{"en": ""}},
		}},
		{Forms: domain.MultiString{"seh": domain.NoValue}},
	}
	runImport(t, lex, importCase{style: domain.KeepNew, entries: []domain.LiftEntry{rec}})

	e, _ := lex.Entry(uid(1))
	require.Len(t, e.Senses, 1)
	require.Len(t, e.Senses[0].Examples, 1)
	assert.Len(t, e.Senses[0].Examples[0].Translations, 1)
}

func TestFallbackKeyMatchesGUIDlessRecord(t *testing.T) {
	lex := domain.NewLexicon()
	runImport(t, lex, importCase{style: domain.KeepNew, entries: []domain.LiftEntry{lexEntry(1, "kuda", lexSense(11, "horse"))}})

	anonymous := domain.LiftEntry{LexicalUnit: domain.MultiString{"seh": "kuda"}, Senses: []domain.LiftSense{{Gloss: ms("horse"), Definition: ms("large animal")}}}
	runImport(t, lex, importCase{style: domain.KeepNew, entries: []domain.LiftEntry{anonymous}})

	require.Equal(t, 1, lex.EntryCount())
	e, _ := lex.Entry(uid(1))
	require.Len(t, e.Senses, 1)
	assert.Equal(t, "large animal", e.Senses[0].Definition.Get("en"))
}

func TestSenseRelationsResolveByLiftID(t *testing.T) {
	lex := domain.NewLexicon()
	a := lexEntry(1, "big", lexSense(11, "large"))
	a.Senses[0].Relations = []domain.LiftRelation{{Type: "Antonym", Ref: "s_" + gid(21)}}
	b := lexEntry(2, "small", lexSense(21, "little"))
	b.Senses[0].GUID = ""
	runImport(t, lex, importCase{style: domain.KeepNew, ranges: relationRanges(), entries: []domain.LiftEntry{a, b}})

	links := lex.LinksOfType(uid(901))
	require.Len(t, links, 1)
	assert.ElementsMatch(t, []uuid.UUID{uid(11), uid(21)}, links[0].Targets)
	assert.Equal(t, domain.KindSense, lex.KindOf(uid(21)))
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	eng := NewEngine(domain.NewLexicon(), Options{})
	_, err := eng.Run(ctx, NewSliceSource([]domain.LiftEntry{lexEntry(1, "kuda")}))
	assert.ErrorIs(t, err, context.Canceled)
}
