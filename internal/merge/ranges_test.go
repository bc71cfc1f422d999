package merge

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sillsdev/liftmerge/internal/domain"
)

func locationRange(elements ...domain.LiftRangeElement) domain.LiftRange {
	return domain.LiftRange{ID: "location", GUID: gid(500), Elements: elements}
}

func TestRangeImportIsIdempotentForSupersets(t *testing.T) {
	lex := domain.NewLexicon()
	log := &domain.MergeLog{}
	small := []domain.LiftRange{locationRange(
		domain.LiftRangeElement{ID: "africa", GUID: gid(501), Label: ms("Africa")},
		domain.LiftRangeElement{ID: "kenya", GUID: gid(502), Parent: "africa", Label: ms("Kenya")},
	)}
	large := []domain.LiftRange{locationRange(
		domain.LiftRangeElement{ID: "africa", GUID: gid(501), Label: ms("Africa")},
		domain.LiftRangeElement{ID: "kenya", GUID: gid(502), Parent: "africa", Label: ms("Kenya")},
		domain.LiftRangeElement{ID: "nairobi", GUID: gid(503), Parent: "kenya", Label: ms("Nairobi")},
	)}

	stats := NewRangeImporter(lex, log).Import(large)
	assert.Equal(t, RangeStats{ListsCreated: 1, ItemsCreated: 3}, stats)

	stats = NewRangeImporter(lex, log).Import(small)
	assert.Equal(t, RangeStats{ItemsMatched: 2}, stats)
	stats = NewRangeImporter(lex, log).Import(large)
	assert.Equal(t, RangeStats{ItemsMatched: 3}, stats)

	require.Len(t, lex.Lists(), 1)
	items := lex.Items(uid(500))
	require.Len(t, items, 3)
	assert.Equal(t, uid(501), items[0].GUID)
	assert.Equal(t, uid(502), items[1].GUID)
	assert.Equal(t, uid(502), items[2].Parent)
	assert.Zero(t, log.Count(domain.LogConflict))
}

func TestRangeMatchesByNormalizedNameWithoutGUIDs(t *testing.T) {
	lex := domain.NewLexicon()
	log := &domain.MergeLog{}
	first := []domain.LiftRange{{ID: "Usage Type", Elements: []domain.LiftRangeElement{{ID: "archaic", Label: ms("Archaic")}}}}
	second := []domain.LiftRange{{ID: "usage type ", Elements: []domain.LiftRangeElement{{ID: "ARCHAIC", Label: domain.MultiString{"en": "Archaic", "fr": "archaïque"}}}}}

	NewRangeImporter(lex, log).Import(first)
	NewRangeImporter(lex, log).Import(second)

	require.Len(t, lex.Lists(), 1)
	items := lex.Items(lex.Lists()[0].GUID)
	require.Len(t, items, 1)
	assert.Equal(t, "archaïque", items[0].Label.Get("fr"))
}

func TestRangeUnificationKeepsExistingOnConflict(t *testing.T) {
	lex := domain.NewLexicon()
	log := &domain.MergeLog{}
	NewRangeImporter(lex, log).Import([]domain.LiftRange{locationRange(
		domain.LiftRangeElement{ID: "africa", GUID: gid(501), Label: domain.MultiString{"en": "Africa", "fr": domain.NoValue}},
	)})
	NewRangeImporter(lex, log).Import([]domain.LiftRange{locationRange(
		domain.LiftRangeElement{ID: "africa", GUID: gid(501), Label: domain.MultiString{"en": "African continent", "fr": "Afrique"}},
	)})

	p, ok := lex.Item(uid(501))
	require.True(t, ok)
	assert.Equal(t, "Africa", p.Label.Get("en"))
	assert.Equal(t, "Afrique", p.Label.Get("fr"))
	conflicts := log.Filter(domain.LogConflict)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "Africa", conflicts[0].Old)
	assert.Equal(t, "African continent", conflicts[0].New)
}

func TestDuplicateRangeBlocksFormOneList(t *testing.T) {
	lex := domain.NewLexicon()
	log := &domain.MergeLog{}
	NewRangeImporter(lex, log).Import([]domain.LiftRange{
		locationRange(domain.LiftRangeElement{ID: "africa", GUID: gid(501), Label: ms("Africa")}),
		{ID: "location", Elements: []domain.LiftRangeElement{{ID: "asia", GUID: gid(504), Label: ms("Asia")}}},
	})
	require.Len(t, lex.Lists(), 1)
	assert.Len(t, lex.Items(uid(500)), 2)
}

func TestUnresolvedParentGoesToRoot(t *testing.T) {
	lex := domain.NewLexicon()
	log := &domain.MergeLog{}
	NewRangeImporter(lex, log).Import([]domain.LiftRange{locationRange(
		domain.LiftRangeElement{ID: "kenya", GUID: gid(502), Parent: "atlantis", Label: ms("Kenya")},
	)})
	p, ok := lex.Item(uid(502))
	require.True(t, ok)
	assert.Equal(t, uuid.Nil, p.Parent)
	assert.Equal(t, 1, log.Count(domain.LogUnresolved))
}

func TestGUIDlessRelationTypeBindsToExisting(t *testing.T) {
	lex := domain.NewLexicon()
	log := &domain.MergeLog{}
	builtin := &domain.ReferenceType{GUID: uid(910), Kind: domain.MappingCollection, Name: ms("Synonyms"), Abbreviation: ms("syn")}
	lex.AddReferenceType(builtin)

	stats := NewRangeImporter(lex, log).Import([]domain.LiftRange{{
		ID: RangeLexicalRelation,
		Elements: []domain.LiftRangeElement{
			{ID: "Synonyms", Label: domain.MultiString{"en": "Synonyms", "es": "Sinónimos"}},
			{ID: "synonyms-lower", Label: ms("synonyms")},
		},
	}})

	assert.Equal(t, 1, stats.TypesMatched)
	assert.Equal(t, 1, stats.TypesCreated)
	require.Len(t, lex.ReferenceTypes(), 2)
	assert.Equal(t, "Sinónimos", builtin.Name.Get("es"))
}
