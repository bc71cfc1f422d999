package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sillsdev/liftmerge/internal/domain"
)

func openTestRepo(t *testing.T) *LexiconRepository {
	t.Helper()
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "liftmerge_test.db"))
	require.NoError(t, err)
	applied, err := RunMigrations(ctx, db)
	require.NoError(t, err)
	require.Equal(t, 1, applied)
	return NewLexiconRepository(db)
}

func sampleLexicon() (*domain.Lexicon, map[string]uuid.UUID) {
	ids := map[string]uuid.UUID{
		"hot": uuid.New(), "cold": uuid.New(), "hotSense": uuid.New(),
		"antonym": uuid.New(), "link": uuid.New(), "list": uuid.New(), "noun": uuid.New(),
	}
	lex := domain.NewLexicon()
	lex.AddList(&domain.PossibilityList{GUID: ids["list"], Name: "grammatical-info", Label: domain.MultiString{"en": "Parts of speech"}})
	lex.AddItem(&domain.Possibility{GUID: ids["noun"], List: ids["list"], LiftID: "Noun", Label: domain.MultiString{"en": "Noun"}})
	lex.AddReferenceType(&domain.ReferenceType{GUID: ids["antonym"], LiftID: "Antonym", Kind: domain.MappingPair, Name: domain.MultiString{"en": "Antonym"}})

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	lex.AddEntry(&domain.Entry{
		GUID:        ids["hot"],
		LiftID:      "hot_" + ids["hot"].String(),
		DateCreated: created,
		LexemeForm:  domain.MultiString{"en": "hot"},
		Senses: []*domain.Sense{{
			GUID:            ids["hotSense"],
			GrammaticalInfo: ids["noun"],
			Gloss:           domain.MultiString{"en": "high temperature"},
		}},
	})
	lex.AddEntry(&domain.Entry{GUID: ids["cold"], LexemeForm: domain.MultiString{"en": "cold"}})
	lex.AddLink(&domain.LinkObject{GUID: ids["link"], Type: ids["antonym"], Targets: []uuid.UUID{ids["hot"], ids["cold"]}})
	lex.AddFieldDef(&domain.FieldDef{OwnerKind: domain.OwnerEntry, Name: "Number", Type: domain.FieldInteger})
	lex.SetFieldValue(ids["hot"], "Number", domain.IntegerValue(13))
	return lex, ids
}

func TestSaveAndLoadLexiconRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	lex, ids := sampleLexicon()

	require.NoError(t, repo.SaveLexicon(ctx, lex))
	loaded, err := repo.LoadLexicon(ctx)
	require.NoError(t, err)

	require.Equal(t, 2, loaded.EntryCount())
	hot, ok := loaded.Entry(ids["hot"])
	require.True(t, ok)
	assert.Equal(t, "hot", hot.Headword())
	require.Len(t, hot.Senses, 1)
	assert.Equal(t, ids["noun"], hot.Senses[0].GrammaticalInfo)

	sense, ok := loaded.Sense(ids["hotSense"])
	require.True(t, ok)
	assert.Equal(t, ids["hot"], sense.Entry)

	link, ok := loaded.Link(ids["link"])
	require.True(t, ok)
	assert.Equal(t, []uuid.UUID{ids["hot"], ids["cold"]}, link.Targets)
	assert.Len(t, loaded.LinksContaining(ids["cold"], uuid.Nil), 1)

	rt, ok := loaded.ReferenceType(ids["antonym"])
	require.True(t, ok)
	assert.Equal(t, domain.MappingPair, rt.Kind)

	v, ok := loaded.FieldValue(ids["hot"], "Number")
	require.True(t, ok)
	assert.Equal(t, 13, v.Int)
	def, ok := loaded.FieldDef(domain.OwnerEntry, "Number")
	require.True(t, ok)
	assert.Equal(t, domain.FieldInteger, def.Type)

	assert.Len(t, loaded.Items(ids["list"]), 1)
}

func TestSaveLexiconReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	lex, ids := sampleLexicon()
	require.NoError(t, repo.SaveLexicon(ctx, lex))

	lex.RemoveEntry(ids["cold"])
	require.NoError(t, repo.SaveLexicon(ctx, lex))

	loaded, err := repo.LoadLexicon(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.EntryCount())
	_, ok := loaded.Link(ids["link"])
	assert.False(t, ok, "pair below two members is dropped with its member")
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	lex, ids := sampleLexicon()
	require.NoError(t, repo.SaveLexicon(ctx, lex))

	entries, err := repo.ListEntries(ctx, "ho", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ids["hot"], entries[0].GUID)
	assert.Equal(t, 1, entries[0].SenseCount)

	got, err := repo.GetEntry(ctx, ids["cold"])
	require.NoError(t, err)
	assert.Equal(t, "cold", got.Headword())

	_, err = repo.GetEntry(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	links, err := repo.ListLinks(ctx, "Antonym", 10)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "pair", links[0].Kind)
	require.Len(t, links[0].Members, 2)
	assert.Equal(t, domain.KindEntry, links[0].Members[0].Kind)
	assert.Equal(t, "hot", links[0].Members[0].Headword)

	none, err := repo.ListLinks(ctx, "Synonym", 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	types, err := repo.ListReferenceTypes(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, 1, types[0].LinkCount)

	defs, err := repo.ListFieldDefs(ctx, "entry", "", 10)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "Number", defs[0].Name)

	lists, err := repo.ListPossibilityLists(ctx, 10)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, 1, lists[0].ItemCount)

	items, err := repo.ListPossibilities(ctx, "grammatical-info", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Noun", items[0].LiftID)
}

func TestImportRunsAndMergeLog(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	finished := time.Now().UTC()
	run, err := repo.CreateImportRun(ctx, domain.ImportRun{Style: "keep-new", EntriesProcessed: 2, Created: 2, LogCount: 2, StartedAt: finished, FinishedAt: &finished})
	require.NoError(t, err)
	require.NotZero(t, run.ID)
	assert.Equal(t, "finished", run.Status)

	require.NoError(t, repo.AppendMergeLog(ctx, run.ID, []domain.LogEntry{
		{Kind: domain.LogCreated, ObjectKind: domain.KindEntry, ObjectID: "hot", Message: "created entry"},
		{Kind: domain.LogConflict, ObjectKind: domain.KindEntry, ObjectID: "hot", Field: "gloss", Message: "kept existing", Old: "a", New: "b"},
	}))

	runs, err := repo.ListImportRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	all, err := repo.ListMergeLog(ctx, run.ID, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	conflicts, err := repo.ListMergeLog(ctx, run.ID, "conflict", 10)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "gloss", conflicts[0].Field)
	assert.Equal(t, "a", conflicts[0].Old)
	assert.Equal(t, "b", conflicts[0].New)
}
