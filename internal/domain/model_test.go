package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiStringIgnoresPlaceholders(t *testing.T) {
	m := MultiString{"en": "house", "fr": NoValue, "seh": "  "}

	assert.True(t, m.Has("en"))
	assert.False(t, m.Has("fr"))
	assert.False(t, m.Has("seh"))
	assert.Equal(t, []string{"en"}, m.WritingSystems())
	assert.True(t, m.Equal(MultiString{"en": "house"}))
	assert.True(t, MultiString{"fr": NoValue}.IsEmpty())
	assert.Equal(t, "", MultiString(nil).First())
}

func TestMultiStringCompare(t *testing.T) {
	a := MultiString{"en": "house", "pt": "casa"}

	assert.True(t, a.Overlaps(MultiString{"pt": "casa", "en": "home"}))
	assert.True(t, a.ConflictsWith(MultiString{"en": "home"}))
	assert.False(t, a.ConflictsWith(MultiString{"fr": "maison"}))
	assert.False(t, a.Overlaps(MultiString{"fr": "maison"}))

	c := a.Clone()
	c["en"] = "hut"
	assert.Equal(t, "house", a["en"])
}

func TestParseMappingKind(t *testing.T) {
	cases := map[string]MappingKind{
		"collection": MappingCollection,
		"Pair":       MappingPair,
		"3":          MappingPair,
		"tree":       MappingTree,
		"7":          MappingTree,
		"sequence":   MappingSequence,
		"11":         MappingSequence,
	}
	for raw, want := range cases {
		got, ok := ParseMappingKind(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := ParseMappingKind("web")
	assert.False(t, ok)
	assert.Equal(t, 2, MappingPair.MinMembers())
	assert.Equal(t, 2, MappingTree.MinMembers())
	assert.Equal(t, 1, MappingSequence.MinMembers())
	assert.Equal(t, "sequence", MappingSequence.String())
}

func TestParseOwnerKind(t *testing.T) {
	got, ok := ParseOwnerKind("LexEntry")
	require.True(t, ok)
	assert.Equal(t, OwnerEntry, got)

	got, ok = ParseOwnerKind("MoStemAllomorph")
	require.True(t, ok)
	assert.Equal(t, OwnerAllomorph, got)

	_, ok = ParseOwnerKind("CmPicture")
	assert.False(t, ok)
}

func TestMergeStyleText(t *testing.T) {
	for _, s := range []MergeStyle{KeepNew, KeepOld, KeepBoth, KeepOnlyNew} {
		got, err := ParseMergeStyle(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	style, err := ParseMergeStyle("")
	require.NoError(t, err)
	assert.Equal(t, KeepNew, style)

	_, err = ParseMergeStyle("keep-some")
	assert.ErrorIs(t, err, ErrInvalidMergeStyle)

	raw, err := json.Marshal(struct {
		Style MergeStyle `json:"style"`
	}{KeepBoth})
	require.NoError(t, err)
	assert.JSONEq(t, `{"style":"keep-both"}`, string(raw))

	var decoded struct {
		Style MergeStyle `json:"style"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"style":"keep-only-new"}`), &decoded))
	assert.Equal(t, KeepOnlyNew, decoded.Style)
	assert.Error(t, json.Unmarshal([]byte(`{"style":"merge"}`), &decoded))
}

func TestMergeLogCounts(t *testing.T) {
	var log MergeLog
	log.Addf(LogCreated, KindEntry, "e1", "created %q", "a")
	log.Conflict(KindSense, "s1", "gloss", "old", "new", "kept existing")
	log.Addf(LogCreated, KindEntry, "e2", "created")

	assert.Equal(t, 3, log.Len())
	assert.Equal(t, 2, log.Count(LogCreated))
	conflicts := log.Filter(LogConflict)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "old", conflicts[0].Old)
	assert.Equal(t, "conflict sense s1: kept existing [gloss]", conflicts[0].String())

	entries := log.Entries()
	entries[0].Message = "changed"
	assert.Equal(t, `created "a"`, log.Entries()[0].Message)
}

func TestIDHelpers(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	ids := AppendUnique(nil, a, b, a, uuid.Nil)
	assert.Equal(t, []uuid.UUID{a, b}, ids)
	assert.True(t, ContainsID(ids, b))
	assert.Equal(t, []uuid.UUID{b}, RemoveID(ids, a))
}
