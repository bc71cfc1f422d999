package merge

import (
	"github.com/google/uuid"

	"github.com/sillsdev/liftmerge/internal/domain"
)

// Standard list names used when an entry mentions a list value the ranges never declared.
const (
	ListGrammaticalInfo  = "grammatical-info"
	ListSemanticDomain   = "semantic-domain-ddp4"
	ListDoNotPublishIn   = "do-not-publish-in"
	ListMorphType        = "morph-type"
	ListComplexForm      = "complex-form-types"
	ListVariantType      = "variant-types"
	RangeLexicalRelation = "lexical-relation"
)

// vocabulary finds or creates possibility lists and their items.
type vocabulary struct {
	lex *domain.Lexicon
	log *domain.MergeLog
}

func (v *vocabulary) findList(guid uuid.UUID, name string) (*domain.PossibilityList, bool) {
	if guid != uuid.Nil {
		if list, ok := v.lex.List(guid); ok {
			return list, true
		}
	}
	key := NormalizeLabel(name)
	if key == "" {
		return nil, false
	}
	for _, list := range v.lex.Lists() {
		if NormalizeLabel(list.Name) == key {
			return list, true
		}
	}
	return nil, false
}

func (v *vocabulary) ensureList(guid uuid.UUID, name string) *domain.PossibilityList {
	if list, ok := v.findList(guid, name); ok {
		return list
	}
	list := &domain.PossibilityList{GUID: guid, Name: name}
	v.lex.AddList(list)
	v.log.Addf(domain.LogCreated, domain.KindList, list.GUID.String(), "created list %q", name)
	return list
}

// findItem matches by GUID, then by id, label or abbreviation after normalization.
func (v *vocabulary) findItem(list *domain.PossibilityList, guid uuid.UUID, key string) (*domain.Possibility, bool) {
	if guid != uuid.Nil {
		if p, ok := v.lex.Item(guid); ok {
			return p, true
		}
	}
	norm := NormalizeLabel(key)
	if norm == "" {
		return nil, false
	}
	for _, p := range v.lex.Items(list.GUID) {
		if NormalizeLabel(p.LiftID) == norm || labelMatches(p.Label, norm) || labelMatches(p.Abbrev, norm) {
			return p, true
		}
	}
	return nil, false
}

func labelMatches(m domain.MultiString, norm string) bool {
	for _, ws := range m.WritingSystems() {
		if NormalizeLabel(m[ws]) == norm {
			return true
		}
	}
	return false
}

// ensureItem returns the item named key in the named list, creating both when missing.
// lookupItem finds an item of the named list by key without creating anything.
func (v *vocabulary) lookupItem(listName, key string) (uuid.UUID, bool) {
	list, ok := v.findList(uuid.Nil, listName)
	if !ok {
		return uuid.Nil, false
	}
	p, ok := v.findItem(list, uuid.Nil, key)
	if !ok {
		return uuid.Nil, false
	}
	return p.GUID, true
}

func (v *vocabulary) ensureItem(listName, key string) uuid.UUID {
	if NormalizeLabel(key) == "" {
		return uuid.Nil
	}
	list := v.ensureList(uuid.Nil, listName)
	if p, ok := v.findItem(list, uuid.Nil, key); ok {
		return p.GUID
	}
	p := &domain.Possibility{List: list.GUID, LiftID: key, Label: domain.MultiString{"en": key}}
	v.lex.AddItem(p)
	v.log.Addf(domain.LogCreated, domain.KindPossibility, p.GUID.String(), "created %q in list %q", key, listName)
	return p.GUID
}
