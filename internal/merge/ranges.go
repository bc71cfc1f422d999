package merge

import (
	"github.com/google/uuid"

	"github.com/sillsdev/liftmerge/internal/domain"
)

// RangeStats counts what one range import changed.
type RangeStats struct {
	ListsCreated int `json:"lists_created"`
	ItemsCreated int `json:"items_created"`
	ItemsMatched int `json:"items_matched"`
	TypesCreated int `json:"types_created"`
	TypesMatched int `json:"types_matched"`
}

// RangeImporter merges range definitions into the possibility lists and
// reference types of a lexicon. Running it twice on the same input changes nothing.
type RangeImporter struct {
	lex   *domain.Lexicon
	log   *domain.MergeLog
	vocab *vocabulary
}

func NewRangeImporter(lex *domain.Lexicon, log *domain.MergeLog) *RangeImporter {
	return &RangeImporter{lex: lex, log: log, vocab: &vocabulary{lex: lex, log: log}}
}

var mappingTraits = []string{"referenceType", "mapping-type", "mapping"}

func (ri *RangeImporter) Import(ranges []domain.LiftRange) RangeStats {
	var stats RangeStats
	for _, r := range groupRanges(ranges) {
		if NormalizeLabel(r.ID) == RangeLexicalRelation {
			ri.importReferenceTypes(r, &stats)
			continue
		}
		ri.importList(r, &stats)
	}
	return stats
}

// groupRanges folds repeated range ids into one block, keeping first-seen order.
func groupRanges(ranges []domain.LiftRange) []domain.LiftRange {
	var order []string
	byID := map[string]*domain.LiftRange{}
	for _, r := range ranges {
		key := NormalizeLabel(r.ID)
		existing, ok := byID[key]
		if !ok {
			copied := r
			copied.Elements = append([]domain.LiftRangeElement(nil), r.Elements...)
			byID[key] = &copied
			order = append(order, key)
			continue
		}
		if existing.GUID == "" {
			existing.GUID = r.GUID
		}
		if existing.Label == nil {
			existing.Label = r.Label
		}
		existing.Elements = append(existing.Elements, r.Elements...)
	}
	out := make([]domain.LiftRange, 0, len(order))
	for _, key := range order {
		out = append(out, *byID[key])
	}
	return out
}

func (ri *RangeImporter) importList(r domain.LiftRange, stats *RangeStats) {
	guid, _ := ParseGUID(r.GUID)
	list, found := ri.vocab.findList(guid, r.ID)
	if !found {
		list = &domain.PossibilityList{GUID: guid, Name: r.ID}
		ri.lex.AddList(list)
		stats.ListsCreated++
		ri.log.Addf(domain.LogCreated, domain.KindList, list.GUID.String(), "created list %q", r.ID)
	}
	list.Label = unifyMulti(ri.log, domain.KindList, list.GUID.String(), "label", list.Label, r.Label)

	byID := map[string]*domain.Possibility{}
	for _, el := range r.Elements {
		p := ri.importElement(list, el, stats)
		if el.ID != "" {
			byID[el.ID] = p
		}
	}
	for _, el := range r.Elements {
		if el.Parent == "" {
			continue
		}
		p := byID[el.ID]
		if p == nil {
			continue
		}
		parent, ok := byID[el.Parent]
		if !ok {
			parent, ok = ri.vocab.findItem(list, uuid.Nil, el.Parent)
		}
		switch {
		case !ok || parent.GUID == p.GUID:
			ri.log.Add(domain.LogEntry{
				Kind: domain.LogUnresolved, ObjectKind: domain.KindPossibility, ObjectID: p.GUID.String(),
				Field: "parent", Message: "parent " + el.Parent + " not found, left at top level",
			})
		case p.Parent == uuid.Nil:
			p.Parent = parent.GUID
		case p.Parent != parent.GUID:
			ri.log.Conflict(domain.KindPossibility, p.GUID.String(), "parent", p.Parent.String(), parent.GUID.String(), "conflicting parent, kept existing")
		}
	}
}

func (ri *RangeImporter) importElement(list *domain.PossibilityList, el domain.LiftRangeElement, stats *RangeStats) *domain.Possibility {
	guid, _ := ParseGUID(el.GUID)
	key := el.ID
	if key == "" {
		key = el.Label.First()
	}
	p, found := ri.vocab.findItem(list, guid, key)
	if !found && el.ID != "" {
		p, found = ri.vocab.findItem(list, uuid.Nil, el.Label.First())
	}
	if !found {
		p = &domain.Possibility{
			GUID:        guid,
			List:        list.GUID,
			LiftID:      el.ID,
			Label:       el.Label.Clone(),
			Abbrev:      el.Abbrev.Clone(),
			Description: el.Description.Clone(),
		}
		if p.Label.IsEmpty() && el.ID != "" {
			p.Label = domain.MultiString{"en": el.ID}
		}
		ri.lex.AddItem(p)
		stats.ItemsCreated++
		return p
	}
	stats.ItemsMatched++
	id := p.GUID.String()
	if p.LiftID == "" {
		p.LiftID = el.ID
	}
	p.Label = unifyMulti(ri.log, domain.KindPossibility, id, "label", p.Label, el.Label)
	p.Abbrev = unifyMulti(ri.log, domain.KindPossibility, id, "abbrev", p.Abbrev, el.Abbrev)
	p.Description = unifyMulti(ri.log, domain.KindPossibility, id, "description", p.Description, el.Description)
	return p
}

func (ri *RangeImporter) importReferenceTypes(r domain.LiftRange, stats *RangeStats) {
	for _, el := range r.Elements {
		kind, hasKind := elementMappingKind(el)
		t, found := ri.findReferenceType(el)
		if !found {
			guid, _ := ParseGUID(el.GUID)
			t = &domain.ReferenceType{
				GUID:                guid,
				LiftID:              el.ID,
				Kind:                kind,
				Name:                el.Label.Clone(),
				Abbreviation:        el.Abbrev.Clone(),
				ReverseName:         el.ReverseLabel.Clone(),
				ReverseAbbreviation: el.ReverseAbbreviation.Clone(),
				Description:         el.Description.Clone(),
			}
			if t.Name.IsEmpty() && el.ID != "" {
				t.Name = domain.MultiString{"en": el.ID}
			}
			ri.lex.AddReferenceType(t)
			stats.TypesCreated++
			ri.log.Addf(domain.LogCreated, domain.KindReferenceType, t.GUID.String(), "created reference type %q (%s)", t.Label(), t.Kind)
			continue
		}
		stats.TypesMatched++
		id := t.GUID.String()
		if t.LiftID == "" {
			t.LiftID = el.ID
		}
		if hasKind && kind != t.Kind {
			ri.log.Conflict(domain.KindReferenceType, id, "kind", t.Kind.String(), kind.String(), "conflicting mapping kind, kept existing")
		}
		t.Name = unifyMulti(ri.log, domain.KindReferenceType, id, "name", t.Name, el.Label)
		t.Abbreviation = unifyMulti(ri.log, domain.KindReferenceType, id, "abbrev", t.Abbreviation, el.Abbrev)
		t.ReverseName = unifyMulti(ri.log, domain.KindReferenceType, id, "reverse-name", t.ReverseName, el.ReverseLabel)
		t.ReverseAbbreviation = unifyMulti(ri.log, domain.KindReferenceType, id, "reverse-abbrev", t.ReverseAbbreviation, el.ReverseAbbreviation)
		t.Description = unifyMulti(ri.log, domain.KindReferenceType, id, "description", t.Description, el.Description)
	}
}

// findReferenceType matches by GUID, then by exact id or forward label.
func (ri *RangeImporter) findReferenceType(el domain.LiftRangeElement) (*domain.ReferenceType, bool) {
	if guid, ok := ParseGUID(el.GUID); ok {
		if t, ok := ri.lex.ReferenceType(guid); ok {
			return t, true
		}
	}
	for _, t := range ri.lex.ReferenceTypes() {
		if t.MatchesForward(el.ID) {
			return t, true
		}
		for _, ws := range el.Label.WritingSystems() {
			if t.MatchesForward(el.Label[ws]) {
				return t, true
			}
		}
	}
	return nil, false
}

func elementMappingKind(el domain.LiftRangeElement) (domain.MappingKind, bool) {
	for _, name := range mappingTraits {
		for _, v := range domain.TraitValues(el.Traits, name) {
			if kind, ok := domain.ParseMappingKind(v); ok {
				return kind, true
			}
		}
	}
	return domain.MappingCollection, false
}
