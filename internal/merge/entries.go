package merge

import (
	"strings"

	"github.com/google/uuid"

	"github.com/sillsdev/liftmerge/internal/domain"
)

const residueField = "import-residue"

// createEntry builds a new entry from rec. fresh forces new sense GUIDs, used
// when the record is kept next to a conflicting original.
func (e *Engine) createEntry(rec *domain.LiftEntry, guid uuid.UUID, fresh bool) (*domain.Entry, []uuid.UUID) {
	now := e.opts.Now().UTC()
	entry := &domain.Entry{GUID: guid, DateCreated: rec.DateCreated, DateModified: rec.DateModified}
	if entry.DateCreated.IsZero() {
		entry.DateCreated = now
	}
	if entry.DateModified.IsZero() {
		entry.DateModified = entry.DateCreated
	}
	e.lex.AddEntry(entry)
	senseIDs := e.mergeInto(entry, rec, domain.KeepNew, fresh)
	e.log.Addf(domain.LogCreated, domain.KindEntry, guid.String(), "created %q", entry.Headword())
	return entry, senseIDs
}

// conflicts reports a genuine disagreement between existing and rec: both
// sides hold different values for something the merge would touch. It
// creates nothing, so a record kept as a sibling leaves no trace on the original.
func (e *Engine) conflicts(existing *domain.Entry, rec *domain.LiftEntry) bool {
	if existing.LexemeForm.ConflictsWith(rec.LexicalUnit) || existing.CitationForm.ConflictsWith(rec.CitationForm) {
		return true
	}
	morphType := rec.MorphType
	var custom []domain.LiftTrait
	for _, t := range rec.Traits {
		if t.Name == "morph-type" {
			morphType = t.Value
			continue
		}
		custom = append(custom, t)
	}
	if e.refConflicts(ListMorphType, morphType, existing.MorphType) || notesConflict(existing.Notes, rec.Notes) {
		return true
	}
	var fields []domain.LiftField
	for _, f := range rec.Fields {
		if f.Type != residueField {
			fields = append(fields, f)
		}
	}
	if e.fields.Conflicts(domain.OwnerEntry, existing.GUID, fields, custom) {
		return true
	}
	for _, lp := range rec.Pronunciations {
		guid, ok := ParseGUID(lp.GUID)
		if !ok {
			continue
		}
		for _, p := range existing.Pronunciations {
			if p.GUID == guid && (p.Form.ConflictsWith(lp.Forms) || e.fields.Conflicts(domain.OwnerPronunciation, p.GUID, lp.Fields, lp.Traits)) {
				return true
			}
		}
	}
	for _, lv := range append(append([]domain.LiftVariant(nil), rec.Allomorphs...), rec.Variants...) {
		guid, ok := ParseGUID(lv.GUID)
		if !ok || isVariantRef(lv) {
			continue
		}
		for _, a := range existing.Allomorphs {
			if a.GUID == guid && a.Form.ConflictsWith(lv.Forms) {
				return true
			}
		}
	}
	for i := range rec.Senses {
		ls := &rec.Senses[i]
		guid, ok := e.resolver.ResolveSense(ls)
		if !ok {
			continue
		}
		s, _ := e.lex.Sense(guid)
		if s.Entry == existing.GUID && e.senseConflicts(s, ls) {
			return true
		}
	}
	return false
}

func (e *Engine) senseConflicts(s *domain.Sense, ls *domain.LiftSense) bool {
	if s.Gloss.ConflictsWith(ls.Gloss) || s.Definition.ConflictsWith(ls.Definition) || notesConflict(s.Notes, ls.Notes) {
		return true
	}
	if e.refConflicts(ListGrammaticalInfo, ls.GrammaticalInfo, s.GrammaticalInfo) {
		return true
	}
	var custom []domain.LiftTrait
	for _, t := range ls.Traits {
		switch t.Name {
		case ListSemanticDomain, "semantic-domain", ListDoNotPublishIn:
		default:
			custom = append(custom, t)
		}
	}
	if e.fields.Conflicts(domain.OwnerSense, s.GUID, ls.Fields, custom) {
		return true
	}
	for _, lx := range ls.Examples {
		guid, ok := ParseGUID(lx.GUID)
		if !ok {
			continue
		}
		for _, x := range s.Examples {
			if x.GUID == guid && exampleConflicts(x, &lx) {
				return true
			}
		}
	}
	return false
}

func exampleConflicts(x *domain.Example, lx *domain.LiftExample) bool {
	if x.Sentence.ConflictsWith(lx.Forms) {
		return true
	}
	if x.Source != "" && lx.Source != "" && x.Source != lx.Source {
		return true
	}
	for _, lt := range lx.Translations {
		for _, t := range x.Translations {
			if t.Type == lt.Type {
				if t.Forms.ConflictsWith(lt.Forms) {
					return true
				}
				break
			}
		}
	}
	return false
}

// notesConflict pairs notes by type in order, the way mergeNotes does.
func notesConflict(existing []domain.Note, incoming []domain.LiftNote) bool {
	seen := map[string]int{}
	for _, ln := range incoming {
		if ln.Forms.IsEmpty() {
			continue
		}
		nth := seen[ln.Type]
		seen[ln.Type]++
		for _, n := range existing {
			if n.Type != ln.Type {
				continue
			}
			if nth == 0 {
				if n.Forms.ConflictsWith(ln.Forms) {
					return true
				}
				break
			}
			nth--
		}
	}
	return false
}

// refConflicts reports whether key names another possibility than current.
// A key naming no stored item would become a new one, so it differs too.
func (e *Engine) refConflicts(list, key string, current uuid.UUID) bool {
	if current == uuid.Nil || NormalizeLabel(key) == "" {
		return false
	}
	id, ok := e.vocab.lookupItem(list, key)
	return !ok || id != current
}

// matchSensesOnly maps incoming senses to existing ones without changing anything.
func (e *Engine) matchSensesOnly(entry *domain.Entry, rec *domain.LiftEntry) []uuid.UUID {
	ids := make([]uuid.UUID, len(rec.Senses))
	for i := range rec.Senses {
		ls := &rec.Senses[i]
		guid, ok := e.resolver.ResolveSense(ls)
		if !ok {
			guid = matchSenseByContent(entry, ls, nil)
		}
		if s, found := e.lex.Sense(guid); found && s.Entry == entry.GUID {
			ids[i] = guid
			e.resolver.Register(ls.ID, guid)
			e.resolver.Register(ls.GUID, guid)
		}
	}
	return ids
}

func (e *Engine) mergeInto(entry *domain.Entry, rec *domain.LiftEntry, style domain.MergeStyle, fresh bool) []uuid.UUID {
	id := entry.GUID.String()
	entry.LexemeForm = e.mergeMulti(style, domain.KindEntry, id, "lexical-unit", entry.LexemeForm, rec.LexicalUnit)
	entry.CitationForm = e.mergeMulti(style, domain.KindEntry, id, "citation", entry.CitationForm, rec.CitationForm)
	if !rec.DateCreated.IsZero() && (entry.DateCreated.IsZero() || rec.DateCreated.Before(entry.DateCreated)) {
		entry.DateCreated = rec.DateCreated
	}
	if rec.DateModified.After(entry.DateModified) {
		entry.DateModified = rec.DateModified
	}
	if rec.ID != "" && (entry.LiftID == "" || style == domain.KeepNew || style == domain.KeepOnlyNew) {
		entry.LiftID = rec.ID
	}

	var residue strings.Builder
	residue.WriteString(rec.Residue)
	morphType := rec.MorphType
	var custom []domain.LiftTrait
	for _, t := range rec.Traits {
		if t.Name == "morph-type" {
			morphType = t.Value
			continue
		}
		custom = append(custom, t)
	}
	if morphType != "" {
		e.mergeRef(style, domain.KindEntry, id, "morph-type", &entry.MorphType, e.vocab.ensureItem(ListMorphType, morphType))
	}
	fields := make([]domain.LiftField, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		if f.Type == residueField {
			residue.WriteString(f.Forms.First())
			continue
		}
		fields = append(fields, f)
	}
	residue.WriteString(e.fields.Apply(domain.OwnerEntry, entry.GUID, fields, custom, style))

	entry.Notes = e.mergeNotes(style, domain.KindEntry, id, entry.Notes, rec.Notes)
	e.mergePronunciations(entry, rec.Pronunciations, style)
	allomorphs := append([]domain.LiftVariant(nil), rec.Allomorphs...)
	for _, v := range rec.Variants {
		if !isVariantRef(v) {
			allomorphs = append(allomorphs, v)
		}
	}
	e.mergeAllomorphs(entry, allomorphs, style)
	senseIDs := e.mergeSenses(entry, rec.Senses, style, fresh, &residue)
	entry.Residue = e.mergeText(style, domain.KindEntry, id, "residue", entry.Residue, residue.String())
	return senseIDs
}

func (e *Engine) mergeSenses(entry *domain.Entry, incoming []domain.LiftSense, style domain.MergeStyle, fresh bool, residue *strings.Builder) []uuid.UUID {
	ids := make([]uuid.UUID, len(incoming))
	matched := map[uuid.UUID]bool{}
	for i := range incoming {
		ls := &incoming[i]
		if senseRecordEmpty(ls) {
			e.log.Addf(domain.LogNotice, domain.KindSense, ls.GUID, "dropped empty sense of %q", entry.Headword())
			continue
		}
		var s *domain.Sense
		guid, exists := e.resolver.ResolveSense(ls)
		switch {
		case fresh:
			guid = uuid.New()
		case exists:
			s, _ = e.lex.Sense(guid)
			if s.Entry != entry.GUID {
				e.log.Addf(domain.LogNotice, domain.KindSense, guid.String(), "moved from entry %s", s.Entry)
				e.lex.MoveSense(s, entry)
			}
		case guid == uuid.Nil:
			if found := matchSenseByContent(entry, ls, matched); found != uuid.Nil {
				s, _ = e.lex.Sense(found)
			} else {
				guid = uuid.New()
			}
		}
		if s == nil {
			s = &domain.Sense{GUID: guid}
			e.lex.AddSense(entry, s)
			e.log.Addf(domain.LogCreated, domain.KindSense, guid.String(), "created sense of %q", entry.Headword())
		}
		residue.WriteString(e.mergeSense(s, ls, style))
		matched[s.GUID] = true
		ids[i] = s.GUID
		e.resolver.Register(ls.ID, s.GUID)
		e.resolver.Register(ls.GUID, s.GUID)
	}
	if style == domain.KeepOnlyNew {
		for _, s := range append([]*domain.Sense(nil), entry.Senses...) {
			if !matched[s.GUID] {
				e.lex.RemoveSense(s.GUID)
				e.log.Add(domain.LogEntry{Kind: domain.LogDeleted, ObjectKind: domain.KindSense, ObjectID: s.GUID.String(),
					Old: s.Gloss.First(), Message: "sense not present in import"})
			}
		}
	}
	return ids
}

// matchSenseByContent pairs a GUID-less sense with an unmatched sense sharing a gloss or definition.
func matchSenseByContent(entry *domain.Entry, ls *domain.LiftSense, taken map[uuid.UUID]bool) uuid.UUID {
	for _, s := range entry.Senses {
		if taken[s.GUID] {
			continue
		}
		if s.Gloss.Overlaps(ls.Gloss) || s.Definition.Overlaps(ls.Definition) {
			return s.GUID
		}
	}
	return uuid.Nil
}

func senseRecordEmpty(ls *domain.LiftSense) bool {
	if !ls.Gloss.IsEmpty() || !ls.Definition.IsEmpty() || ls.GrammaticalInfo != "" {
		return false
	}
	if len(ls.SemanticDomains)+len(ls.DoNotPublishIn)+len(ls.Relations)+len(ls.Traits) > 0 {
		return false
	}
	for _, f := range ls.Fields {
		if !f.Forms.IsEmpty() {
			return false
		}
	}
	for _, n := range ls.Notes {
		if !n.Forms.IsEmpty() {
			return false
		}
	}
	for i := range ls.Examples {
		if !exampleRecordEmpty(&ls.Examples[i]) {
			return false
		}
	}
	return true
}

func exampleRecordEmpty(lx *domain.LiftExample) bool {
	if !lx.Forms.IsEmpty() {
		return false
	}
	for _, t := range lx.Translations {
		if !t.Forms.IsEmpty() {
			return false
		}
	}
	return true
}

func (e *Engine) mergeSense(s *domain.Sense, ls *domain.LiftSense, style domain.MergeStyle) string {
	id := s.GUID.String()
	if ls.ID != "" && (s.LiftID == "" || style == domain.KeepNew || style == domain.KeepOnlyNew) {
		s.LiftID = ls.ID
	}
	s.Gloss = e.mergeMulti(style, domain.KindSense, id, "gloss", s.Gloss, ls.Gloss)
	s.Definition = e.mergeMulti(style, domain.KindSense, id, "definition", s.Definition, ls.Definition)
	if ls.GrammaticalInfo != "" {
		e.mergeRef(style, domain.KindSense, id, "grammatical-info", &s.GrammaticalInfo, e.vocab.ensureItem(ListGrammaticalInfo, ls.GrammaticalInfo))
	}

	domains := append([]string(nil), ls.SemanticDomains...)
	unpublished := append([]string(nil), ls.DoNotPublishIn...)
	var custom []domain.LiftTrait
	for _, t := range ls.Traits {
		switch t.Name {
		case ListSemanticDomain, "semantic-domain":
			domains = append(domains, t.Value)
		case ListDoNotPublishIn:
			unpublished = append(unpublished, t.Value)
		default:
			custom = append(custom, t)
		}
	}
	s.SemanticDomains = e.mergeRefSet(style, domain.KindSense, id, "semantic-domains", s.SemanticDomains, e.items(ListSemanticDomain, domains))
	s.DoNotPublishIn = e.mergeRefSet(style, domain.KindSense, id, "do-not-publish-in", s.DoNotPublishIn, e.items(ListDoNotPublishIn, unpublished))
	s.Notes = e.mergeNotes(style, domain.KindSense, id, s.Notes, ls.Notes)
	e.mergeExamples(s, ls.Examples, style)
	return e.fields.Apply(domain.OwnerSense, s.GUID, ls.Fields, custom, style)
}

func (e *Engine) items(list string, names []string) []uuid.UUID {
	var out []uuid.UUID
	for _, name := range names {
		out = domain.AppendUnique(out, e.vocab.ensureItem(list, name))
	}
	return out
}

func (e *Engine) mergeExamples(s *domain.Sense, incoming []domain.LiftExample, style domain.MergeStyle) {
	matched := map[uuid.UUID]bool{}
	for i := range incoming {
		lx := &incoming[i]
		if exampleRecordEmpty(lx) {
			e.log.Addf(domain.LogNotice, domain.KindSense, s.GUID.String(), "dropped empty example")
			continue
		}
		var x *domain.Example
		guid, hasGUID := ParseGUID(lx.GUID)
		for _, candidate := range s.Examples {
			if matched[candidate.GUID] {
				continue
			}
			if (hasGUID && candidate.GUID == guid) || (!hasGUID && candidate.Sentence.Overlaps(lx.Forms)) {
				x = candidate
				break
			}
		}
		if x == nil {
			if !hasGUID {
				guid = uuid.New()
			}
			x = &domain.Example{GUID: guid}
			s.Examples = append(s.Examples, x)
		}
		id := x.GUID.String()
		x.Sentence = e.mergeMulti(style, domain.KindExample, id, "sentence", x.Sentence, lx.Forms)
		x.Source = e.mergeText(style, domain.KindExample, id, "source", x.Source, lx.Source)
		x.Translations = e.mergeTranslations(style, id, x.Translations, lx.Translations)
		if residue := e.fields.Apply(domain.OwnerExample, x.GUID, lx.Fields, lx.Traits, style); residue != "" {
			e.log.Add(domain.LogEntry{Kind: domain.LogWarning, ObjectKind: domain.KindExample, ObjectID: id, New: residue, Message: "unplaced example data"})
		}
		matched[x.GUID] = true
	}
	if style == domain.KeepOnlyNew {
		kept := s.Examples[:0]
		for _, x := range s.Examples {
			if matched[x.GUID] {
				kept = append(kept, x)
				continue
			}
			e.lex.ClearFieldValues(x.GUID)
			e.log.Add(domain.LogEntry{Kind: domain.LogDeleted, ObjectKind: domain.KindExample, ObjectID: x.GUID.String(), Message: "example not present in import"})
		}
		s.Examples = kept
	}
}

func (e *Engine) mergeTranslations(style domain.MergeStyle, id string, existing []domain.Translation, incoming []domain.LiftTranslation) []domain.Translation {
	matched := map[int]bool{}
	for _, lt := range incoming {
		if lt.Forms.IsEmpty() {
			e.log.Addf(domain.LogNotice, domain.KindExample, id, "dropped empty %q translation", lt.Type)
			continue
		}
		found := -1
		for i, t := range existing {
			if t.Type == lt.Type && !matched[i] {
				found = i
				break
			}
		}
		if found < 0 {
			existing = append(existing, domain.Translation{Type: lt.Type, Forms: lt.Forms.Clone()})
			matched[len(existing)-1] = true
			continue
		}
		existing[found].Forms = e.mergeMulti(style, domain.KindExample, id, "translation/"+lt.Type, existing[found].Forms, lt.Forms)
		matched[found] = true
	}
	if style != domain.KeepOnlyNew {
		return existing
	}
	kept := existing[:0]
	for i, t := range existing {
		if matched[i] {
			kept = append(kept, t)
		}
	}
	return kept
}

func (e *Engine) mergePronunciations(entry *domain.Entry, incoming []domain.LiftPronunciation, style domain.MergeStyle) {
	matched := map[uuid.UUID]bool{}
	for _, lp := range incoming {
		if lp.Forms.IsEmpty() && len(lp.Fields) == 0 && len(lp.Traits) == 0 {
			continue
		}
		guid, hasGUID := ParseGUID(lp.GUID)
		var p *domain.Pronunciation
		for _, candidate := range entry.Pronunciations {
			if !matched[candidate.GUID] && ((hasGUID && candidate.GUID == guid) || (!hasGUID && candidate.Form.Overlaps(lp.Forms))) {
				p = candidate
				break
			}
		}
		if p == nil {
			if !hasGUID {
				guid = uuid.New()
			}
			p = &domain.Pronunciation{GUID: guid}
			entry.Pronunciations = append(entry.Pronunciations, p)
		}
		p.Form = e.mergeMulti(style, domain.KindPronunciation, p.GUID.String(), "form", p.Form, lp.Forms)
		if residue := e.fields.Apply(domain.OwnerPronunciation, p.GUID, lp.Fields, lp.Traits, style); residue != "" {
			e.log.Add(domain.LogEntry{Kind: domain.LogWarning, ObjectKind: domain.KindPronunciation, ObjectID: p.GUID.String(), New: residue, Message: "unplaced pronunciation data"})
		}
		matched[p.GUID] = true
	}
	if style == domain.KeepOnlyNew {
		kept := entry.Pronunciations[:0]
		for _, p := range entry.Pronunciations {
			if matched[p.GUID] {
				kept = append(kept, p)
				continue
			}
			e.lex.ClearFieldValues(p.GUID)
			e.log.Add(domain.LogEntry{Kind: domain.LogDeleted, ObjectKind: domain.KindPronunciation, ObjectID: p.GUID.String(), Old: p.Form.First(), Message: "pronunciation not present in import"})
		}
		entry.Pronunciations = kept
	}
}

func (e *Engine) mergeAllomorphs(entry *domain.Entry, incoming []domain.LiftVariant, style domain.MergeStyle) {
	matched := map[uuid.UUID]bool{}
	for _, lv := range incoming {
		if lv.Forms.IsEmpty() {
			continue
		}
		guid, hasGUID := ParseGUID(lv.GUID)
		var a *domain.Allomorph
		for _, candidate := range entry.Allomorphs {
			if !matched[candidate.GUID] && ((hasGUID && candidate.GUID == guid) || (!hasGUID && candidate.Form.Overlaps(lv.Forms))) {
				a = candidate
				break
			}
		}
		if a == nil {
			if !hasGUID {
				guid = uuid.New()
			}
			a = &domain.Allomorph{GUID: guid}
			entry.Allomorphs = append(entry.Allomorphs, a)
		}
		id := a.GUID.String()
		a.Form = e.mergeMulti(style, domain.KindAllomorph, id, "form", a.Form, lv.Forms)
		var custom []domain.LiftTrait
		environments := append([]string(nil), lv.Environments...)
		for _, t := range lv.Traits {
			switch t.Name {
			case "morph-type":
				e.mergeRef(style, domain.KindAllomorph, id, "morph-type", &a.MorphType, e.vocab.ensureItem(ListMorphType, t.Value))
			case "environment":
				environments = append(environments, t.Value)
			default:
				custom = append(custom, t)
			}
		}
		a.Environments = mergeStrings(style, a.Environments, environments)
		if residue := e.fields.Apply(domain.OwnerAllomorph, a.GUID, lv.Fields, custom, style); residue != "" {
			e.log.Add(domain.LogEntry{Kind: domain.LogWarning, ObjectKind: domain.KindAllomorph, ObjectID: id, New: residue, Message: "unplaced allomorph data"})
		}
		matched[a.GUID] = true
	}
	if style == domain.KeepOnlyNew {
		kept := entry.Allomorphs[:0]
		for _, a := range entry.Allomorphs {
			if matched[a.GUID] {
				kept = append(kept, a)
				continue
			}
			e.lex.ClearFieldValues(a.GUID)
			e.log.Add(domain.LogEntry{Kind: domain.LogDeleted, ObjectKind: domain.KindAllomorph, ObjectID: a.GUID.String(), Old: a.Form.First(), Message: "allomorph not present in import"})
		}
		entry.Allomorphs = kept
	}
}

func (e *Engine) mergeNotes(style domain.MergeStyle, kind domain.ObjectKind, id string, existing []domain.Note, incoming []domain.LiftNote) []domain.Note {
	matched := map[int]bool{}
	for _, ln := range incoming {
		if ln.Forms.IsEmpty() {
			continue
		}
		found := -1
		for i, n := range existing {
			if n.Type == ln.Type && !matched[i] {
				found = i
				break
			}
		}
		if found < 0 {
			existing = append(existing, domain.Note{Type: ln.Type, Forms: ln.Forms.Clone()})
			matched[len(existing)-1] = true
			continue
		}
		existing[found].Forms = e.mergeMulti(style, kind, id, "note/"+ln.Type, existing[found].Forms, ln.Forms)
		matched[found] = true
	}
	if style != domain.KeepOnlyNew {
		return existing
	}
	kept := existing[:0]
	for i, n := range existing {
		if matched[i] {
			kept = append(kept, n)
		}
	}
	return kept
}
