package merge

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/sillsdev/liftmerge/internal/domain"
)

// Resolution is the outcome of matching an incoming record to the lexicon.
type Resolution struct {
	GUID       uuid.UUID
	Existing   bool
	ByFallback bool
}

// Resolver maps incoming identifiers to lexicon GUIDs. Document ids seen in
// the current batch take precedence over ids stored by earlier imports.
type Resolver struct {
	lex      *domain.Lexicon
	batch    map[string]uuid.UUID
	stored   map[string]uuid.UUID
	fallback map[string][]uuid.UUID
}

func NewResolver(lex *domain.Lexicon) *Resolver {
	r := &Resolver{
		lex:      lex,
		batch:    map[string]uuid.UUID{},
		stored:   map[string]uuid.UUID{},
		fallback: map[string][]uuid.UUID{},
	}
	for _, e := range lex.Entries() {
		r.Track(e)
	}
	return r
}

// FallbackKey identifies a GUID-less entry by its first lexeme alternative and sense count.
func FallbackKey(form domain.MultiString, senseCount int) string {
	first := form.First()
	if first == "" {
		return ""
	}
	return first + "|" + strconv.Itoa(senseCount)
}

// Track indexes an entry that now exists in the lexicon.
func (r *Resolver) Track(e *domain.Entry) {
	if e.LiftID != "" {
		if _, ok := r.stored[e.LiftID]; !ok {
			r.stored[e.LiftID] = e.GUID
		}
	}
	for _, s := range e.Senses {
		if s.LiftID != "" {
			if _, ok := r.stored[s.LiftID]; !ok {
				r.stored[s.LiftID] = s.GUID
			}
		}
	}
	if key := FallbackKey(e.LexemeForm, len(e.Senses)); key != "" {
		r.fallback[key] = domain.AppendUnique(r.fallback[key], e.GUID)
	}
}

// Register binds a document id of the current batch to an object.
func (r *Resolver) Register(liftID string, id uuid.UUID) {
	if liftID != "" && id != uuid.Nil {
		r.batch[liftID] = id
	}
}

func (r *Resolver) ResolveEntry(rec *domain.LiftEntry) Resolution {
	if guid, ok := ParseGUID(rec.GUID); ok {
		_, exists := r.lex.Entry(guid)
		return Resolution{GUID: guid, Existing: exists}
	}
	if guid, ok := ParseGUID(rec.ID); ok {
		_, exists := r.lex.Entry(guid)
		return Resolution{GUID: guid, Existing: exists}
	}
	if key := FallbackKey(rec.LexicalUnit, len(rec.Senses)); key != "" {
		var live []uuid.UUID
		for _, id := range r.fallback[key] {
			if e, ok := r.lex.Entry(id); ok && FallbackKey(e.LexemeForm, len(e.Senses)) == key {
				live = append(live, id)
			}
		}
		if len(live) == 1 {
			return Resolution{GUID: live[0], Existing: true, ByFallback: true}
		}
	}
	return Resolution{GUID: uuid.New()}
}

// ResolveSense returns the sense GUID and whether a sense with it already exists.
func (r *Resolver) ResolveSense(rec *domain.LiftSense) (uuid.UUID, bool) {
	guid, ok := ParseGUID(rec.GUID)
	if !ok {
		guid, ok = ParseGUID(rec.ID)
	}
	if !ok {
		return uuid.Nil, false
	}
	_, exists := r.lex.Sense(guid)
	return guid, exists
}

// ResolveRef turns a relation target into an entry or sense GUID. It tries the
// ids of this batch, then an embedded GUID, then ids stored by earlier imports.
func (r *Resolver) ResolveRef(ref string) (uuid.UUID, domain.ObjectKind, bool) {
	if ref == "" {
		return uuid.Nil, domain.KindNone, false
	}
	if id, ok := r.batch[ref]; ok {
		if kind := r.lex.KindOf(id); kind != domain.KindNone {
			return id, kind, true
		}
	}
	if id, ok := ParseGUID(ref); ok {
		if kind := r.lex.KindOf(id); kind != domain.KindNone {
			return id, kind, true
		}
	}
	if id, ok := r.stored[ref]; ok {
		if kind := r.lex.KindOf(id); kind != domain.KindNone {
			return id, kind, true
		}
	}
	return uuid.Nil, domain.KindNone, false
}
