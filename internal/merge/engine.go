package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sillsdev/liftmerge/internal/domain"
)

const componentRelation = "_component-lexeme"

var errFinished = errors.New("merge already finished")

type Options struct {
	Style           domain.MergeStyle
	TrustTimestamps bool
	Now             func() time.Time
}

// Result summarizes one run. Log holds every merge log entry in order.
type Result struct {
	EntriesProcessed int               `json:"entries_processed"`
	Created          int               `json:"created"`
	Merged           int               `json:"merged"`
	Skipped          int               `json:"skipped"`
	Ranges           RangeStats        `json:"ranges"`
	Log              []domain.LogEntry `json:"log"`
}

type pendingRelation struct {
	owner uuid.UUID
	rel   domain.LiftRelation
}

type pendingComponent struct {
	ref     string
	kind    domain.RefKind
	primary bool
	types   []string
}

// ownerState is what pass one remembers about an entry for pass two.
type ownerState struct {
	entry      uuid.UUID
	additive   bool
	senses     []uuid.UUID
	relations  []pendingRelation
	components []pendingComponent
}

// Engine merges one stream of entry records into a lexicon. Entries are
// merged as they arrive; relations and component references are reconciled
// in Finish, once every entry of the batch is known.
type Engine struct {
	lex      *domain.Lexicon
	opts     Options
	log      *domain.MergeLog
	resolver *Resolver
	fields   *FieldRegistry
	vocab    *vocabulary
	links    *Reconciler
	refs     *EntryRefReconciler

	owners   []*ownerState
	ownerIdx map[uuid.UUID]*ownerState
	result   Result
	finished bool
}

func NewEngine(lex *domain.Lexicon, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := &domain.MergeLog{}
	return &Engine{
		lex:      lex,
		opts:     opts,
		log:      log,
		resolver: NewResolver(lex),
		fields:   NewFieldRegistry(lex, log),
		vocab:    &vocabulary{lex: lex, log: log},
		links:    NewReconciler(lex, log),
		refs:     NewEntryRefReconciler(lex, log),
		ownerIdx: map[uuid.UUID]*ownerState{},
	}
}

func (e *Engine) Log() *domain.MergeLog { return e.log }

// ImportRanges merges range definitions; call it before the first entry.
func (e *Engine) ImportRanges(ranges []domain.LiftRange) RangeStats {
	stats := NewRangeImporter(e.lex, e.log).Import(ranges)
	e.result.Ranges = stats
	return stats
}

func (e *Engine) AddHeaders(headers []domain.FieldHeader) {
	e.fields.AddHeaders(headers)
}

// Run pulls every record from src, then reconciles.
func (e *Engine) Run(ctx context.Context, src domain.EntrySource) (Result, error) {
	for {
		rec, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return e.snapshot(), fmt.Errorf("read entry %d: %w", e.result.EntriesProcessed+1, err)
		}
		if err := e.MergeEntry(ctx, rec); err != nil {
			return e.snapshot(), err
		}
	}
	return e.Finish(ctx)
}

func (e *Engine) snapshot() Result {
	r := e.result
	r.Log = e.log.Entries()
	return r
}

// MergeEntry runs pass one for a single record.
func (e *Engine) MergeEntry(ctx context.Context, rec *domain.LiftEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.finished {
		return errFinished
	}
	e.result.EntriesProcessed++
	res := e.resolver.ResolveEntry(rec)
	existing, _ := e.lex.Entry(res.GUID)
	if res.ByFallback {
		e.log.Addf(domain.LogNotice, domain.KindEntry, res.GUID.String(), "matched %q by form and sense count", rec.LexicalUnit.First())
	}

	var (
		entry    *domain.Entry
		senseIDs []uuid.UUID
		additive = e.opts.Style == domain.KeepOld || e.opts.Style == domain.KeepBoth
	)
	switch {
	case existing == nil:
		entry, senseIDs = e.createEntry(rec, res.GUID, false)
		e.result.Created++
	case e.opts.TrustTimestamps && !rec.DateModified.IsZero() && !rec.DateModified.After(existing.DateModified):
		entry = existing
		senseIDs = e.matchSensesOnly(existing, rec)
		additive = true
		e.result.Skipped++
		e.log.Addf(domain.LogSkipped, domain.KindEntry, existing.GUID.String(), "not modified since %s", existing.DateModified.Format(time.RFC3339))
	case e.opts.Style == domain.KeepBoth && e.conflicts(existing, rec):
		entry, senseIDs = e.createEntry(rec, uuid.New(), true)
		e.result.Created++
		e.log.Add(domain.LogEntry{Kind: domain.LogConflict, ObjectKind: domain.KindEntry, ObjectID: existing.GUID.String(),
			New: entry.GUID.String(), Message: "conflicting values, kept both as separate entries"})
	default:
		senseIDs = e.mergeInto(existing, rec, e.opts.Style, false)
		entry = existing
		e.result.Merged++
		e.log.Addf(domain.LogMerged, domain.KindEntry, existing.GUID.String(), "merged %q", existing.Headword())
	}

	e.resolver.Register(rec.ID, entry.GUID)
	e.resolver.Register(rec.GUID, entry.GUID)
	e.resolver.Track(entry)
	e.collect(entry, rec, senseIDs, additive)
	return nil
}

func (e *Engine) collect(entry *domain.Entry, rec *domain.LiftEntry, senseIDs []uuid.UUID, additive bool) {
	st, ok := e.ownerIdx[entry.GUID]
	if !ok {
		st = &ownerState{entry: entry.GUID, additive: additive}
		e.ownerIdx[entry.GUID] = st
		e.owners = append(e.owners, st)
	}
	st.additive = st.additive && additive
	add := func(owner uuid.UUID, rels []domain.LiftRelation) {
		for _, rel := range rels {
			if rel.Type == componentRelation {
				st.components = append(st.components, componentFromRelation(rel))
				continue
			}
			st.relations = append(st.relations, pendingRelation{owner: owner, rel: rel})
		}
	}
	add(entry.GUID, rec.Relations)
	for _, v := range rec.Variants {
		if isVariantRef(v) {
			st.components = append(st.components, pendingComponent{
				ref: v.Ref, kind: domain.RefVariant, types: domain.TraitValues(v.Traits, "variant-type"),
			})
		}
	}
	for i, ls := range rec.Senses {
		if i >= len(senseIDs) || senseIDs[i] == uuid.Nil {
			continue
		}
		st.senses = domain.AppendUnique(st.senses, senseIDs[i])
		add(senseIDs[i], ls.Relations)
	}
}

func componentFromRelation(rel domain.LiftRelation) pendingComponent {
	pc := pendingComponent{ref: rel.Ref, kind: domain.RefComplexForm}
	if types := domain.TraitValues(rel.Traits, "variant-type"); len(types) > 0 {
		pc.kind = domain.RefVariant
		pc.types = types
	} else {
		pc.types = domain.TraitValues(rel.Traits, "complex-form-type")
	}
	for _, v := range domain.TraitValues(rel.Traits, "is-primary") {
		pc.primary = pc.primary || strings.EqualFold(v, "true")
	}
	return pc
}

// isVariantRef separates variant references from allomorphs sharing the element.
func isVariantRef(v domain.LiftVariant) bool {
	return v.Ref != "" || len(domain.TraitValues(v.Traits, "variant-type")) > 0
}

// Finish runs pass two: component references, relations, ordering and removals.
func (e *Engine) Finish(ctx context.Context) (Result, error) {
	if e.finished {
		return e.snapshot(), errFinished
	}
	for _, st := range e.owners {
		if err := ctx.Err(); err != nil {
			return e.snapshot(), err
		}
		entry, ok := e.lex.Entry(st.entry)
		if !ok {
			continue
		}
		style := e.opts.Style
		if st.additive && style != domain.KeepBoth {
			style = domain.KeepOld
		}
		e.refs.Apply(entry, e.componentDecls(entry, st), style)
	}

	for _, d := range e.declarations() {
		e.links.Apply(d)
	}
	e.links.FinishOrdering()

	for _, st := range e.owners {
		if err := ctx.Err(); err != nil {
			return e.snapshot(), err
		}
		if st.additive {
			continue
		}
		all := e.opts.Style == domain.KeepOnlyNew
		for _, owner := range append([]uuid.UUID{st.entry}, st.senses...) {
			e.links.RemoveUnconfirmed(owner, e.links.DeclaredTypes(owner), all)
		}
		if entry, ok := e.lex.Entry(st.entry); ok {
			kinds := map[domain.RefKind]bool{}
			for _, pc := range st.components {
				kinds[pc.kind] = true
			}
			e.refs.RemoveUnconfirmed(entry, e.opts.Style, kinds)
		}
	}
	e.finished = true
	return e.snapshot(), nil
}

func (e *Engine) componentDecls(entry *domain.Entry, st *ownerState) []ComponentDecl {
	var decls []ComponentDecl
	for _, pc := range st.components {
		list := ListComplexForm
		if pc.kind == domain.RefVariant {
			list = ListVariantType
		}
		var types []uuid.UUID
		for _, name := range pc.types {
			types = domain.AppendUnique(types, e.vocab.ensureItem(list, name))
		}
		d := ComponentDecl{Kind: pc.kind, Primary: pc.primary, Types: types}
		if pc.ref != "" {
			id, _, ok := e.resolver.ResolveRef(pc.ref)
			if !ok {
				e.log.Add(domain.LogEntry{Kind: domain.LogUnresolved, ObjectKind: domain.KindEntry, ObjectID: entry.GUID.String(),
					Field: string(pc.kind), Message: fmt.Sprintf("component %q not found", pc.ref)})
				continue
			}
			d.Component = id
		}
		decls = append(decls, d)
	}
	return decls
}

// declarations groups pending relations by owner and type, resolving labels and targets.
func (e *Engine) declarations() []Declaration {
	var out []Declaration
	index := map[string]int{}
	for _, st := range e.owners {
		for _, pr := range st.relations {
			t, head := e.referenceType(pr.rel.Type)
			target, _, ok := e.resolver.ResolveRef(pr.rel.Ref)
			if !ok {
				e.log.Add(domain.LogEntry{Kind: domain.LogUnresolved, ObjectKind: e.lex.KindOf(pr.owner), ObjectID: pr.owner.String(),
					Field: pr.rel.Type, Message: fmt.Sprintf("relation target %q not found", pr.rel.Ref)})
				continue
			}
			key := fmt.Sprintf("%s|%s|%t", pr.owner, t.GUID, head)
			i, seen := index[key]
			if !seen {
				i = len(out)
				index[key] = i
				out = append(out, Declaration{Owner: pr.owner, Type: t, Head: head})
			}
			out[i].Targets = append(out[i].Targets, Target{ID: target, Order: pr.rel.Order})
		}
	}
	return out
}

// referenceType binds a relation label to a type. Forward labels speak for
// the whole of a tree; reverse labels for a part. Unknown labels become new
// collection types.
func (e *Engine) referenceType(label string) (*domain.ReferenceType, bool) {
	for _, t := range e.lex.ReferenceTypes() {
		if t.MatchesForward(label) {
			return t, true
		}
	}
	for _, t := range e.lex.ReferenceTypes() {
		if t.MatchesReverse(label) {
			return t, false
		}
	}
	t := &domain.ReferenceType{GUID: uuid.New(), LiftID: label, Kind: domain.MappingCollection, Name: domain.MultiString{"en": label}}
	e.lex.AddReferenceType(t)
	e.log.Addf(domain.LogNotice, domain.KindReferenceType, t.GUID.String(), "relation type %q not in ranges, created as collection", label)
	return t, true
}
