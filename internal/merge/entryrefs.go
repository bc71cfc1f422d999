package merge

import (
	"github.com/google/uuid"

	"github.com/sillsdev/liftmerge/internal/domain"
)

// ComponentDecl is one declared component of a complex form or variant.
// A Nil component with types is a placeholder.
type ComponentDecl struct {
	Kind      domain.RefKind
	Component uuid.UUID
	Primary   bool
	Types     []uuid.UUID
}

type refCluster struct {
	kind       domain.RefKind
	types      []uuid.UUID
	components []uuid.UUID
	primary    []uuid.UUID
}

// EntryRefReconciler groups component declarations into as few EntryRefs as
// the data allows.
type EntryRefReconciler struct {
	lex       *domain.Lexicon
	log       *domain.MergeLog
	confirmed map[uuid.UUID]bool
}

func NewEntryRefReconciler(lex *domain.Lexicon, log *domain.MergeLog) *EntryRefReconciler {
	return &EntryRefReconciler{lex: lex, log: log, confirmed: map[uuid.UUID]bool{}}
}

func clusterComponents(decls []ComponentDecl) []*refCluster {
	var clusters []*refCluster
	for _, d := range decls {
		if d.Component == uuid.Nil && len(d.Types) == 0 {
			continue
		}
		var home *refCluster
		for _, c := range clusters {
			if c.kind != d.Kind {
				continue
			}
			if overlaps(c.types, d.Types) || len(d.Types) == 0 || len(c.types) == 0 || domain.ContainsID(c.components, d.Component) {
				home = c
				break
			}
		}
		if home == nil {
			home = &refCluster{kind: d.Kind}
			clusters = append(clusters, home)
		}
		home.types = domain.AppendUnique(home.types, d.Types...)
		home.components = domain.AppendUnique(home.components, d.Component)
		if d.Primary {
			home.primary = domain.AppendUnique(home.primary, d.Component)
		}
	}
	// adding types may have made earlier clusters overlap
	for merged := true; merged; {
		merged = false
		for i := 0; i < len(clusters) && !merged; i++ {
			for j := i + 1; j < len(clusters); j++ {
				a, b := clusters[i], clusters[j]
				if a.kind == b.kind && (overlaps(a.types, b.types) || overlaps(a.components, b.components)) {
					a.types = domain.AppendUnique(a.types, b.types...)
					a.components = domain.AppendUnique(a.components, b.components...)
					a.primary = domain.AppendUnique(a.primary, b.primary...)
					clusters = append(clusters[:j], clusters[j+1:]...)
					merged = true
					break
				}
			}
		}
	}
	return clusters
}

// Apply reconciles the component declarations of one entry.
func (r *EntryRefReconciler) Apply(entry *domain.Entry, decls []ComponentDecl, style domain.MergeStyle) {
	for _, c := range clusterComponents(decls) {
		var matches []*domain.EntryRef
		for _, ref := range entry.EntryRefsOfKind(c.kind) {
			if overlaps(ref.Types, c.types) || overlaps(ref.Components, c.components) ||
				(len(ref.Types) == 0 && len(c.types) == 0) {
				matches = append(matches, ref)
			}
		}
		if len(matches) == 0 {
			ref := &domain.EntryRef{
				GUID:       uuid.New(),
				Kind:       c.kind,
				Components: append([]uuid.UUID(nil), c.components...),
				Primary:    append([]uuid.UUID(nil), c.primary...),
				Types:      append([]uuid.UUID(nil), c.types...),
			}
			entry.EntryRefs = append(entry.EntryRefs, ref)
			r.confirmed[ref.GUID] = true
			msg := "created %s reference with %d components"
			if ref.IsPlaceholder() {
				msg = "created %s placeholder with %d components"
			}
			r.log.Addf(domain.LogCreated, domain.KindEntryRef, ref.GUID.String(), msg, c.kind, len(ref.Components))
			continue
		}
		base := matches[0]
		for _, other := range matches[1:] {
			base.Components = domain.AppendUnique(base.Components, other.Components...)
			base.Primary = domain.AppendUnique(base.Primary, other.Primary...)
			base.Types = domain.AppendUnique(base.Types, other.Types...)
			removeEntryRef(entry, other.GUID)
			r.log.Add(domain.LogEntry{Kind: domain.LogConflict, ObjectKind: domain.KindEntryRef, ObjectID: base.GUID.String(),
				Old: other.GUID.String(), Message: "combined entry references"})
		}
		r.fill(base, c, style)
		r.confirmed[base.GUID] = true
	}
	r.absorbPlaceholders(entry)
}

func (r *EntryRefReconciler) fill(ref *domain.EntryRef, c *refCluster, style domain.MergeStyle) {
	switch style {
	case domain.KeepOld:
		if len(ref.Components) == 0 {
			ref.Components = append(ref.Components, c.components...)
			ref.Primary = domain.AppendUnique(ref.Primary, c.primary...)
		}
		if len(ref.Types) == 0 {
			ref.Types = append(ref.Types, c.types...)
		}
	case domain.KeepBoth:
		ref.Components = domain.AppendUnique(ref.Components, c.components...)
		ref.Primary = domain.AppendUnique(ref.Primary, c.primary...)
		ref.Types = domain.AppendUnique(ref.Types, c.types...)
	default:
		if len(c.components) > 0 {
			ref.Components = reorderAs(ref.Components, c.components)
			ref.Primary = append([]uuid.UUID(nil), c.primary...)
		}
		if len(c.types) > 0 {
			ref.Types = reorderAs(ref.Types, c.types)
		}
	}
}

// reorderAs returns want, keeping the relative order existing already had.
func reorderAs(existing, want []uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	for _, id := range existing {
		if domain.ContainsID(want, id) {
			out = append(out, id)
		}
	}
	return domain.AppendUnique(out, want...)
}

// absorbPlaceholders removes placeholders whose types a real reference of the
// same kind already carries.
func (r *EntryRefReconciler) absorbPlaceholders(entry *domain.Entry) {
	for _, ph := range append([]*domain.EntryRef(nil), entry.EntryRefs...) {
		if !ph.IsPlaceholder() {
			continue
		}
		for _, ref := range entry.EntryRefsOfKind(ph.Kind) {
			if ref.IsPlaceholder() || !subset(ph.Types, ref.Types) {
				continue
			}
			removeEntryRef(entry, ph.GUID)
			if r.confirmed[ph.GUID] {
				r.confirmed[ref.GUID] = true
			}
			r.log.Addf(domain.LogDeleted, domain.KindEntryRef, ph.GUID.String(), "placeholder absorbed by %s", ref.GUID)
			break
		}
	}
}

// RemoveUnconfirmed deletes references of entry that this import did not
// confirm. KeepOnlyNew removes all of them, KeepNew those of the declared
// kinds and any placeholder.
func (r *EntryRefReconciler) RemoveUnconfirmed(entry *domain.Entry, style domain.MergeStyle, declared map[domain.RefKind]bool) {
	if style != domain.KeepNew && style != domain.KeepOnlyNew {
		return
	}
	for _, ref := range append([]*domain.EntryRef(nil), entry.EntryRefs...) {
		if r.confirmed[ref.GUID] {
			continue
		}
		if style == domain.KeepNew && !declared[ref.Kind] && !ref.IsPlaceholder() {
			continue
		}
		removeEntryRef(entry, ref.GUID)
		r.log.Addf(domain.LogDeleted, domain.KindEntryRef, ref.GUID.String(), "%s reference not present in import", ref.Kind)
	}
}

func removeEntryRef(entry *domain.Entry, id uuid.UUID) {
	out := entry.EntryRefs[:0]
	for _, ref := range entry.EntryRefs {
		if ref.GUID != id {
			out = append(out, ref)
		}
	}
	entry.EntryRefs = out
}
