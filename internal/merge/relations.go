package merge

import (
	"sort"

	"github.com/google/uuid"

	"github.com/sillsdev/liftmerge/internal/domain"
)

// Target is one declared relation endpoint with its optional sequence position.
type Target struct {
	ID    uuid.UUID
	Order *int
}

// Declaration is everything one owner says about one reference type in one import.
// Head is set when the owner speaks as the whole of a tree relation.
type Declaration struct {
	Owner   uuid.UUID
	Type    *domain.ReferenceType
	Head    bool
	Targets []Target
}

// Reconciler finds or creates the single link object behind each declaration
// and tracks which memberships the current import confirmed.
type Reconciler struct {
	lex       *domain.Lexicon
	log       *domain.MergeLog
	touched   map[uuid.UUID]bool
	confirmed map[uuid.UUID]map[uuid.UUID]bool
	declared  map[uuid.UUID]map[uuid.UUID]bool
	explicit  map[uuid.UUID]map[uuid.UUID]int
	inferred  map[uuid.UUID]map[uuid.UUID]int
}

func NewReconciler(lex *domain.Lexicon, log *domain.MergeLog) *Reconciler {
	return &Reconciler{
		lex:       lex,
		log:       log,
		touched:   map[uuid.UUID]bool{},
		confirmed: map[uuid.UUID]map[uuid.UUID]bool{},
		declared:  map[uuid.UUID]map[uuid.UUID]bool{},
		explicit:  map[uuid.UUID]map[uuid.UUID]int{},
		inferred:  map[uuid.UUID]map[uuid.UUID]int{},
	}
}

func (r *Reconciler) Apply(d Declaration) {
	targets := make([]Target, 0, len(d.Targets))
	for _, t := range d.Targets {
		if t.ID == uuid.Nil || t.ID == d.Owner {
			continue
		}
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		return
	}
	d.Targets = targets
	if r.declared[d.Owner] == nil {
		r.declared[d.Owner] = map[uuid.UUID]bool{}
	}
	r.declared[d.Owner][d.Type.GUID] = true

	switch d.Type.Kind {
	case domain.MappingPair:
		for _, t := range d.Targets {
			r.applyPair(d.Type, d.Owner, t.ID)
		}
	case domain.MappingTree:
		if d.Head {
			r.applyTreeHead(d)
			return
		}
		for _, t := range d.Targets {
			r.applyTreePart(d.Type, d.Owner, t.ID)
		}
	default:
		r.applyGroup(d)
	}
}

func (r *Reconciler) applyPair(t *domain.ReferenceType, owner, target uuid.UUID) {
	var matches []*domain.LinkObject
	for _, link := range r.lex.LinksContaining(owner, t.GUID) {
		if link.Contains(target) {
			matches = append(matches, link)
		}
	}
	link := r.settle(t, matches, []uuid.UUID{owner, target})
	r.confirm(link, owner, target)
}

func (r *Reconciler) applyGroup(d Declaration) {
	union := []uuid.UUID{d.Owner}
	for _, t := range d.Targets {
		union = domain.AppendUnique(union, t.ID)
	}
	var matches, partial []*domain.LinkObject
	for _, link := range r.lex.LinksContainingAny(union, d.Type.GUID) {
		switch {
		case link.Contains(d.Owner) && subset(link.Targets, union):
			matches = append(matches, link)
		case r.touched[link.GUID] && overlaps(link.Targets, union):
			matches = append(matches, link)
		case link.Contains(d.Owner) && overlaps(link.Targets, union[1:]):
			partial = append(partial, link)
		}
	}
	// a group that shares a declared target still belongs to the owner
	if len(matches) == 0 {
		matches = partial
	}
	link := r.settle(d.Type, matches, union)
	for _, id := range union {
		r.lex.AddLinkMember(link.GUID, id)
	}
	r.confirm(link, union...)
	if d.Type.Kind == domain.MappingSequence {
		r.recordOrder(link.GUID, d)
	}
}

func (r *Reconciler) applyTreeHead(d Declaration) {
	members := []uuid.UUID{d.Owner}
	for _, t := range d.Targets {
		members = domain.AppendUnique(members, t.ID)
	}
	var matches []*domain.LinkObject
	for _, link := range r.lex.LinksContaining(d.Owner, d.Type.GUID) {
		if link.Head() == d.Owner && (r.touched[link.GUID] || overlaps(link.Targets[1:], members[1:])) {
			matches = append(matches, link)
		}
	}
	link := r.settle(d.Type, matches, members)
	for _, id := range members[1:] {
		r.lex.AddLinkMember(link.GUID, id)
	}
	r.confirm(link, members...)
}

// applyTreePart joins the part to the tree whose whole is head.
func (r *Reconciler) applyTreePart(t *domain.ReferenceType, part, head uuid.UUID) {
	var matches []*domain.LinkObject
	for _, link := range r.lex.LinksContaining(head, t.GUID) {
		if link.Head() == head {
			matches = append(matches, link)
		}
	}
	link := r.settle(t, matches, []uuid.UUID{head, part})
	r.lex.AddLinkMember(link.GUID, part)
	r.confirm(link, head, part)
}

// settle returns the one link the declaration maps to: a new one when nothing
// matched, or the first match with every other match folded into it.
func (r *Reconciler) settle(t *domain.ReferenceType, matches []*domain.LinkObject, members []uuid.UUID) *domain.LinkObject {
	if len(matches) == 0 {
		link := &domain.LinkObject{GUID: uuid.New(), Type: t.GUID, Targets: append([]uuid.UUID(nil), members...)}
		r.lex.AddLink(link)
		r.touched[link.GUID] = true
		r.log.Addf(domain.LogCreated, domain.KindLink, link.GUID.String(), "created %s link %q with %d members", t.Kind, t.Label(), len(members))
		return link
	}
	base := matches[0]
	for _, other := range matches[1:] {
		for _, id := range other.Targets {
			r.lex.AddLinkMember(base.GUID, id)
		}
		for id := range r.confirmed[other.GUID] {
			r.confirm(base, id)
		}
		r.lex.DeleteLink(other.GUID)
		r.log.Add(domain.LogEntry{
			Kind: domain.LogConflict, ObjectKind: domain.KindLink, ObjectID: base.GUID.String(),
			Field: t.Label(), Old: other.GUID.String(), Message: "combined collections",
		})
	}
	r.touched[base.GUID] = true
	return base
}

func (r *Reconciler) confirm(link *domain.LinkObject, members ...uuid.UUID) {
	set := r.confirmed[link.GUID]
	if set == nil {
		set = map[uuid.UUID]bool{}
		r.confirmed[link.GUID] = set
	}
	for _, id := range members {
		set[id] = true
	}
}

func (r *Reconciler) recordOrder(linkID uuid.UUID, d Declaration) {
	if r.explicit[linkID] == nil {
		r.explicit[linkID] = map[uuid.UUID]int{}
		r.inferred[linkID] = map[uuid.UUID]int{}
	}
	used := map[int]bool{}
	complete := true
	for _, t := range d.Targets {
		if t.Order == nil {
			complete = false
			continue
		}
		r.explicit[linkID][t.ID] = *t.Order
		used[*t.Order] = true
	}
	if _, ok := r.explicit[linkID][d.Owner]; ok || !complete {
		return
	}
	gap := 0
	for used[gap] {
		gap++
	}
	r.inferred[linkID][d.Owner] = gap
}

// FinishOrdering sorts every touched sequence by the positions declared in this import.
func (r *Reconciler) FinishOrdering() {
	for _, link := range r.lex.Links() {
		linkID := link.GUID
		explicit, ok := r.explicit[linkID]
		if !ok {
			continue
		}
		type slot struct {
			id       uuid.UUID
			known    bool
			position int
			index    int
		}
		slots := make([]slot, len(link.Targets))
		for i, id := range link.Targets {
			s := slot{id: id, index: i}
			if p, ok := explicit[id]; ok {
				s.known, s.position = true, p
			} else if p, ok := r.inferred[linkID][id]; ok {
				s.known, s.position = true, p
			}
			slots[i] = s
		}
		sort.SliceStable(slots, func(i, j int) bool {
			a, b := slots[i], slots[j]
			if a.known != b.known {
				return a.known
			}
			if a.known && a.position != b.position {
				return a.position < b.position
			}
			return a.index < b.index
		})
		ordered := make([]uuid.UUID, len(slots))
		changed := false
		for i, s := range slots {
			ordered[i] = s.id
			changed = changed || s.index != i
		}
		if changed {
			r.lex.SetLinkTargets(linkID, ordered)
			r.log.Addf(domain.LogMerged, domain.KindLink, linkID.String(), "reordered sequence")
		}
	}
}

// DeclaredTypes returns the reference types owner declared in this import.
func (r *Reconciler) DeclaredTypes(owner uuid.UUID) map[uuid.UUID]bool {
	return r.declared[owner]
}

// RemoveUnconfirmed drops owner from every link it holds that no declaration
// confirmed. A nil types filter means every reference type.
func (r *Reconciler) RemoveUnconfirmed(owner uuid.UUID, types map[uuid.UUID]bool, all bool) {
	for _, link := range r.lex.LinksContaining(owner, uuid.Nil) {
		if !all && !types[link.Type] {
			continue
		}
		if r.confirmed[link.GUID][owner] {
			continue
		}
		kind := domain.MappingCollection
		label := link.Type.String()
		if t, ok := r.lex.ReferenceType(link.Type); ok {
			kind, label = t.Kind, t.Label()
		}
		if kind == domain.MappingTree && link.Head() == owner {
			r.lex.DeleteLink(link.GUID)
			r.log.Add(domain.LogEntry{Kind: domain.LogDeleted, ObjectKind: domain.KindLink, ObjectID: link.GUID.String(),
				Field: label, Message: "whole no longer declares this tree"})
			continue
		}
		r.lex.RemoveLinkMember(link.GUID, owner)
		r.log.Add(domain.LogEntry{Kind: domain.LogDeleted, ObjectKind: domain.KindLink, ObjectID: link.GUID.String(),
			Field: label, Old: owner.String(), Message: "membership not present in import"})
		if len(link.Targets) < kind.MinMembers() {
			r.lex.DeleteLink(link.GUID)
			r.log.Add(domain.LogEntry{Kind: domain.LogDeleted, ObjectKind: domain.KindLink, ObjectID: link.GUID.String(),
				Field: label, Message: "too few members left"})
		}
	}
}

func subset(members, of []uuid.UUID) bool {
	for _, id := range members {
		if !domain.ContainsID(of, id) {
			return false
		}
	}
	return true
}

func overlaps(a, b []uuid.UUID) bool {
	for _, id := range a {
		if domain.ContainsID(b, id) {
			return true
		}
	}
	return false
}
