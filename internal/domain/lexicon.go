package domain

import (
	"sort"

	"github.com/google/uuid"
)

// Lexicon is the in-memory store one import works against. Objects are
// addressed by GUID; every link membership change goes through the methods
// here so the member index stays consistent.
type Lexicon struct {
	entries    map[uuid.UUID]*Entry
	entryOrder []uuid.UUID
	senses     map[uuid.UUID]*Sense

	links     map[uuid.UUID]*LinkObject
	linkOrder []uuid.UUID
	linkSeq   map[uuid.UUID]int
	nextLink  int
	memberOf  map[uuid.UUID][]uuid.UUID

	refTypes     map[uuid.UUID]*ReferenceType
	refTypeOrder []uuid.UUID

	lists     map[uuid.UUID]*PossibilityList
	listOrder []uuid.UUID
	items     map[uuid.UUID]*Possibility
	itemOrder []uuid.UUID

	fieldDefs   []*FieldDef
	nextFieldID uint
	fieldValues map[uuid.UUID]map[string]FieldValue
}

func NewLexicon() *Lexicon {
	return &Lexicon{
		entries:     map[uuid.UUID]*Entry{},
		senses:      map[uuid.UUID]*Sense{},
		links:       map[uuid.UUID]*LinkObject{},
		linkSeq:     map[uuid.UUID]int{},
		memberOf:    map[uuid.UUID][]uuid.UUID{},
		refTypes:    map[uuid.UUID]*ReferenceType{},
		lists:       map[uuid.UUID]*PossibilityList{},
		items:       map[uuid.UUID]*Possibility{},
		fieldValues: map[uuid.UUID]map[string]FieldValue{},
		nextFieldID: 1,
	}
}

// KindOf reports whether id names an entry or a sense.
func (l *Lexicon) KindOf(id uuid.UUID) ObjectKind {
	if _, ok := l.entries[id]; ok {
		return KindEntry
	}
	if _, ok := l.senses[id]; ok {
		return KindSense
	}
	return KindNone
}

func (l *Lexicon) Entry(id uuid.UUID) (*Entry, bool) {
	e, ok := l.entries[id]
	return e, ok
}

func (l *Lexicon) Entries() []*Entry {
	out := make([]*Entry, 0, len(l.entries))
	order := l.entryOrder[:0]
	for _, id := range l.entryOrder {
		if e, ok := l.entries[id]; ok {
			out = append(out, e)
			order = append(order, id)
		}
	}
	l.entryOrder = order
	return out
}

func (l *Lexicon) EntryCount() int { return len(l.entries) }

// AddEntry stores e and indexes the senses it already owns.
func (l *Lexicon) AddEntry(e *Entry) {
	if _, exists := l.entries[e.GUID]; !exists {
		l.entryOrder = append(l.entryOrder, e.GUID)
	}
	l.entries[e.GUID] = e
	for _, s := range e.Senses {
		s.Entry = e.GUID
		l.senses[s.GUID] = s
	}
}

// RemoveEntry deletes the entry, its senses, their memberships and field values,
// and every component reference to them.
func (l *Lexicon) RemoveEntry(id uuid.UUID) bool {
	e, ok := l.entries[id]
	if !ok {
		return false
	}
	for _, s := range append([]*Sense(nil), e.Senses...) {
		l.RemoveSense(s.GUID)
	}
	for _, a := range e.Allomorphs {
		delete(l.fieldValues, a.GUID)
	}
	for _, p := range e.Pronunciations {
		delete(l.fieldValues, p.GUID)
	}
	delete(l.entries, id)
	l.forgetObject(id)
	return true
}

func (l *Lexicon) Sense(id uuid.UUID) (*Sense, bool) {
	s, ok := l.senses[id]
	return s, ok
}

func (l *Lexicon) AddSense(e *Entry, s *Sense) {
	s.Entry = e.GUID
	e.Senses = append(e.Senses, s)
	l.senses[s.GUID] = s
}

// MoveSense reattaches a sense to another entry.
func (l *Lexicon) MoveSense(s *Sense, to *Entry) {
	if from, ok := l.entries[s.Entry]; ok {
		from.Senses = removeSense(from.Senses, s.GUID)
	}
	s.Entry = to.GUID
	to.Senses = append(to.Senses, s)
	l.senses[s.GUID] = s
}

func (l *Lexicon) RemoveSense(id uuid.UUID) bool {
	s, ok := l.senses[id]
	if !ok {
		return false
	}
	if e, ok := l.entries[s.Entry]; ok {
		e.Senses = removeSense(e.Senses, id)
	}
	for _, x := range s.Examples {
		delete(l.fieldValues, x.GUID)
	}
	delete(l.senses, id)
	l.forgetObject(id)
	return true
}

func removeSense(senses []*Sense, id uuid.UUID) []*Sense {
	out := senses[:0]
	for _, s := range senses {
		if s.GUID != id {
			out = append(out, s)
		}
	}
	return out
}

func (l *Lexicon) forgetObject(id uuid.UUID) {
	delete(l.fieldValues, id)
	for _, linkID := range append([]uuid.UUID(nil), l.memberOf[id]...) {
		link, ok := l.links[linkID]
		if !ok {
			continue
		}
		kind := l.mappingKind(link.Type)
		if kind == MappingTree && link.Head() == id {
			l.DeleteLink(linkID)
			continue
		}
		l.RemoveLinkMember(linkID, id)
		if len(link.Targets) < kind.MinMembers() {
			l.DeleteLink(linkID)
		}
	}
	delete(l.memberOf, id)
	for _, e := range l.entries {
		for _, ref := range e.EntryRefs {
			ref.Components = RemoveID(ref.Components, id)
			ref.Primary = RemoveID(ref.Primary, id)
		}
	}
}

func (l *Lexicon) mappingKind(typeID uuid.UUID) MappingKind {
	if t, ok := l.refTypes[typeID]; ok {
		return t.Kind
	}
	return MappingCollection
}

func (l *Lexicon) Link(id uuid.UUID) (*LinkObject, bool) {
	link, ok := l.links[id]
	return link, ok
}

func (l *Lexicon) Links() []*LinkObject {
	out := make([]*LinkObject, 0, len(l.links))
	order := l.linkOrder[:0]
	for _, id := range l.linkOrder {
		if link, ok := l.links[id]; ok {
			out = append(out, link)
			order = append(order, id)
		}
	}
	l.linkOrder = order
	return out
}

func (l *Lexicon) LinksOfType(typeID uuid.UUID) []*LinkObject {
	var out []*LinkObject
	for _, link := range l.Links() {
		if link.Type == typeID {
			out = append(out, link)
		}
	}
	return out
}

// LinksContaining returns the links holding member, limited to typeID unless it is uuid.Nil.
func (l *Lexicon) LinksContaining(member, typeID uuid.UUID) []*LinkObject {
	return l.LinksContainingAny([]uuid.UUID{member}, typeID)
}

// LinksContainingAny returns, in link order and without repeats, the links
// holding at least one of members.
func (l *Lexicon) LinksContainingAny(members []uuid.UUID, typeID uuid.UUID) []*LinkObject {
	seen := map[uuid.UUID]bool{}
	var out []*LinkObject
	for _, m := range members {
		for _, id := range l.memberOf[m] {
			link, ok := l.links[id]
			if !ok || seen[id] || (typeID != uuid.Nil && link.Type != typeID) {
				continue
			}
			seen[id] = true
			out = append(out, link)
		}
	}
	sort.Slice(out, func(i, j int) bool { return l.linkSeq[out[i].GUID] < l.linkSeq[out[j].GUID] })
	return out
}

func (l *Lexicon) AddLink(link *LinkObject) {
	if link.GUID == uuid.Nil {
		link.GUID = uuid.New()
	}
	if _, exists := l.links[link.GUID]; !exists {
		l.linkSeq[link.GUID] = l.nextLink
		l.nextLink++
		l.linkOrder = append(l.linkOrder, link.GUID)
	}
	l.links[link.GUID] = link
	for _, m := range link.Targets {
		l.memberOf[m] = AppendUnique(l.memberOf[m], link.GUID)
	}
}

func (l *Lexicon) AddLinkMember(linkID, member uuid.UUID) bool {
	link, ok := l.links[linkID]
	if !ok || link.Contains(member) {
		return false
	}
	link.Targets = append(link.Targets, member)
	l.memberOf[member] = AppendUnique(l.memberOf[member], linkID)
	return true
}

func (l *Lexicon) RemoveLinkMember(linkID, member uuid.UUID) bool {
	link, ok := l.links[linkID]
	if !ok || !link.Contains(member) {
		return false
	}
	link.Targets = RemoveID(link.Targets, member)
	l.memberOf[member] = RemoveID(l.memberOf[member], linkID)
	return true
}

// SetLinkTargets replaces the member list, reindexing memberships.
func (l *Lexicon) SetLinkTargets(linkID uuid.UUID, targets []uuid.UUID) {
	link, ok := l.links[linkID]
	if !ok {
		return
	}
	for _, m := range link.Targets {
		l.memberOf[m] = RemoveID(l.memberOf[m], linkID)
	}
	link.Targets = AppendUnique(nil, targets...)
	for _, m := range link.Targets {
		l.memberOf[m] = AppendUnique(l.memberOf[m], linkID)
	}
}

func (l *Lexicon) DeleteLink(linkID uuid.UUID) bool {
	link, ok := l.links[linkID]
	if !ok {
		return false
	}
	for _, m := range link.Targets {
		l.memberOf[m] = RemoveID(l.memberOf[m], linkID)
	}
	delete(l.links, linkID)
	delete(l.linkSeq, linkID)
	return true
}

func (l *Lexicon) ReferenceType(id uuid.UUID) (*ReferenceType, bool) {
	t, ok := l.refTypes[id]
	return t, ok
}

func (l *Lexicon) ReferenceTypes() []*ReferenceType {
	out := make([]*ReferenceType, 0, len(l.refTypeOrder))
	for _, id := range l.refTypeOrder {
		out = append(out, l.refTypes[id])
	}
	return out
}

func (l *Lexicon) AddReferenceType(t *ReferenceType) {
	if t.GUID == uuid.Nil {
		t.GUID = uuid.New()
	}
	if _, exists := l.refTypes[t.GUID]; !exists {
		l.refTypeOrder = append(l.refTypeOrder, t.GUID)
	}
	l.refTypes[t.GUID] = t
}

func (l *Lexicon) List(id uuid.UUID) (*PossibilityList, bool) {
	list, ok := l.lists[id]
	return list, ok
}

func (l *Lexicon) Lists() []*PossibilityList {
	out := make([]*PossibilityList, 0, len(l.listOrder))
	for _, id := range l.listOrder {
		out = append(out, l.lists[id])
	}
	return out
}

func (l *Lexicon) AddList(list *PossibilityList) {
	if list.GUID == uuid.Nil {
		list.GUID = uuid.New()
	}
	if _, exists := l.lists[list.GUID]; !exists {
		l.listOrder = append(l.listOrder, list.GUID)
	}
	l.lists[list.GUID] = list
}

func (l *Lexicon) Item(id uuid.UUID) (*Possibility, bool) {
	p, ok := l.items[id]
	return p, ok
}

// Items returns the possibilities of one list in insertion order.
func (l *Lexicon) Items(listID uuid.UUID) []*Possibility {
	var out []*Possibility
	for _, id := range l.itemOrder {
		if p := l.items[id]; p.List == listID {
			out = append(out, p)
		}
	}
	return out
}

func (l *Lexicon) AddItem(p *Possibility) {
	if p.GUID == uuid.Nil {
		p.GUID = uuid.New()
	}
	if _, exists := l.items[p.GUID]; !exists {
		l.itemOrder = append(l.itemOrder, p.GUID)
	}
	l.items[p.GUID] = p
}

func (l *Lexicon) FieldDefs() []*FieldDef {
	return append([]*FieldDef(nil), l.fieldDefs...)
}

func (l *Lexicon) FieldDef(owner OwnerKind, name string) (*FieldDef, bool) {
	for _, def := range l.fieldDefs {
		if def.OwnerKind == owner && def.Name == name {
			return def, true
		}
	}
	return nil, false
}

// AddFieldDef stores def, assigning an id when it has none.
func (l *Lexicon) AddFieldDef(def *FieldDef) {
	if def.ID == 0 {
		def.ID = l.nextFieldID
	}
	if def.ID >= l.nextFieldID {
		l.nextFieldID = def.ID + 1
	}
	l.fieldDefs = append(l.fieldDefs, def)
}

func (l *Lexicon) FieldValue(object uuid.UUID, name string) (FieldValue, bool) {
	v, ok := l.fieldValues[object][name]
	return v, ok
}

// FieldValues returns a copy of the values held by object.
func (l *Lexicon) FieldValues(object uuid.UUID) map[string]FieldValue {
	out := make(map[string]FieldValue, len(l.fieldValues[object]))
	for k, v := range l.fieldValues[object] {
		out[k] = v
	}
	return out
}

// FieldValueOwners lists every object holding at least one field value.
func (l *Lexicon) FieldValueOwners() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(l.fieldValues))
	for id := range l.fieldValues {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (l *Lexicon) SetFieldValue(object uuid.UUID, name string, v FieldValue) {
	values, ok := l.fieldValues[object]
	if !ok {
		values = map[string]FieldValue{}
		l.fieldValues[object] = values
	}
	values[name] = v
}

func (l *Lexicon) ClearFieldValue(object uuid.UUID, name string) {
	delete(l.fieldValues[object], name)
	if len(l.fieldValues[object]) == 0 {
		delete(l.fieldValues, object)
	}
}

func (l *Lexicon) ClearFieldValues(object uuid.UUID) {
	delete(l.fieldValues, object)
}
