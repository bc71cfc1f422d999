package merge

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/sillsdev/liftmerge/internal/domain"
)

// FieldRegistry owns custom field definitions and converts incoming field and
// trait values into typed values on lexicon objects.
type FieldRegistry struct {
	lex     *domain.Lexicon
	log     *domain.MergeLog
	vocab   *vocabulary
	headers map[string]domain.FieldHeader
	// conflicts holds owner|tag keys whose header type disagrees with the stored definition.
	conflicts map[string]bool
}

func NewFieldRegistry(lex *domain.Lexicon, log *domain.MergeLog) *FieldRegistry {
	return &FieldRegistry{
		lex:       lex,
		log:       log,
		vocab:     &vocabulary{lex: lex, log: log},
		headers:   map[string]domain.FieldHeader{},
		conflicts: map[string]bool{},
	}
}

// AddHeaders records header declarations. Definitions are created the first
// time a tag is used.
func (r *FieldRegistry) AddHeaders(headers []domain.FieldHeader) {
	for _, h := range headers {
		if h.Tag != "" {
			r.headers[h.Tag] = h
		}
	}
}

type headerSpec struct {
	owner      domain.OwnerKind
	hasOwner   bool
	typ        domain.FieldType
	hasType    bool
	listName   string
	wsSelector string
}

// parseHeaderSpec reads "Class=LexEntry; Type=Integer; WsSelector=kwsAnal; range=status".
func parseHeaderSpec(spec string) headerSpec {
	var hs headerSpec
	for _, part := range strings.Split(spec, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "class":
			hs.owner, hs.hasOwner = domain.ParseOwnerKind(value)
		case "type":
			hs.typ, hs.hasType = domain.ParseFieldType(value)
		case "wsselector":
			hs.wsSelector = value
		case "range", "list":
			hs.listName = value
		}
	}
	return hs
}

// DefineField returns the definition for owner and name, creating it when
// missing. An existing definition of another type is kept and
// domain.ErrFieldTypeConflict is returned alongside it.
func (r *FieldRegistry) DefineField(owner domain.OwnerKind, name string, typ domain.FieldType, listName string) (*domain.FieldDef, error) {
	if def, ok := r.lex.FieldDef(owner, name); ok {
		if def.Type != typ {
			return def, fmt.Errorf("%w: %s.%s is %s, not %s", domain.ErrFieldTypeConflict, owner, name, def.Type, typ)
		}
		if def.ListName == "" {
			def.ListName = listName
		}
		return def, nil
	}
	def := &domain.FieldDef{OwnerKind: owner, Name: name, Type: typ, ListName: listName}
	if h, ok := r.headers[name]; ok {
		def.Description = h.Description.Clone()
		def.WsSelector = parseHeaderSpec(h.Spec).wsSelector
	}
	r.lex.AddFieldDef(def)
	r.log.Addf(domain.LogCreated, domain.KindField, name, "defined %s field %q on %s", typ, name, owner)
	return def, nil
}

func (r *FieldRegistry) Lookup(owner domain.OwnerKind, name string) (*domain.FieldDef, bool) {
	return r.lex.FieldDef(owner, name)
}

// resolve finds or lazily creates the definition for a tag used on owner.
// Untyped fields default to MultiUnicode; untyped traits cannot be placed.
// A typed header that disagrees with the stored definition leaves the stored
// definition in place and sends the tag's values to residue.
func (r *FieldRegistry) resolve(owner domain.OwnerKind, tag string, fromTrait bool) (*domain.FieldDef, bool) {
	key := string(owner) + "|" + tag
	if r.conflicts[key] {
		return nil, false
	}
	existing, defined := r.lex.FieldDef(owner, tag)
	if h, ok := r.headers[tag]; ok {
		hs := parseHeaderSpec(h.Spec)
		if hs.hasOwner && hs.owner != owner {
			if defined {
				return existing, true
			}
			r.log.Add(domain.LogEntry{Kind: domain.LogWarning, ObjectKind: domain.KindField, ObjectID: tag,
				Message: fmt.Sprintf("field declared for %s used on %s", hs.owner, owner)})
			return nil, false
		}
		if hs.hasType {
			def, err := r.DefineField(owner, tag, hs.typ, hs.listName)
			if errors.Is(err, domain.ErrFieldTypeConflict) {
				r.conflicts[key] = true
				r.log.Add(domain.LogEntry{Kind: domain.LogConflict, ObjectKind: domain.KindField, ObjectID: tag,
					Field: string(owner), Old: string(def.Type), New: string(hs.typ),
					Message: "field redefined with another type, kept existing definition"})
				return nil, false
			}
			return def, true
		}
	}
	if defined {
		return existing, true
	}
	if fromTrait {
		return nil, false
	}
	def, err := r.DefineField(owner, tag, domain.FieldMultiUnicode, "")
	if err != nil {
		r.log.Addf(domain.LogWarning, domain.KindField, tag, "%v", err)
	}
	return def, true
}

// Apply merges the custom fields and traits of one record into object and
// returns residue markup for anything that could not be placed.
func (r *FieldRegistry) Apply(owner domain.OwnerKind, object uuid.UUID, fields []domain.LiftField, traits []domain.LiftTrait, style domain.MergeStyle) string {
	var residue bytes.Buffer
	incoming := map[string]domain.FieldValue{}
	var order []string
	put := func(name string, v domain.FieldValue) {
		if _, seen := incoming[name]; !seen {
			order = append(order, name)
		}
		incoming[name] = v
	}

	for _, f := range fields {
		def, ok := r.resolve(owner, f.Type, false)
		if !ok {
			r.warnConflicted(owner, object, f.Type)
			writeFieldResidue(&residue, f)
			continue
		}
		prev, seen := incoming[def.Name]
		v, ok := r.fieldValue(def, f, prev, seen)
		if !ok {
			r.log.Add(domain.LogEntry{Kind: domain.LogWarning, ObjectKind: domain.ObjectKind(owner), ObjectID: object.String(),
				Field: f.Type, Message: fmt.Sprintf("value does not fit %s field, kept as residue", def.Type)})
			writeFieldResidue(&residue, f)
			continue
		}
		put(def.Name, v)
	}
	for _, t := range traits {
		def, ok := r.resolve(owner, t.Name, true)
		if !ok {
			r.warnConflicted(owner, object, t.Name)
			writeTraitResidue(&residue, t)
			continue
		}
		prev, seen := incoming[def.Name]
		v, ok := r.traitValue(def, t, prev, seen)
		if !ok {
			r.log.Add(domain.LogEntry{Kind: domain.LogWarning, ObjectKind: domain.ObjectKind(owner), ObjectID: object.String(),
				Field: t.Name, Message: fmt.Sprintf("value %q does not fit %s field, kept as residue", t.Value, def.Type)})
			writeTraitResidue(&residue, t)
			continue
		}
		put(def.Name, v)
	}

	for _, name := range order {
		r.mergeValue(owner, object, name, incoming[name], style)
	}
	if style == domain.KeepOnlyNew {
		existing := r.lex.FieldValues(object)
		names := make([]string, 0, len(existing))
		for name := range existing {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, ok := incoming[name]; !ok {
				r.lex.ClearFieldValue(object, name)
				r.log.Add(domain.LogEntry{Kind: domain.LogDeleted, ObjectKind: domain.ObjectKind(owner), ObjectID: object.String(),
					Field: name, Message: "field absent from import", Old: existing[name].String()})
			}
		}
	}
	return residue.String()
}

// Conflicts reports whether an incoming value disagrees with a value already
// stored under a defined field of object. Nothing is defined or created.
func (r *FieldRegistry) Conflicts(owner domain.OwnerKind, object uuid.UUID, fields []domain.LiftField, traits []domain.LiftTrait) bool {
	current := func(tag string) (*domain.FieldDef, domain.FieldValue, bool) {
		def, ok := r.lex.FieldDef(owner, tag)
		if !ok || r.conflicts[string(owner)+"|"+tag] {
			return nil, domain.FieldValue{}, false
		}
		v, ok := r.lex.FieldValue(object, def.Name)
		if !ok || v.IsEmpty() {
			return nil, domain.FieldValue{}, false
		}
		return def, v, true
	}
	refDiffers := func(def *domain.FieldDef, v domain.FieldValue, raw string) bool {
		if def.Type == domain.FieldRefCollection || strings.TrimSpace(raw) == "" {
			return false
		}
		id, found := r.vocab.lookupItem(r.listFor(def), strings.TrimSpace(raw))
		return !found || !v.Equal(domain.RefAtomicValue(id))
	}

	for _, f := range fields {
		def, v, ok := current(f.Type)
		switch {
		case !ok:
		case def.Type.IsMultilingual():
			if v.Multi.ConflictsWith(f.Forms) {
				return true
			}
		case def.Type.IsReference():
			if refDiffers(def, v, f.Forms.First()) {
				return true
			}
		default:
			if in, ok := r.fieldValue(def, f, domain.FieldValue{}, false); ok && !in.IsEmpty() && !v.Equal(in) {
				return true
			}
		}
	}
	for _, t := range traits {
		def, v, ok := current(t.Name)
		switch {
		case !ok, def.Type.IsMultilingual():
		case def.Type.IsReference():
			if refDiffers(def, v, t.Value) {
				return true
			}
		default:
			if in, ok := r.traitValue(def, t, domain.FieldValue{}, false); ok && !in.IsEmpty() && !v.Equal(in) {
				return true
			}
		}
	}
	return false
}

func (r *FieldRegistry) warnConflicted(owner domain.OwnerKind, object uuid.UUID, tag string) {
	if !r.conflicts[string(owner)+"|"+tag] {
		return
	}
	r.log.Add(domain.LogEntry{Kind: domain.LogWarning, ObjectKind: domain.ObjectKind(owner), ObjectID: object.String(),
		Field: tag, Message: "field type conflicts with existing definition, kept as residue"})
}

func (r *FieldRegistry) fieldValue(def *domain.FieldDef, f domain.LiftField, prev domain.FieldValue, seen bool) (domain.FieldValue, bool) {
	switch {
	case def.Type.IsMultilingual():
		m := f.Forms.Clone()
		if seen {
			for ws, text := range prev.Multi {
				if !m.Has(ws) {
					m[ws] = text
				}
			}
		}
		return domain.MultiValue(def.Type, m), true
	case def.Type == domain.FieldString:
		return domain.StringValue(f.Forms.First()), true
	case def.Type == domain.FieldInteger, def.Type == domain.FieldGenDate, def.Type.IsReference():
		return r.traitValue(def, domain.LiftTrait{Name: f.Type, Value: f.Forms.First()}, prev, seen)
	}
	return domain.FieldValue{}, false
}

func (r *FieldRegistry) traitValue(def *domain.FieldDef, t domain.LiftTrait, prev domain.FieldValue, seen bool) (domain.FieldValue, bool) {
	value := strings.TrimSpace(t.Value)
	switch def.Type {
	case domain.FieldString:
		return domain.StringValue(value), true
	case domain.FieldInteger:
		n, err := strconv.Atoi(value)
		if err != nil {
			return domain.FieldValue{}, false
		}
		return domain.IntegerValue(n), true
	case domain.FieldGenDate:
		d, err := domain.ParseGenDate(value)
		if err != nil {
			return domain.FieldValue{}, false
		}
		return domain.GenDateValue(d), true
	case domain.FieldRefAtomic, domain.FieldRefCollection:
		id := r.vocab.ensureItem(r.listFor(def), value)
		if id == uuid.Nil {
			return domain.FieldValue{}, false
		}
		if def.Type == domain.FieldRefAtomic {
			return domain.RefAtomicValue(id), true
		}
		var refs []uuid.UUID
		if seen {
			refs = append(refs, prev.Refs...)
		}
		return domain.RefCollectionValue(domain.AppendUnique(refs, id)), true
	}
	return domain.FieldValue{}, false
}

func (r *FieldRegistry) listFor(def *domain.FieldDef) string {
	if def.ListName != "" {
		return def.ListName
	}
	return def.Name
}

func (r *FieldRegistry) mergeValue(owner domain.OwnerKind, object uuid.UUID, name string, in domain.FieldValue, style domain.MergeStyle) {
	current, exists := r.lex.FieldValue(object, name)
	if in.IsEmpty() && style != domain.KeepOnlyNew {
		return
	}
	if !exists || current.IsEmpty() {
		r.lex.SetFieldValue(object, name, in)
		return
	}
	if current.Equal(in) {
		return
	}
	switch style {
	case domain.KeepNew:
		if in.Type.IsMultilingual() {
			merged := current.Multi.Clone()
			for _, ws := range in.Multi.WritingSystems() {
				merged[ws] = in.Multi[ws]
			}
			in = domain.MultiValue(in.Type, merged)
		}
		r.lex.SetFieldValue(object, name, in)
	case domain.KeepOnlyNew:
		r.lex.SetFieldValue(object, name, in)
	case domain.KeepBoth:
		switch {
		case in.Type.IsMultilingual():
			merged := unifyMulti(r.log, domain.ObjectKind(owner), object.String(), name, current.Multi.Clone(), in.Multi)
			r.lex.SetFieldValue(object, name, domain.MultiValue(in.Type, merged))
		case in.Type == domain.FieldRefCollection:
			r.lex.SetFieldValue(object, name, domain.RefCollectionValue(domain.AppendUnique(append([]uuid.UUID(nil), current.Refs...), in.Refs...)))
		default:
			r.log.Conflict(domain.ObjectKind(owner), object.String(), name, current.String(), in.String(), "conflicting value, kept existing")
		}
	default:
		r.log.Conflict(domain.ObjectKind(owner), object.String(), name, current.String(), in.String(), "conflicting value, kept existing")
	}
}

func writeTraitResidue(buf *bytes.Buffer, t domain.LiftTrait) {
	buf.WriteString(`<trait name="`)
	_ = xml.EscapeText(buf, []byte(t.Name))
	buf.WriteString(`" value="`)
	_ = xml.EscapeText(buf, []byte(t.Value))
	buf.WriteString(`"/>`)
}

func writeFieldResidue(buf *bytes.Buffer, f domain.LiftField) {
	buf.WriteString(`<field type="`)
	_ = xml.EscapeText(buf, []byte(f.Type))
	buf.WriteString(`">`)
	for _, ws := range f.Forms.WritingSystems() {
		buf.WriteString(`<form lang="`)
		_ = xml.EscapeText(buf, []byte(ws))
		buf.WriteString(`"><text>`)
		_ = xml.EscapeText(buf, []byte(f.Forms[ws]))
		buf.WriteString(`</text></form>`)
	}
	buf.WriteString(`</field>`)
}
