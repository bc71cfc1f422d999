package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NoValue marks an alternative that exists but was never filled in.
const NoValue = "***"

// MultiString holds one text alternative per writing system.
type MultiString map[string]string

func (m MultiString) Get(ws string) string {
	if m == nil {
		return ""
	}
	return m[ws]
}

// Has reports whether ws carries a real value (not empty, not NoValue).
func (m MultiString) Has(ws string) bool {
	v := strings.TrimSpace(m.Get(ws))
	return v != "" && v != NoValue
}

func (m MultiString) IsEmpty() bool {
	for ws := range m {
		if m.Has(ws) {
			return false
		}
	}
	return true
}

// WritingSystems returns the writing systems with real values, sorted.
func (m MultiString) WritingSystems() []string {
	out := make([]string, 0, len(m))
	for ws := range m {
		if m.Has(ws) {
			out = append(out, ws)
		}
	}
	sort.Strings(out)
	return out
}

// First returns the first real alternative in writing-system order.
func (m MultiString) First() string {
	for _, ws := range m.WritingSystems() {
		return m[ws]
	}
	return ""
}

func (m MultiString) Clone() MultiString {
	if m == nil {
		return nil
	}
	out := make(MultiString, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Equal compares real alternatives only.
func (m MultiString) Equal(other MultiString) bool {
	a, b := m.WritingSystems(), other.WritingSystems()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] || m[a[i]] != other[b[i]] {
			return false
		}
	}
	return true
}

// Overlaps reports whether any writing system has the same real value on both sides.
func (m MultiString) Overlaps(other MultiString) bool {
	for _, ws := range m.WritingSystems() {
		if other.Has(ws) && other[ws] == m[ws] {
			return true
		}
	}
	return false
}

// ConflictsWith reports whether any writing system has different real values on both sides.
func (m MultiString) ConflictsWith(other MultiString) bool {
	for _, ws := range m.WritingSystems() {
		if other.Has(ws) && other[ws] != m[ws] {
			return true
		}
	}
	return false
}

type ObjectKind string

const (
	KindNone          ObjectKind = ""
	KindEntry         ObjectKind = "entry"
	KindSense         ObjectKind = "sense"
	KindExample       ObjectKind = "example"
	KindAllomorph     ObjectKind = "allomorph"
	KindPronunciation ObjectKind = "pronunciation"
	KindEntryRef      ObjectKind = "entry-ref"
	KindLink          ObjectKind = "link"
	KindReferenceType ObjectKind = "reference-type"
	KindList          ObjectKind = "list"
	KindPossibility   ObjectKind = "possibility"
	KindField         ObjectKind = "field"
)

type Entry struct {
	GUID           uuid.UUID
	LiftID         string
	DateCreated    time.Time
	DateModified   time.Time
	LexemeForm     MultiString
	CitationForm   MultiString
	MorphType      uuid.UUID
	Senses         []*Sense
	Allomorphs     []*Allomorph
	Pronunciations []*Pronunciation
	EntryRefs      []*EntryRef
	Notes          []Note
	Residue        string
}

// Headword is the citation form when present, else the lexeme form.
func (e *Entry) Headword() string {
	if h := e.CitationForm.First(); h != "" {
		return h
	}
	return e.LexemeForm.First()
}

func (e *Entry) EntryRefsOfKind(kind RefKind) []*EntryRef {
	var out []*EntryRef
	for _, ref := range e.EntryRefs {
		if ref.Kind == kind {
			out = append(out, ref)
		}
	}
	return out
}

type Sense struct {
	GUID            uuid.UUID
	LiftID          string
	Entry           uuid.UUID
	GrammaticalInfo uuid.UUID
	Gloss           MultiString
	Definition      MultiString
	Examples        []*Example
	SemanticDomains []uuid.UUID
	DoNotPublishIn  []uuid.UUID
	Notes           []Note
}

// IsEmpty is true for a sense that carries nothing worth importing.
func (s *Sense) IsEmpty() bool {
	return s.Gloss.IsEmpty() && s.Definition.IsEmpty() && len(s.Examples) == 0 &&
		s.GrammaticalInfo == uuid.Nil && len(s.SemanticDomains) == 0 && len(s.Notes) == 0
}

type Example struct {
	GUID         uuid.UUID
	Source       string
	Sentence     MultiString
	Translations []Translation
}

func (x *Example) IsEmpty() bool {
	if !x.Sentence.IsEmpty() {
		return false
	}
	for _, t := range x.Translations {
		if !t.Forms.IsEmpty() {
			return false
		}
	}
	return true
}

type Translation struct {
	Type  string
	Forms MultiString
}

type Pronunciation struct {
	GUID uuid.UUID
	Form MultiString
}

type Allomorph struct {
	GUID         uuid.UUID
	Form         MultiString
	MorphType    uuid.UUID
	Environments []string
}

type Note struct {
	Type  string
	Forms MultiString
}

type RefKind string

const (
	RefComplexForm RefKind = "complex-form"
	RefVariant     RefKind = "variant"
)

// EntryRef links an entry to the components it is built from or a variant of.
type EntryRef struct {
	GUID       uuid.UUID
	Kind       RefKind
	Components []uuid.UUID
	Primary    []uuid.UUID
	Types      []uuid.UUID
}

// IsPlaceholder is true for a ref that carries types but no component.
func (r *EntryRef) IsPlaceholder() bool {
	return len(r.Components) == 0
}

type MappingKind int

const (
	MappingCollection MappingKind = iota
	MappingPair
	MappingTree
	MappingSequence
)

func (k MappingKind) String() string {
	switch k {
	case MappingPair:
		return "pair"
	case MappingTree:
		return "tree"
	case MappingSequence:
		return "sequence"
	default:
		return "collection"
	}
}

// MinMembers is the membership below which a link object is deleted. A tree
// needs its whole and at least one part.
func (k MappingKind) MinMembers() int {
	if k == MappingPair || k == MappingTree {
		return 2
	}
	return 1
}

// ParseMappingKind accepts the kind names and the numeric codes used in range files.
func ParseMappingKind(raw string) (MappingKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "collection", "0", "1":
		return MappingCollection, true
	case "pair", "2", "3":
		return MappingPair, true
	case "tree", "asymmetric-pair", "4", "5", "6", "7", "8", "9":
		return MappingTree, true
	case "sequence", "10", "11":
		return MappingSequence, true
	}
	return MappingCollection, false
}

type ReferenceType struct {
	GUID                uuid.UUID
	LiftID              string
	Kind                MappingKind
	Name                MultiString
	Abbreviation        MultiString
	ReverseName         MultiString
	ReverseAbbreviation MultiString
	Description         MultiString
}

// MatchesForward reports a case-sensitive match of label against the forward name or abbreviation.
func (t *ReferenceType) MatchesForward(label string) bool {
	return label != "" && (t.LiftID == label || containsValue(t.Name, label) || containsValue(t.Abbreviation, label))
}

// MatchesReverse reports a case-sensitive match of label against the reverse name or abbreviation.
func (t *ReferenceType) MatchesReverse(label string) bool {
	return label != "" && (containsValue(t.ReverseName, label) || containsValue(t.ReverseAbbreviation, label))
}

func (t *ReferenceType) Label() string {
	if t.LiftID != "" {
		return t.LiftID
	}
	return t.Name.First()
}

func containsValue(m MultiString, v string) bool {
	for ws := range m {
		if m.Has(ws) && m[ws] == v {
			return true
		}
	}
	return false
}

// LinkObject is one shared instance of a relation. For trees Targets[0] is the whole.
type LinkObject struct {
	GUID    uuid.UUID
	Type    uuid.UUID
	Targets []uuid.UUID
}

func (l *LinkObject) Contains(id uuid.UUID) bool {
	return indexOf(l.Targets, id) >= 0
}

func (l *LinkObject) Head() uuid.UUID {
	if len(l.Targets) == 0 {
		return uuid.Nil
	}
	return l.Targets[0]
}

type PossibilityList struct {
	GUID  uuid.UUID
	Name  string
	Label MultiString
}

type Possibility struct {
	GUID        uuid.UUID
	List        uuid.UUID
	Parent      uuid.UUID
	LiftID      string
	Label       MultiString
	Abbrev      MultiString
	Description MultiString
}

type OwnerKind string

const (
	OwnerEntry         OwnerKind = "entry"
	OwnerSense         OwnerKind = "sense"
	OwnerExample       OwnerKind = "example"
	OwnerAllomorph     OwnerKind = "allomorph"
	OwnerPronunciation OwnerKind = "pronunciation"
)

// ParseOwnerKind maps both short names and LexEntry-style class names.
func ParseOwnerKind(raw string) (OwnerKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "entry", "lexentry":
		return OwnerEntry, true
	case "sense", "lexsense":
		return OwnerSense, true
	case "example", "lexexamplesentence":
		return OwnerExample, true
	case "allomorph", "moform", "mostemallomorph", "moaffixallomorph":
		return OwnerAllomorph, true
	case "pronunciation", "lexpronunciation":
		return OwnerPronunciation, true
	}
	return "", false
}

type FieldDef struct {
	ID          uint
	OwnerKind   OwnerKind
	Name        string
	Type        FieldType
	ListName    string
	WsSelector  string
	Description MultiString
}

func indexOf(ids []uuid.UUID, id uuid.UUID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// ContainsID reports whether ids holds id.
func ContainsID(ids []uuid.UUID, id uuid.UUID) bool {
	return indexOf(ids, id) >= 0
}

// AppendUnique appends the ids not yet present, keeping order.
func AppendUnique(ids []uuid.UUID, more ...uuid.UUID) []uuid.UUID {
	for _, id := range more {
		if id != uuid.Nil && !ContainsID(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// RemoveID drops every occurrence of id.
func RemoveID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

type EntrySummary struct {
	GUID         uuid.UUID `json:"guid"`
	LiftID       string    `json:"lift_id"`
	Headword     string    `json:"headword"`
	SenseCount   int       `json:"sense_count"`
	DateModified time.Time `json:"date_modified"`
}

type LinkMember struct {
	GUID     uuid.UUID  `json:"guid"`
	Kind     ObjectKind `json:"kind"`
	Headword string     `json:"headword"`
}

type LinkSummary struct {
	GUID     uuid.UUID    `json:"guid"`
	TypeGUID uuid.UUID    `json:"type_guid"`
	TypeName string       `json:"type_name"`
	Kind     string       `json:"kind"`
	Members  []LinkMember `json:"members"`
}

type ReferenceTypeSummary struct {
	GUID        uuid.UUID `json:"guid"`
	Name        string    `json:"name"`
	ReverseName string    `json:"reverse_name"`
	Kind        string    `json:"kind"`
	LinkCount   int       `json:"link_count"`
}

type ListSummary struct {
	GUID      uuid.UUID `json:"guid"`
	Name      string    `json:"name"`
	ItemCount int       `json:"item_count"`
}

type ImportRun struct {
	ID               uint       `json:"id"`
	Style            string     `json:"style"`
	TrustTimestamps  bool       `json:"trust_timestamps"`
	Status           string     `json:"status"`
	EntriesProcessed int        `json:"entries_processed"`
	Created          int        `json:"created"`
	Merged           int        `json:"merged"`
	Skipped          int        `json:"skipped"`
	LogCount         int        `json:"log_count"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

type MergeLogRecord struct {
	ID        uint      `json:"id"`
	RunID     uint      `json:"run_id"`
	LogEntry
	CreatedAt time.Time `json:"created_at"`
}
