package domain

import "fmt"

type LogKind string

const (
	LogCreated    LogKind = "created"
	LogMerged     LogKind = "merged"
	LogConflict   LogKind = "conflict"
	LogDeleted    LogKind = "deleted"
	LogUnresolved LogKind = "unresolved"
	LogSkipped    LogKind = "skipped"
	LogWarning    LogKind = "warning"
	LogNotice     LogKind = "notice"
)

type LogEntry struct {
	Kind       LogKind    `json:"kind"`
	ObjectKind ObjectKind `json:"object_kind,omitempty"`
	ObjectID   string     `json:"object_id,omitempty"`
	Field      string     `json:"field,omitempty"`
	Message    string     `json:"message"`
	Old        string     `json:"old,omitempty"`
	New        string     `json:"new,omitempty"`
}

func (e LogEntry) String() string {
	s := fmt.Sprintf("%s %s %s: %s", e.Kind, e.ObjectKind, e.ObjectID, e.Message)
	if e.Field != "" {
		s += " [" + e.Field + "]"
	}
	return s
}

// MergeLog collects what happened during one import run.
type MergeLog struct {
	entries []LogEntry
}

func (l *MergeLog) Add(entry LogEntry) {
	l.entries = append(l.entries, entry)
}

func (l *MergeLog) Addf(kind LogKind, objectKind ObjectKind, objectID string, format string, args ...any) {
	l.Add(LogEntry{Kind: kind, ObjectKind: objectKind, ObjectID: objectID, Message: fmt.Sprintf(format, args...)})
}

// Conflict records a field where the kept value differs from the discarded one.
func (l *MergeLog) Conflict(objectKind ObjectKind, objectID, field, kept, discarded, message string) {
	l.Add(LogEntry{Kind: LogConflict, ObjectKind: objectKind, ObjectID: objectID, Field: field, Old: kept, New: discarded, Message: message})
}

func (l *MergeLog) Entries() []LogEntry {
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *MergeLog) Len() int { return len(l.entries) }

func (l *MergeLog) Count(kind LogKind) int {
	n := 0
	for _, e := range l.entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (l *MergeLog) Filter(kind LogKind) []LogEntry {
	var out []LogEntry
	for _, e := range l.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
