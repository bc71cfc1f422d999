package domain

import (
	"context"

	"github.com/google/uuid"
)

type LexiconRepository interface {
	LoadLexicon(ctx context.Context) (*Lexicon, error)
	SaveLexicon(ctx context.Context, lex *Lexicon) error
	GetEntry(ctx context.Context, guid uuid.UUID) (*Entry, error)
	ListEntries(ctx context.Context, query string, limit int) ([]EntrySummary, error)
	ListLinks(ctx context.Context, refType string, limit int) ([]LinkSummary, error)
	ListReferenceTypes(ctx context.Context, query string, limit int) ([]ReferenceTypeSummary, error)
	ListFieldDefs(ctx context.Context, ownerKind, query string, limit int) ([]FieldDef, error)
	ListPossibilityLists(ctx context.Context, limit int) ([]ListSummary, error)
	ListPossibilities(ctx context.Context, listName string, limit int) ([]Possibility, error)
	CreateImportRun(ctx context.Context, value ImportRun) (ImportRun, error)
	AppendMergeLog(ctx context.Context, runID uint, entries []LogEntry) error
	ListImportRuns(ctx context.Context, limit int) ([]ImportRun, error)
	ListMergeLog(ctx context.Context, runID uint, kind string, limit int) ([]MergeLogRecord, error)
}

// EntrySource yields entry records in document order and io.EOF when done.
type EntrySource interface {
	Next(ctx context.Context) (*LiftEntry, error)
}
