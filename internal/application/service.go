package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sillsdev/liftmerge/internal/domain"
	"github.com/sillsdev/liftmerge/internal/merge"
	"github.com/sillsdev/liftmerge/internal/platform/logger"
)

const (
	RunFinished  = "finished"
	RunFailed    = "failed"
	RunCancelled = "cancelled"
)

// ImportService runs merges against the stored lexicon and answers queries
// about it. Only one import runs at a time.
type ImportService struct {
	repo       domain.LexiconRepository
	log        *logger.Logger
	apiKeyHash []byte
	now        func() time.Time

	importMu sync.Mutex
}

type ImportRequest struct {
	Ranges          []domain.LiftRange
	Headers         []domain.FieldHeader
	Source          domain.EntrySource
	Style           domain.MergeStyle
	TrustTimestamps bool
}

type ImportOutcome struct {
	Run    domain.ImportRun `json:"run"`
	Result merge.Result     `json:"result"`
}

func NewImportService(repo domain.LexiconRepository, log *logger.Logger) *ImportService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ImportService{repo: repo, log: log, now: time.Now}
}

// SetAPIKey enables authorization of write operations. An empty key disables it.
func (s *ImportService) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		s.apiKeyHash = nil
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.apiKeyHash = hash
	return nil
}

func (s *ImportService) AuthRequired() bool { return len(s.apiKeyHash) > 0 }

// Authorize reports whether token may run write operations.
func (s *ImportService) Authorize(token string) bool {
	if !s.AuthRequired() {
		return true
	}
	return bcrypt.CompareHashAndPassword(s.apiKeyHash, []byte(strings.TrimSpace(token))) == nil
}

// ImportLIFT merges one document into the stored lexicon. The lexicon is
// saved only when the whole run succeeds; the run and its log are recorded
// either way.
func (s *ImportService) ImportLIFT(ctx context.Context, req ImportRequest) (ImportOutcome, error) {
	if req.Source == nil {
		return ImportOutcome{}, fmt.Errorf("%w: entry source is required", domain.ErrInvalidArgument)
	}
	if !s.importMu.TryLock() {
		return ImportOutcome{}, domain.ErrImportInProgress
	}
	defer s.importMu.Unlock()

	started := s.now().UTC()
	runLog := s.log.With("style", req.Style.String(), "trust_timestamps", req.TrustTimestamps)

	lex, err := s.repo.LoadLexicon(ctx)
	if err != nil {
		return ImportOutcome{}, fmt.Errorf("load lexicon: %w", err)
	}

	eng := merge.NewEngine(lex, merge.Options{Style: req.Style, TrustTimestamps: req.TrustTimestamps, Now: s.now})
	eng.ImportRanges(req.Ranges)
	eng.AddHeaders(req.Headers)
	result, runErr := eng.Run(ctx, req.Source)

	status := RunFinished
	if runErr == nil {
		if err := s.repo.SaveLexicon(ctx, lex); err != nil {
			runErr = fmt.Errorf("save lexicon: %w", err)
		}
	}
	if runErr != nil {
		status = RunFailed
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			status = RunCancelled
		}
	}

	finished := s.now().UTC()
	run, err := s.recordRun(context.WithoutCancel(ctx), domain.ImportRun{
		Style:            req.Style.String(),
		TrustTimestamps:  req.TrustTimestamps,
		Status:           status,
		EntriesProcessed: result.EntriesProcessed,
		Created:          result.Created,
		Merged:           result.Merged,
		Skipped:          result.Skipped,
		LogCount:         len(result.Log),
		StartedAt:        started,
		FinishedAt:       &finished,
	}, result.Log)
	if err != nil {
		runLog.Error("record import run", "error", err)
	}

	outcome := ImportOutcome{Run: run, Result: result}
	if runErr != nil {
		runLog.Error("import failed", "run_id", run.ID, "status", status, "entries", result.EntriesProcessed, "error", runErr)
		return outcome, runErr
	}

	runLog.Info("import finished",
		"run_id", run.ID,
		"entries", result.EntriesProcessed,
		"created", result.Created,
		"merged", result.Merged,
		"skipped", result.Skipped,
		"duration", finished.Sub(started).String(),
	)
	for _, kind := range []domain.LogKind{domain.LogConflict, domain.LogUnresolved, domain.LogWarning} {
		if n := countKind(result.Log, kind); n > 0 {
			runLog.Warn("import reported "+string(kind)+" entries", "run_id", run.ID, "count", n)
		}
	}
	return outcome, nil
}

func (s *ImportService) recordRun(ctx context.Context, run domain.ImportRun, entries []domain.LogEntry) (domain.ImportRun, error) {
	created, err := s.repo.CreateImportRun(ctx, run)
	if err != nil {
		return run, err
	}
	if err := s.repo.AppendMergeLog(ctx, created.ID, entries); err != nil {
		return created, err
	}
	return created, nil
}

func countKind(entries []domain.LogEntry, kind domain.LogKind) int {
	n := 0
	for _, e := range entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (s *ImportService) ListEntries(ctx context.Context, query string, limit int) ([]domain.EntrySummary, error) {
	return s.repo.ListEntries(ctx, query, clampLimit(limit, 100, 1000))
}

func (s *ImportService) GetEntry(ctx context.Context, rawGUID string) (*domain.Entry, error) {
	id, err := ParseGUID(rawGUID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetEntry(ctx, id)
}

func (s *ImportService) ListLinks(ctx context.Context, refType string, limit int) ([]domain.LinkSummary, error) {
	return s.repo.ListLinks(ctx, refType, clampLimit(limit, 100, 1000))
}

func (s *ImportService) ListReferenceTypes(ctx context.Context, query string, limit int) ([]domain.ReferenceTypeSummary, error) {
	return s.repo.ListReferenceTypes(ctx, query, clampLimit(limit, 50, 500))
}

func (s *ImportService) ListFieldDefs(ctx context.Context, ownerKind, query string, limit int) ([]domain.FieldDef, error) {
	if strings.TrimSpace(ownerKind) != "" {
		owner, ok := domain.ParseOwnerKind(ownerKind)
		if !ok {
			return nil, fmt.Errorf("%w: unknown owner kind %q", domain.ErrInvalidArgument, ownerKind)
		}
		ownerKind = string(owner)
	}
	return s.repo.ListFieldDefs(ctx, ownerKind, query, clampLimit(limit, 50, 500))
}

func (s *ImportService) ListPossibilityLists(ctx context.Context, limit int) ([]domain.ListSummary, error) {
	return s.repo.ListPossibilityLists(ctx, clampLimit(limit, 50, 500))
}

func (s *ImportService) ListPossibilities(ctx context.Context, listName string, limit int) ([]domain.Possibility, error) {
	if strings.TrimSpace(listName) == "" {
		return nil, fmt.Errorf("%w: list name is required", domain.ErrInvalidArgument)
	}
	return s.repo.ListPossibilities(ctx, listName, clampLimit(limit, 200, 2000))
}

func (s *ImportService) ListImportRuns(ctx context.Context, limit int) ([]domain.ImportRun, error) {
	return s.repo.ListImportRuns(ctx, clampLimit(limit, 20, 200))
}

func (s *ImportService) ListMergeLog(ctx context.Context, runID uint, kind string, limit int) ([]domain.MergeLogRecord, error) {
	if runID == 0 {
		return nil, fmt.Errorf("%w: run id is required", domain.ErrInvalidArgument)
	}
	return s.repo.ListMergeLog(ctx, runID, kind, clampLimit(limit, 500, 5000))
}

// ParseGUID accepts a bare GUID or a LIFT id ending in one.
func ParseGUID(raw string) (uuid.UUID, error) {
	id, ok := merge.ParseGUID(raw)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %q is not a guid", domain.ErrInvalidArgument, raw)
	}
	return id, nil
}

// ParseRunID reads a positive run id.
func ParseRunID(raw string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: run id %q", domain.ErrInvalidArgument, raw)
	}
	return uint(n), nil
}

func clampLimit(limit, fallback, ceiling int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

// ImportPayload is the wire form of an import request used by the HTTP and RPC transports.
type ImportPayload struct {
	Style           domain.MergeStyle    `json:"style"`
	TrustTimestamps bool                 `json:"trust_timestamps"`
	Ranges          []domain.LiftRange   `json:"ranges,omitempty"`
	Fields          []domain.FieldHeader `json:"fields,omitempty"`
	Entries         []domain.LiftEntry   `json:"entries"`
}

func (p ImportPayload) Request() ImportRequest {
	return ImportRequest{
		Ranges:          p.Ranges,
		Headers:         p.Fields,
		Source:          merge.NewSliceSource(p.Entries),
		Style:           p.Style,
		TrustTimestamps: p.TrustTimestamps,
	}
}
