package merge

import (
	"context"
	"io"

	"github.com/sillsdev/liftmerge/internal/domain"
)

// SliceSource serves records from memory.
type SliceSource struct {
	entries []domain.LiftEntry
	next    int
}

func NewSliceSource(entries []domain.LiftEntry) *SliceSource {
	return &SliceSource{entries: entries}
}

func (s *SliceSource) Next(ctx context.Context) (*domain.LiftEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.entries) {
		return nil, io.EOF
	}
	rec := s.entries[s.next]
	s.next++
	return &rec, nil
}
