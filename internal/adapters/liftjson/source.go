package liftjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sillsdev/liftmerge/internal/domain"
)

// EntryReader pulls entry records from a JSON Lines stream, one object per line.
type EntryReader struct {
	dec   *json.Decoder
	count int
}

func NewEntryReader(r io.Reader) *EntryReader {
	return &EntryReader{dec: json.NewDecoder(r)}
}

// Next returns the next record, or io.EOF once the stream is exhausted.
func (r *EntryReader) Next(ctx context.Context) (*domain.LiftEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec domain.LiftEntry
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("entry record %d: %w", r.count+1, err)
	}
	r.count++
	if rec.Order == nil {
		order := r.count
		rec.Order = &order
	}
	return &rec, nil
}

// Count is the number of records read so far.
func (r *EntryReader) Count() int { return r.count }

var _ domain.EntrySource = (*EntryReader)(nil)
