package merge

import (
	"strings"

	"github.com/google/uuid"

	"github.com/sillsdev/liftmerge/internal/domain"
)

// unifyMulti copies into dst every alternative that dst lacks. Where both sides
// hold different real values dst wins and the difference is logged.
func unifyMulti(log *domain.MergeLog, kind domain.ObjectKind, id, field string, dst, src domain.MultiString) domain.MultiString {
	if dst == nil && len(src) > 0 {
		dst = domain.MultiString{}
	}
	for _, ws := range src.WritingSystems() {
		switch {
		case !dst.Has(ws):
			dst[ws] = src[ws]
		case dst[ws] != src[ws]:
			log.Conflict(kind, id, field+"/"+ws, dst[ws], src[ws], "conflicting value, kept existing")
		}
	}
	return dst
}

// ParseGUID accepts a bare GUID or any identifier that ends in one, such as
// "form_5d7b0c2e-...". Empty and malformed values report false.
func ParseGUID(raw string) (uuid.UUID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, false
	}
	if id, err := uuid.Parse(raw); err == nil {
		return id, true
	}
	if len(raw) > 36 {
		tail := raw[len(raw)-36:]
		if sep := raw[len(raw)-37]; sep == '_' || sep == '-' || sep == ' ' {
			if id, err := uuid.Parse(tail); err == nil {
				return id, true
			}
		}
	}
	return uuid.Nil, false
}
