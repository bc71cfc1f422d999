package merge

import (
	"github.com/google/uuid"

	"github.com/sillsdev/liftmerge/internal/domain"
)

// mergeMulti applies style to one multilingual field at the alternative level.
func (e *Engine) mergeMulti(style domain.MergeStyle, kind domain.ObjectKind, id, field string, dst, src domain.MultiString) domain.MultiString {
	if src.IsEmpty() {
		return dst
	}
	switch style {
	case domain.KeepOld:
		if dst.IsEmpty() {
			return src.Clone()
		}
		for _, ws := range src.WritingSystems() {
			if dst.Has(ws) && dst[ws] != src[ws] {
				e.log.Conflict(kind, id, field+"/"+ws, dst[ws], src[ws], "conflicting value, kept existing")
			}
		}
		return dst
	case domain.KeepBoth:
		return unifyMulti(e.log, kind, id, field, dst, src)
	default:
		if dst == nil {
			dst = domain.MultiString{}
		}
		for _, ws := range src.WritingSystems() {
			dst[ws] = src[ws]
		}
		return dst
	}
}

func (e *Engine) mergeText(style domain.MergeStyle, kind domain.ObjectKind, id, field, dst, src string) string {
	switch {
	case src == dst:
		return dst
	case style == domain.KeepOnlyNew:
		return src
	case src == "":
		return dst
	case dst == "", style == domain.KeepNew:
		return src
	}
	e.log.Conflict(kind, id, field, dst, src, "conflicting value, kept existing")
	return dst
}

func (e *Engine) mergeRef(style domain.MergeStyle, kind domain.ObjectKind, id, field string, dst *uuid.UUID, src uuid.UUID) {
	switch {
	case src == uuid.Nil || *dst == src:
	case *dst == uuid.Nil, style == domain.KeepNew, style == domain.KeepOnlyNew:
		*dst = src
	default:
		e.log.Conflict(kind, id, field, dst.String(), src.String(), "conflicting value, kept existing")
	}
}

func (e *Engine) mergeRefSet(style domain.MergeStyle, kind domain.ObjectKind, id, field string, dst, src []uuid.UUID) []uuid.UUID {
	switch {
	case style == domain.KeepOnlyNew:
		return src
	case len(src) == 0:
		return dst
	case len(dst) == 0, style == domain.KeepNew:
		return src
	case style == domain.KeepBoth:
		return domain.AppendUnique(dst, src...)
	}
	if !sameSet(dst, src) {
		e.log.Addf(domain.LogConflict, kind, id, "conflicting %s, kept existing", field)
	}
	return dst
}

func mergeStrings(style domain.MergeStyle, dst, src []string) []string {
	switch {
	case style == domain.KeepOnlyNew:
		return src
	case len(src) == 0:
		return dst
	case len(dst) == 0, style == domain.KeepNew:
		return src
	case style == domain.KeepBoth:
		for _, s := range src {
			if !containsString(dst, s) {
				dst = append(dst, s)
			}
		}
	}
	return dst
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sameSet(a, b []uuid.UUID) bool {
	return len(a) == len(b) && subset(a, b)
}
