package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type FieldType string

const (
	FieldString        FieldType = "String"
	FieldMultiString   FieldType = "MultiString"
	FieldMultiUnicode  FieldType = "MultiUnicode"
	FieldInteger       FieldType = "Integer"
	FieldGenDate       FieldType = "GenDate"
	FieldRefAtomic     FieldType = "ReferenceAtomic"
	FieldRefCollection FieldType = "ReferenceCollection"
	FieldOwningAtomic  FieldType = "OwningAtomic"
)

// ParseFieldType accepts the type names found in custom field header specs.
func ParseFieldType(raw string) (FieldType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "string", "unicode":
		return FieldString, true
	case "multistring":
		return FieldMultiString, true
	case "multiunicode":
		return FieldMultiUnicode, true
	case "integer", "int":
		return FieldInteger, true
	case "gendate":
		return FieldGenDate, true
	case "referenceatomic", "referenceatom", "ra":
		return FieldRefAtomic, true
	case "referencecollection", "referencesequence", "rc", "rs":
		return FieldRefCollection, true
	case "owningatomic", "owningatom", "oa", "sttext":
		return FieldOwningAtomic, true
	}
	return "", false
}

// IsMultilingual is true for types stored as one alternative per writing system.
func (t FieldType) IsMultilingual() bool {
	return t == FieldMultiString || t == FieldMultiUnicode || t == FieldOwningAtomic
}

func (t FieldType) IsReference() bool {
	return t == FieldRefAtomic || t == FieldRefCollection
}

// FieldValue is a tagged variant; Type selects which payload field is meaningful.
type FieldValue struct {
	Type  FieldType   `json:"type"`
	Text  string      `json:"text,omitempty"`
	Multi MultiString `json:"multi,omitempty"`
	Int   int         `json:"int,omitempty"`
	Date  *GenDate    `json:"date,omitempty"`
	Refs  []uuid.UUID `json:"refs,omitempty"`
}

func StringValue(s string) FieldValue { return FieldValue{Type: FieldString, Text: s} }

func MultiValue(t FieldType, m MultiString) FieldValue { return FieldValue{Type: t, Multi: m} }

func IntegerValue(n int) FieldValue { return FieldValue{Type: FieldInteger, Int: n} }

func GenDateValue(d GenDate) FieldValue { return FieldValue{Type: FieldGenDate, Date: &d} }

func RefAtomicValue(id uuid.UUID) FieldValue {
	return FieldValue{Type: FieldRefAtomic, Refs: []uuid.UUID{id}}
}

func RefCollectionValue(ids []uuid.UUID) FieldValue {
	return FieldValue{Type: FieldRefCollection, Refs: ids}
}

func (v FieldValue) IsEmpty() bool {
	switch {
	case v.Type.IsMultilingual():
		return v.Multi.IsEmpty()
	case v.Type == FieldString:
		return strings.TrimSpace(v.Text) == ""
	case v.Type == FieldGenDate:
		return v.Date == nil || v.Date.IsZero()
	case v.Type.IsReference():
		return len(v.Refs) == 0
	case v.Type == FieldInteger:
		return false
	}
	return true
}

func (v FieldValue) Equal(o FieldValue) bool {
	if v.Type != o.Type {
		return false
	}
	switch {
	case v.Type.IsMultilingual():
		return v.Multi.Equal(o.Multi)
	case v.Type == FieldString:
		return v.Text == o.Text
	case v.Type == FieldInteger:
		return v.Int == o.Int
	case v.Type == FieldGenDate:
		if v.Date == nil || o.Date == nil {
			return v.Date == o.Date
		}
		return *v.Date == *o.Date
	case v.Type.IsReference():
		if len(v.Refs) != len(o.Refs) {
			return false
		}
		for _, id := range v.Refs {
			if !ContainsID(o.Refs, id) {
				return false
			}
		}
		return true
	}
	return false
}

func (v FieldValue) String() string {
	switch {
	case v.Type.IsMultilingual():
		parts := make([]string, 0, len(v.Multi))
		for _, ws := range v.Multi.WritingSystems() {
			parts = append(parts, ws+"="+v.Multi[ws])
		}
		return strings.Join(parts, "; ")
	case v.Type == FieldString:
		return v.Text
	case v.Type == FieldInteger:
		return strconv.Itoa(v.Int)
	case v.Type == FieldGenDate:
		if v.Date == nil {
			return ""
		}
		return v.Date.String()
	case v.Type.IsReference():
		parts := make([]string, 0, len(v.Refs))
		for _, id := range v.Refs {
			parts = append(parts, id.String())
		}
		return strings.Join(parts, ",")
	}
	return ""
}

type DatePrecision int

const (
	DateExact DatePrecision = iota
	DateApproximate
	DateBefore
	DateAfter
)

// GenDate is a possibly partial, possibly approximate calendar date. Negative years are BC.
type GenDate struct {
	Precision DatePrecision `json:"precision"`
	Year      int           `json:"year"`
	Month     int           `json:"month,omitempty"`
	Day       int           `json:"day,omitempty"`
}

func (d GenDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d GenDate) String() string {
	var b strings.Builder
	switch d.Precision {
	case DateApproximate:
		b.WriteString("about ")
	case DateBefore:
		b.WriteString("before ")
	case DateAfter:
		b.WriteString("after ")
	}
	year := d.Year
	if year < 0 {
		b.WriteString("-")
		year = -year
	}
	fmt.Fprintf(&b, "%04d", year)
	if d.Month > 0 {
		fmt.Fprintf(&b, "-%02d", d.Month)
		if d.Day > 0 {
			fmt.Fprintf(&b, "-%02d", d.Day)
		}
	}
	return b.String()
}

// ParseGenDate reads "[about|before|after ]YYYY[-MM[-DD]]", with a leading '-' for BC years.
func ParseGenDate(raw string) (GenDate, error) {
	s := strings.TrimSpace(raw)
	var d GenDate
	lower := strings.ToLower(s)
	for prefix, p := range map[string]DatePrecision{"about ": DateApproximate, "approx ": DateApproximate, "before ": DateBefore, "after ": DateAfter} {
		if strings.HasPrefix(lower, prefix) {
			d.Precision = p
			s = strings.TrimSpace(s[len(prefix):])
			break
		}
	}
	bc := false
	if strings.HasPrefix(s, "-") {
		bc = true
		s = s[1:]
	}
	parts := strings.Split(s, "-")
	if s == "" || len(parts) > 3 {
		return GenDate{}, fmt.Errorf("invalid gen date %q", raw)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return GenDate{}, fmt.Errorf("invalid gen date %q: %w", raw, err)
		}
		nums[i] = n
	}
	d.Year = nums[0]
	if d.Year == 0 {
		return GenDate{}, fmt.Errorf("invalid gen date %q: year 0", raw)
	}
	if bc {
		d.Year = -d.Year
	}
	if len(nums) > 1 {
		if nums[1] < 1 || nums[1] > 12 {
			return GenDate{}, fmt.Errorf("invalid gen date %q: month out of range", raw)
		}
		d.Month = nums[1]
	}
	if len(nums) > 2 {
		if nums[2] < 1 || nums[2] > 31 {
			return GenDate{}, fmt.Errorf("invalid gen date %q: day out of range", raw)
		}
		d.Day = nums[2]
	}
	return d, nil
}
