package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGenDate(t *testing.T) {
	tests := []struct {
		raw  string
		want GenDate
		text string
	}{
		{raw: "1998", want: GenDate{Year: 1998}, text: "1998"},
		{raw: "about 1990-05", want: GenDate{Precision: DateApproximate, Year: 1990, Month: 5}, text: "about 1990-05"},
		{raw: "before 2001-02-03", want: GenDate{Precision: DateBefore, Year: 2001, Month: 2, Day: 3}, text: "before 2001-02-03"},
		{raw: "After 1850", want: GenDate{Precision: DateAfter, Year: 1850}, text: "after 1850"},
		{raw: "-450", want: GenDate{Year: -450}, text: "-0450"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseGenDate(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, got.String())
		})
	}

	for _, bad := range []string{"", "0", "1990-13", "1990-01-32", "1990-1-2-3", "ninety"} {
		_, err := ParseGenDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseFieldType(t *testing.T) {
	got, ok := ParseFieldType("MultiUnicode")
	require.True(t, ok)
	assert.True(t, got.IsMultilingual())

	got, ok = ParseFieldType("ReferenceSequence")
	require.True(t, ok)
	assert.Equal(t, FieldRefCollection, got)
	assert.True(t, got.IsReference())

	_, ok = ParseFieldType("Binary")
	assert.False(t, ok)
}

func TestFieldValueEqualAndEmpty(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	assert.True(t, RefCollectionValue([]uuid.UUID{a, b}).Equal(RefCollectionValue([]uuid.UUID{b, a})))
	assert.False(t, RefCollectionValue([]uuid.UUID{a}).Equal(RefAtomicValue(a)))
	assert.True(t, GenDateValue(GenDate{Year: 2000}).Equal(GenDateValue(GenDate{Year: 2000})))
	assert.False(t, IntegerValue(1).Equal(IntegerValue(2)))
	assert.True(t, MultiValue(FieldMultiString, MultiString{"en": "x", "fr": NoValue}).Equal(MultiValue(FieldMultiString, MultiString{"en": "x"})))

	assert.False(t, IntegerValue(0).IsEmpty())
	assert.True(t, StringValue(" ").IsEmpty())
	assert.True(t, RefCollectionValue(nil).IsEmpty())
	assert.True(t, FieldValue{Type: FieldGenDate}.IsEmpty())
	assert.True(t, MultiValue(FieldOwningAtomic, MultiString{"en": NoValue}).IsEmpty())
}
