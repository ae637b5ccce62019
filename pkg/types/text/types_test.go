package text

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel_IsValid(t *testing.T) {
	for _, l := range AllLabels() {
		assert.True(t, l.IsValid(), l)
	}
	assert.False(t, Label("朝代").IsValid())
	assert.False(t, Label("person").IsValid())
	assert.False(t, Label("").IsValid())
}

func TestLabel_English(t *testing.T) {
	assert.Equal(t, "person", LabelPerson.English())
	assert.Equal(t, "concept", LabelConcept.English())
	assert.Equal(t, "", Label("x").English())
}

func TestParseLabel(t *testing.T) {
	cases := []struct {
		in   string
		want Label
		ok   bool
	}{
		{"人物", LabelPerson, true},
		{"地名", LabelPlace, true},
		{"Time", LabelTime, true},
		{" object ", LabelObject, true},
		{"朝代", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseLabel(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got)
		} else {
			assert.Error(t, err, tc.in)
		}
	}
}

func TestEntitySpan_JSONKeepsSourceLabel(t *testing.T) {
	b, err := json.Marshal(EntitySpan{Start: 0, End: 2, Label: LabelPerson, Text: "孔子"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":0,"end":2,"label":"人物","text":"孔子"}`, string(b))
}

func TestTokenSpan_OmitsEmptyPinyin(t *testing.T) {
	b, err := json.Marshal(TokenSpan{Text: "学", Start: 0, End: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"学","start":0,"end":1}`, string(b))
	assert.Equal(t, 2, TokenSpan{Start: 2, End: 4}.Len())
}

func TestEntitySpan_Key(t *testing.T) {
	a := EntitySpan{Start: 1, End: 3, Label: LabelPlace, Text: "鲁国"}
	b := EntitySpan{Start: 1, End: 3, Label: LabelPlace, Text: "other"}
	assert.Equal(t, a.Key(), b.Key())
}

func TestAnnotationStats_Dropped(t *testing.T) {
	s := AnnotationStats{Malformed: 1, InvalidLabel: 2, Unmatched: 3, Duplicates: 4}
	assert.Equal(t, map[string]int{"malformed": 1, "invalid_label": 2, "unmatched": 3, "duplicate": 4}, s.Dropped())
}
