package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestColumnBuilder_Build(t *testing.T) {
	cols, err := NewColumns().
		Int("AGE", 18, 90).
		Float("RESULT", 0.5, 9.5).
		String("SEX", "F", " M ", "").
		Date("VISIT_DATE", day("2022-01-01"), day("2022-12-31")).
		Build()
	require.NoError(t, err)
	require.Len(t, cols, 4)

	assert.Equal(t, "AGE", cols[0].Name)
	assert.Equal(t, ColumnInt, cols[0].Type)
	assert.Equal(t, 18.0, cols[0].Min)
	assert.Equal(t, ColumnFloat, cols[1].Type)
	assert.Equal(t, []string{"F", "M"}, cols[2].Values)
	assert.Equal(t, day("2022-12-31"), cols[3].End)
}

func TestColumnBuilder_ReportsEveryProblem(t *testing.T) {
	_, err := NewColumns().
		Int("A", 5, 1).
		String("B").
		Date("C", day("2023-01-02"), day("2023-01-01")).
		Float("", 0, 1).
		Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidColumn)
	for _, want := range []string{"column 1", "column 2", "column 3", "column 4"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestColumnBuilder_NameCollisions(t *testing.T) {
	_, err := NewColumns().Int("AGE", 1, 2).Int("age", 1, 2).Build()
	assert.ErrorIs(t, err, ErrInvalidColumn)

	_, err = NewColumns().String("subject_id", "x").Build(SubjectColumn)
	assert.ErrorIs(t, err, ErrInvalidColumn)
}

func TestColumnSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    ColumnSpec
		wantErr bool
	}{
		{"int ok", ColumnSpec{Name: "a", Type: ColumnInt, Min: 1, Max: 1}, false},
		{"int fractional", ColumnSpec{Name: "a", Type: ColumnInt, Min: 1.5, Max: 3}, true},
		{"int too large", ColumnSpec{Name: "a", Type: ColumnInt, Min: 0, Max: 1e16}, true},
		{"float reversed", ColumnSpec{Name: "a", Type: ColumnFloat, Min: 2, Max: 1}, true},
		{"float nan", ColumnSpec{Name: "a", Type: ColumnFloat, Min: math.NaN(), Max: 1}, true},
		{"float inf", ColumnSpec{Name: "a", Type: ColumnFloat, Min: 0, Max: math.Inf(1)}, true},
		{"string empty", ColumnSpec{Name: "a", Type: ColumnString}, true},
		{"date missing end", ColumnSpec{Name: "a", Type: ColumnDate, Start: day("2022-01-01")}, true},
		{"date single day", ColumnSpec{Name: "a", Type: ColumnDate, Start: day("2022-01-01"), End: day("2022-01-01")}, false},
		{"unknown type", ColumnSpec{Name: "a", Type: "bool"}, true},
		{"blank name", ColumnSpec{Name: " ", Type: ColumnString, Values: []string{"x"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidColumn)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseColumnType(t *testing.T) {
	for in, want := range map[string]ColumnType{
		"int": ColumnInt, "Integer": ColumnInt, "float": ColumnFloat, "number": ColumnFloat,
		" STRING ": ColumnString, "str": ColumnString, "date": ColumnDate,
	} {
		got, err := ParseColumnType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseColumnType("datetime")
	assert.ErrorIs(t, err, ErrInvalidColumn)
}

func TestColumnInput_Defaults(t *testing.T) {
	spec, err := ColumnInput{Name: "N", Type: "float"}.Spec()
	require.NoError(t, err)
	assert.Equal(t, DefaultRangeMin, spec.Min)
	assert.Equal(t, DefaultRangeMax, spec.Max)

	spec, err = ColumnInput{Name: "D", Type: "date"}.Spec()
	require.NoError(t, err)
	assert.Equal(t, DefaultDateStart, spec.Start)
	assert.Equal(t, DefaultDateEnd, spec.End)

	_, err = ColumnInput{Name: "D", Type: "date", Start: "01/02/2022"}.Spec()
	assert.ErrorIs(t, err, ErrInvalidColumn)
}

func TestColumnSpec_JSON(t *testing.T) {
	in := []ColumnSpec{
		{Name: "AGE", Type: ColumnInt, Min: 18, Max: 90},
		{Name: "SEX", Type: ColumnString, Values: []string{"F", "M"}},
		{Name: "DT", Type: ColumnDate, Start: day("2022-03-01"), End: day("2022-03-31")},
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"start":"2022-03-01"`)

	var out []ColumnSpec
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestColumnsYAML_RoundTrip(t *testing.T) {
	doc := `columns:
  - name: AGE
    type: int
    min: 18
    max: 90
  - name: RESULT_FLAG
    type: string
    values: [LOW, NORMAL, HIGH]
  - name: COLLECTION_DATE
    type: date
    start: 2022-01-01
    end: 2023-12-31
  - name: VALUE
    type: float
`
	cols, err := ReadColumnsYAML(strings.NewReader(doc), SubjectColumn)
	require.NoError(t, err)
	require.Len(t, cols, 4)
	assert.Equal(t, 90.0, cols[0].Max)
	assert.Equal(t, []string{"LOW", "NORMAL", "HIGH"}, cols[1].Values)
	assert.Equal(t, day("2023-12-31"), cols[2].End)
	assert.Equal(t, DefaultRangeMax, cols[3].Max)

	var buf bytes.Buffer
	require.NoError(t, WriteColumnsYAML(&buf, cols))
	back, err := ReadColumnsYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, cols, back)
}

func TestReadColumnsYAML_Errors(t *testing.T) {
	cols, err := ReadColumnsYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, cols)

	_, err = ReadColumnsYAML(strings.NewReader("columns:\n  - name: A\n    type: int\n    step: 2\n"))
	assert.True(t, errors.Is(err, ErrInvalidColumn), "unknown field: %v", err)

	_, err = ReadColumnsYAML(strings.NewReader("columns:\n  - name: A\n    type: blob\n"))
	assert.ErrorIs(t, err, ErrInvalidColumn)
}

func TestColumnBuilder_AddTruncatesDates(t *testing.T) {
	start := time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)
	end := time.Date(2023, 3, 3, 6, 0, 0, 0, time.UTC)

	cols, err := NewColumns().Add(ColumnSpec{Name: "VISIT", Type: ColumnDate, Start: start, End: end}).Build()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), cols[0].Start)
	assert.Equal(t, time.Date(2023, 3, 3, 0, 0, 0, 0, time.UTC), cols[0].End)

	rng := NewRand(1)
	seen := map[string]bool{}
	for i := 0; i < 300; i++ {
		seen[cols[0].Draw(rng).(time.Time).Format(DateLayout)] = true
	}
	assert.Equal(t, map[string]bool{"2023-03-01": true, "2023-03-02": true, "2023-03-03": true}, seen)
}
