package core

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func fixedDataset() *Dataset {
	return &Dataset{
		ID:      uuid.MustParse("1a2b3c4d-0000-4000-8000-000000000000"),
		Seed:    9,
		Headers: []string{SubjectColumn, "CAT", "TEST", "AGE", "RESULT", "FLAG", "VISIT"},
		Rows: []Row{
			{"S1", "A", "t1", []any{int64(42), 3.5, "HIGH", day("2022-05-01")}},
			{"S2", "A", "t2, total", []any{int64(-3), 0.1, "LOW", day("2023-12-31")}},
		},
	}
}

func TestDataset_WriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fixedDataset().WriteCSV(&buf))

	want := "SUBJECT_ID,CAT,TEST,AGE,RESULT,FLAG,VISIT\n" +
		"S1,A,t1,42,3.5,HIGH,2022-05-01\n" +
		"S2,A,\"t2, total\",-3,0.1,LOW,2023-12-31\n"
	assert.Equal(t, want, buf.String())

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestDataset_Records(t *testing.T) {
	d := fixedDataset()
	assert.Len(t, d.Records(1), 1)
	assert.Len(t, d.Records(-1), 2)
	assert.Len(t, d.Records(50), 2)
	assert.Empty(t, d.Records(0))
	assert.Equal(t, []string{"S2", "A", "t2, total", "-3", "0.1", "LOW", "2023-12-31"}, d.Records(-1)[1])

	for _, rec := range d.Records(-1) {
		assert.NotEqual(t, d.Headers, rec, "header must not appear as a data row")
		assert.NotEqual(t, SubjectColumn, rec[0])
	}
}

func TestDataset_WriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fixedDataset().WriteXLSX(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, fixedDataset().Headers, rows[0])
	assert.Equal(t, []string{"S1", "A", "t1", "42", "3.5", "HIGH", "2022-05-01"}, rows[1])

	v, err := f.GetCellValue(SheetName, "D3")
	require.NoError(t, err)
	assert.Equal(t, "-3", v)
}

func TestDataset_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(fixedDataset())
	require.NoError(t, err)

	var got struct {
		ID      string     `json:"id"`
		Seed    int64      `json:"seed"`
		Headers []string   `json:"headers"`
		Rows    [][]string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "1a2b3c4d-0000-4000-8000-000000000000", got.ID)
	assert.Equal(t, int64(9), got.Seed)
	assert.Equal(t, "42", got.Rows[0][3])
}

func TestDataset_Filename(t *testing.T) {
	assert.Equal(t, "synthetic_lab_data_1a2b3c4d.csv", fixedDataset().Filename(FormatCSV))
	assert.True(t, strings.HasSuffix(fixedDataset().Filename(FormatXLSX), ".xlsx"))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{int64(-12), "-12"},
		{7, "7"},
		{0.1, "0.1"},
		{1e21, "1000000000000000000000"},
		{12.0, "12"},
		{time.Date(2022, 1, 2, 15, 4, 5, 0, time.UTC), "2022-01-02"},
		{true, "true"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in), "%#v", tt.in)
	}
}

func TestFormatHelpers(t *testing.T) {
	assert.True(t, ValidFormat(FormatXLSX))
	assert.False(t, ValidFormat("xls"))
	assert.Equal(t, "application/json", ContentType(FormatJSON))
	assert.Contains(t, ContentType(FormatCSV), "text/csv")
}
