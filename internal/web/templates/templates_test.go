package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, v FormView) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, IndexPage(v).Render(context.Background(), &buf))
	return buf.String()
}

func TestIndexPage_FormFields(t *testing.T) {
	out := render(t, FormView{
		Source:         "random (3 categories)",
		SavedConfigs:   []string{"panel_a", "panel_b"},
		SavedConfig:    "panel_b",
		Rows:           "1000",
		Subjects:       "100",
		SubjectPrefix:  "SUBJ_",
		SubjectStart:   "1",
		CategoryColumn: "LAB_CATEGORY_RAW",
		TestColumn:     "LAB_TEST_RAW",
		Columns:        []ColumnRow{{Name: "Age", Type: "int", Min: "10", Max: "50"}},
		ColumnTypes:    []string{"int", "float", "string", "date"},
		MaxColumns:     5,
	})

	assert.Contains(t, out, `<form method="post" action="/generate" enctype="multipart/form-data">`)
	assert.Contains(t, out, `name="rows" id="rows" value="1000"`)
	assert.Contains(t, out, `name="category_column" id="category_column" value="LAB_CATEGORY_RAW"`)
	assert.Contains(t, out, `<option value="panel_b" selected>`)
	assert.Contains(t, out, `name="col_count" value="1"`)
	assert.Contains(t, out, `name="col_name_0" id="col_name_0" value="Age"`)
	assert.Contains(t, out, `<option value="int" selected>`)
	assert.Contains(t, out, `value="remove_column:0"`)
	assert.Contains(t, out, `value="add_column"`)
	assert.NotContains(t, out, `id="preview"`)
}

func TestIndexPage_EscapesUserInput(t *testing.T) {
	out := render(t, FormView{
		Mapping:       []MappingRow{{Category: "<script>", Tests: []string{`"quoted"`}}},
		SubjectPrefix: `"><b>`,
	})

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "&#34;quoted&#34;")
	assert.Contains(t, out, `value="&#34;&gt;&lt;b&gt;"`)
}

func TestIndexPage_HidesAddColumnAtLimit(t *testing.T) {
	out := render(t, FormView{
		Columns:    []ColumnRow{{Name: "a"}, {Name: "b"}},
		MaxColumns: 2,
	})
	assert.NotContains(t, out, `value="add_column"`)
}

func TestIndexPage_Preview(t *testing.T) {
	out := render(t, FormView{
		Preview: &Preview{
			Seed:     42,
			Headers:  []string{"SUBJECT_ID", "LAB_CATEGORY_RAW"},
			Rows:     [][]string{{"S1", "A"}, {"S2", "A"}},
			Total:    10,
			Download: []HiddenField{{Name: "seed", Value: "42"}, {Name: "rows", Value: "10"}},
		},
	})

	assert.Contains(t, out, `id="preview"`)
	assert.Contains(t, out, "Showing 2 of 10 rows. Seed 42.")
	assert.Contains(t, out, `<form method="post" action="/download">`)
	assert.Contains(t, out, `<input type="hidden" name="seed" value="42">`)
	assert.Contains(t, out, `name="format" value="xlsx"`)
	assert.Equal(t, 1, strings.Count(out, "<td>S2</td>"))
}

func TestIndexPage_Alerts(t *testing.T) {
	out := render(t, FormView{
		Error:   &Alert{Message: "Too many rows", Detail: "too many rows: 200000 > 100000", Action: "Lower it", Code: "GEN003"},
		Warning: "Could not use the configuration file",
		Notice:  "Saved configuration as panel_a",
	})

	assert.Contains(t, out, `class="alert error"`)
	assert.Contains(t, out, "Code: GEN003")
	assert.Contains(t, out, "too many rows: 200000 &gt; 100000")
	assert.Contains(t, out, `class="alert warning"`)
	assert.Contains(t, out, `class="alert notice"`)
}

func TestErrorAlert(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorAlert("Bad file", "", "CFG002").Render(context.Background(), &buf))

	out := buf.String()
	assert.Contains(t, out, "<strong>Bad file</strong>")
	assert.Contains(t, out, "Code: CFG002")
	assert.NotContains(t, out, "<div></div>")
}
