package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/labgen/internal/core"
	"github.com/JonMunkholm/labgen/internal/web/templates"
)

// formMemory is how much of a multipart form is held in memory before
// spilling to temporary files.
const formMemory = 8 << 20

// formState is the generator form as submitted. Numeric fields are kept as
// entered so an invalid value is shown back to the user unchanged.
type formState struct {
	action string

	rows           string
	subjects       string
	subjectPrefix  string
	subjectStart   string
	categoryColumn string
	testColumn     string
	seed           string

	randomCategories string
	randomTests      string
	configSeed       int64
	mappingCSV       string
	savedConfig      string
	configName       string

	columns []templates.ColumnRow
}

// newFormState returns the form as first shown.
func newFormState() formState {
	p := core.DefaultParams()
	o := core.DefaultRandomOptions()
	return formState{
		rows:             strconv.Itoa(p.Rows),
		subjects:         strconv.Itoa(p.Subjects),
		subjectPrefix:    p.SubjectPrefix,
		subjectStart:     strconv.Itoa(p.SubjectStart),
		categoryColumn:   p.CategoryColumn,
		testColumn:       p.TestColumn,
		randomCategories: strconv.Itoa(o.Categories),
		randomTests:      strconv.Itoa(o.Tests),
		configSeed:       core.NewSeed(),
	}
}

// parseForm reads the generator form from a multipart or urlencoded body.
// The body is capped at maxBytes.
func parseForm(w http.ResponseWriter, r *http.Request, maxBytes int64, maxColumns int) (formState, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	err := r.ParseMultipartForm(formMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		return formState{}, requestError(err)
	}

	def := newFormState()
	get := func(name, fallback string) string {
		if v := strings.TrimSpace(r.PostFormValue(name)); v != "" {
			return v
		}
		return fallback
	}

	st := formState{
		action:           get("action", "generate"),
		rows:             get("rows", def.rows),
		subjects:         get("subjects", def.subjects),
		subjectPrefix:    r.PostFormValue("subject_prefix"),
		subjectStart:     get("subject_start", def.subjectStart),
		categoryColumn:   get("category_column", def.categoryColumn),
		testColumn:       get("test_column", def.testColumn),
		seed:             get("seed", ""),
		randomCategories: get("random_categories", def.randomCategories),
		randomTests:      get("random_tests", def.randomTests),
		mappingCSV:       r.PostFormValue("mapping_csv"),
		savedConfig:      get("saved_config", ""),
		configName:       get("config_name", ""),
	}
	if _, ok := r.PostForm["subject_prefix"]; !ok {
		st.subjectPrefix = def.subjectPrefix
	}
	if seed, err := strconv.ParseInt(get("config_seed", ""), 10, 64); err == nil {
		st.configSeed = seed
	}

	n, _ := strconv.Atoi(get("col_count", "0"))
	if n < 0 || n > maxColumns {
		return formState{}, fmt.Errorf("%w: at most %d custom columns are allowed", core.ErrInvalidParams, maxColumns)
	}
	for i := 0; i < n; i++ {
		suffix := "_" + strconv.Itoa(i)
		st.columns = append(st.columns, templates.ColumnRow{
			Name:   strings.TrimSpace(r.PostFormValue("col_name" + suffix)),
			Type:   get("col_type"+suffix, string(core.ColumnInt)),
			Min:    get("col_min"+suffix, ""),
			Max:    get("col_max"+suffix, ""),
			Values: get("col_values"+suffix, ""),
			Start:  get("col_start"+suffix, ""),
			End:    get("col_end"+suffix, ""),
		})
	}
	return st, nil
}

// requestError classifies a body parsing failure.
func requestError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", errFileTooLarge, tooLarge.Limit)
	}
	return fmt.Errorf("%w: %v", errInvalidRequest, err)
}

// randomOptions returns the size of the random fallback configuration.
func (st formState) randomOptions() (core.RandomOptions, error) {
	var o core.RandomOptions
	var errs []error
	o.Categories, errs = parseInt(errs, "random categories", st.randomCategories)
	o.Tests, errs = parseInt(errs, "random tests", st.randomTests)
	return o, errors.Join(errs...)
}

// params converts the form into generation parameters. Columns with a blank
// name are ignored.
func (st formState) params() (core.GenerateParams, error) {
	p := core.GenerateParams{
		SubjectPrefix:  st.subjectPrefix,
		CategoryColumn: st.categoryColumn,
		TestColumn:     st.testColumn,
	}

	var errs []error
	p.Rows, errs = parseInt(errs, "rows", st.rows)
	p.Subjects, errs = parseInt(errs, "subjects", st.subjects)
	p.SubjectStart, errs = parseInt(errs, "subject start", st.subjectStart)
	if st.seed != "" {
		seed, err := strconv.ParseInt(st.seed, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: seed must be a whole number", core.ErrInvalidParams))
		}
		p.Seed = seed
	}

	for _, col := range st.columns {
		if col.Name == "" {
			continue
		}
		spec, err := columnSpec(col)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.Columns = append(p.Columns, spec)
	}
	return p, errors.Join(errs...)
}

func columnSpec(col templates.ColumnRow) (core.ColumnSpec, error) {
	in := core.ColumnInput{
		Name:  col.Name,
		Type:  col.Type,
		Start: col.Start,
		End:   col.End,
	}
	if col.Values != "" {
		in.Values = strings.Split(col.Values, ",")
	}
	for _, bound := range []struct {
		raw  string
		dst  **float64
		name string
	}{{col.Min, &in.Min, "min"}, {col.Max, &in.Max, "max"}} {
		if bound.raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(bound.raw, 64)
		if err != nil {
			return core.ColumnSpec{}, fmt.Errorf("%w: %q: %s must be a number", core.ErrInvalidColumn, col.Name, bound.name)
		}
		*bound.dst = &v
	}
	return in.Spec()
}

func parseInt(errs []error, field, raw string) (int, []error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: %s must be a whole number, got %q", core.ErrInvalidParams, field, raw))
	}
	return n, errs
}

// view fills the form fields of a page.
func (st formState) view() templates.FormView {
	v := templates.FormView{
		SavedConfig:    st.savedConfig,
		ConfigName:     st.configName,
		ConfigSeed:     st.configSeed,
		MappingCSV:     st.mappingCSV,
		Rows:           st.rows,
		Subjects:       st.subjects,
		SubjectPrefix:  st.subjectPrefix,
		SubjectStart:   st.subjectStart,
		CategoryColumn: st.categoryColumn,
		TestColumn:     st.testColumn,
		Seed:           st.seed,
		Columns:        st.columns,
	}
	v.RandomCategories, _ = strconv.Atoi(st.randomCategories)
	v.RandomTests, _ = strconv.Atoi(st.randomTests)
	for _, t := range core.ColumnTypes {
		v.ColumnTypes = append(v.ColumnTypes, string(t))
	}
	return v
}

// downloadFields are the hidden inputs of the download form: the submitted
// parameters with the dataset's seed and its exact mapping, so the download
// reproduces the previewed rows.
func (st formState) downloadFields(seed int64, m *core.Mapping) []templates.HiddenField {
	fields := []templates.HiddenField{
		{Name: "rows", Value: st.rows},
		{Name: "subjects", Value: st.subjects},
		{Name: "subject_prefix", Value: st.subjectPrefix},
		{Name: "subject_start", Value: st.subjectStart},
		{Name: "category_column", Value: st.categoryColumn},
		{Name: "test_column", Value: st.testColumn},
		{Name: "seed", Value: strconv.FormatInt(seed, 10)},
		{Name: "mapping_csv", Value: mappingCSV(m)},
		{Name: "col_count", Value: strconv.Itoa(len(st.columns))},
	}
	for i, col := range st.columns {
		suffix := "_" + strconv.Itoa(i)
		fields = append(fields,
			templates.HiddenField{Name: "col_name" + suffix, Value: col.Name},
			templates.HiddenField{Name: "col_type" + suffix, Value: col.Type},
			templates.HiddenField{Name: "col_min" + suffix, Value: col.Min},
			templates.HiddenField{Name: "col_max" + suffix, Value: col.Max},
			templates.HiddenField{Name: "col_values" + suffix, Value: col.Values},
			templates.HiddenField{Name: "col_start" + suffix, Value: col.Start},
			templates.HiddenField{Name: "col_end" + suffix, Value: col.End},
		)
	}
	return fields
}

// mappingRows lists m for display.
func mappingRows(m *core.Mapping) []templates.MappingRow {
	if m == nil {
		return nil
	}
	rows := make([]templates.MappingRow, 0, m.Len())
	for _, c := range m.Categories() {
		rows = append(rows, templates.MappingRow{Category: c, Tests: m.Tests(c)})
	}
	return rows
}

// mappingCSV returns m as Category,Test CSV text.
func mappingCSV(m *core.Mapping) string {
	var b strings.Builder
	if err := core.WriteMapping(&b, m); err != nil {
		return ""
	}
	return b.String()
}
