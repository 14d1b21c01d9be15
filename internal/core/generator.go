package core

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// Generation defaults, matching the form's initial values.
const (
	DefaultRows           = 1000
	DefaultSubjects       = 100
	DefaultSubjectPrefix  = "SUBJ_"
	DefaultSubjectStart   = 1
	DefaultCategoryColumn = "LAB_CATEGORY_RAW"
	DefaultTestColumn     = "LAB_TEST_RAW"

	// SubjectColumn is the fixed header of the subject ID column.
	SubjectColumn = "SUBJECT_ID"

	// MaxRows is the hard cap on rows per dataset.
	MaxRows = 100000
	// MaxSubjects is the hard cap on distinct subject IDs.
	MaxSubjects = 1000
)

// GenerateParams are the explicit inputs of Generate. Everything the form
// collects ends up here.
type GenerateParams struct {
	Rows           int          `json:"rows"`
	Subjects       int          `json:"subjects"`
	SubjectPrefix  string       `json:"subject_prefix"`
	SubjectStart   int          `json:"subject_start"`
	CategoryColumn string       `json:"category_column"`
	TestColumn     string       `json:"test_column"`
	Columns        []ColumnSpec `json:"columns,omitempty"`

	// Seed makes a run reproducible. Zero asks the service to pick one.
	Seed int64 `json:"seed,omitempty"`
}

// DefaultParams returns the form defaults with no custom columns.
func DefaultParams() GenerateParams {
	return GenerateParams{
		Rows:           DefaultRows,
		Subjects:       DefaultSubjects,
		SubjectPrefix:  DefaultSubjectPrefix,
		SubjectStart:   DefaultSubjectStart,
		CategoryColumn: DefaultCategoryColumn,
		TestColumn:     DefaultTestColumn,
	}
}

// Limits bounds a generation request.
type Limits struct {
	MaxRows     int
	MaxSubjects int
	MaxColumns  int
}

// DefaultLimits returns the hard caps.
func DefaultLimits() Limits {
	return Limits{MaxRows: MaxRows, MaxSubjects: MaxSubjects, MaxColumns: 50}
}

// Validate checks the parameters against limits and reports every problem.
func (p GenerateParams) Validate(limits Limits) error {
	var errs []error

	if p.Rows < 1 {
		errs = append(errs, fmt.Errorf("%w: rows must be at least 1, got %d", ErrInvalidParams, p.Rows))
	} else if p.Rows > limits.MaxRows {
		errs = append(errs, fmt.Errorf("%w: %d requested, limit is %d", ErrTooManyRows, p.Rows, limits.MaxRows))
	}
	if p.Subjects < 1 || p.Subjects > limits.MaxSubjects {
		errs = append(errs, fmt.Errorf("%w: subjects must be 1-%d, got %d", ErrInvalidParams, limits.MaxSubjects, p.Subjects))
	}
	if p.SubjectStart < 0 {
		errs = append(errs, fmt.Errorf("%w: subject start must be non-negative, got %d", ErrInvalidParams, p.SubjectStart))
	}

	catCol := strings.TrimSpace(p.CategoryColumn)
	testCol := strings.TrimSpace(p.TestColumn)
	if catCol == "" || testCol == "" {
		errs = append(errs, fmt.Errorf("%w: category and test column names are required", ErrInvalidParams))
	} else {
		if strings.EqualFold(catCol, testCol) {
			errs = append(errs, fmt.Errorf("%w: category and test columns must have different names", ErrInvalidParams))
		}
		if strings.EqualFold(catCol, SubjectColumn) || strings.EqualFold(testCol, SubjectColumn) {
			errs = append(errs, fmt.Errorf("%w: %s is reserved", ErrInvalidParams, SubjectColumn))
		}
	}

	if limits.MaxColumns > 0 && len(p.Columns) > limits.MaxColumns {
		errs = append(errs, fmt.Errorf("%w: %d custom columns, limit is %d", ErrInvalidParams, len(p.Columns), limits.MaxColumns))
	}
	if err := ValidateColumns(p.Columns, SubjectColumn, catCol, testCol); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Headers returns the dataset header row: SUBJECT_ID, the category column,
// the test column, then custom columns in definition order.
func (p GenerateParams) Headers() []string {
	headers := make([]string, 0, 3+len(p.Columns))
	headers = append(headers, SubjectColumn, strings.TrimSpace(p.CategoryColumn), strings.TrimSpace(p.TestColumn))
	for _, c := range p.Columns {
		headers = append(headers, c.Name)
	}
	return headers
}

// SubjectIDs returns prefix+start .. prefix+(start+count-1).
func SubjectIDs(prefix string, start, count int) []string {
	ids := make([]string, count)
	for i := range ids {
		ids[i] = prefix + strconv.Itoa(start+i)
	}
	return ids
}

// Row is one generated record. Values holds one entry per custom column:
// int64, float64, string or time.Time according to the column type.
type Row struct {
	Subject  string
	Category string
	Test     string
	Values   []any
}

// Generate samples p.Rows rows from m.
//
// Each row independently draws a subject uniformly (with replacement) from
// the p.Subjects precomputed IDs, a category uniformly from the mapping, a
// test uniformly from that category, and one value per custom column. The
// result depends only on the inputs and the state of rng.
func Generate(rng *rand.Rand, m *Mapping, p GenerateParams) (*Dataset, error) {
	if m == nil || m.Len() == 0 {
		return nil, ErrEmptyMapping
	}
	if err := p.Validate(Limits{MaxRows: MaxRows, MaxSubjects: MaxSubjects}); err != nil {
		return nil, err
	}

	subjects := SubjectIDs(p.SubjectPrefix, p.SubjectStart, p.Subjects)
	categories := m.Categories()
	tests := make([][]string, len(categories))
	for i, c := range categories {
		tests[i] = m.Tests(c)
	}

	rows := make([]Row, p.Rows)
	for i := range rows {
		ci := rng.Intn(len(categories))
		row := Row{
			Subject:  subjects[rng.Intn(len(subjects))],
			Category: categories[ci],
			Test:     tests[ci][rng.Intn(len(tests[ci]))],
		}
		if len(p.Columns) > 0 {
			row.Values = make([]any, len(p.Columns))
			for j, c := range p.Columns {
				row.Values[j] = c.Draw(rng)
			}
		}
		rows[i] = row
	}

	return &Dataset{
		Headers: p.Headers(),
		Columns: p.Columns,
		Rows:    rows,
		Seed:    p.Seed,
	}, nil
}

// Draw returns one value for the column.
func (c ColumnSpec) Draw(rng *rand.Rand) any {
	switch c.Type {
	case ColumnInt:
		lo, hi := int64(c.Min), int64(c.Max)
		return lo + rng.Int63n(hi-lo+1)
	case ColumnFloat:
		v := c.Min + rng.Float64()*(c.Max-c.Min)
		if v > c.Max {
			v = c.Max
		}
		return v
	case ColumnString:
		return c.Values[rng.Intn(len(c.Values))]
	case ColumnDate:
		days := int(c.End.Sub(c.Start).Hours() / 24)
		return c.Start.AddDate(0, 0, rng.Intn(days+1))
	}
	return nil
}

// NewRand returns a generator seeded with seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NewSeed returns a non-zero seed derived from the clock.
func NewSeed() int64 {
	seed := time.Now().UnixNano()
	if seed == 0 {
		seed = 1
	}
	return seed
}
