package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ColumnType is the declared type of a custom column.
type ColumnType string

const (
	ColumnInt    ColumnType = "int"
	ColumnFloat  ColumnType = "float"
	ColumnString ColumnType = "string"
	ColumnDate   ColumnType = "date"
)

// ColumnTypes lists the supported types in form order.
var ColumnTypes = []ColumnType{ColumnInt, ColumnFloat, ColumnString, ColumnDate}

// DateLayout is the wire and export format of date values.
const DateLayout = "2006-01-02"

// IntBound limits int column ranges so every value and span is exact in
// int64 and float64 arithmetic.
const IntBound = 1e15

// Defaults applied when an input leaves a range open.
var (
	DefaultRangeMin  = 10.0
	DefaultRangeMax  = 50.0
	DefaultDateStart = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	DefaultDateEnd   = time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
)

// ParseColumnType accepts the canonical names plus "str" and "integer".
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer":
		return ColumnInt, nil
	case "float", "number":
		return ColumnFloat, nil
	case "string", "str":
		return ColumnString, nil
	case "date":
		return ColumnDate, nil
	}
	return "", fmt.Errorf("%w: unknown type %q", ErrInvalidColumn, s)
}

// ColumnSpec is a custom column: a name, a type and the generation rule for
// that type. Only the fields of the declared type are meaningful:
//
//	int, float: Min, Max (inclusive)
//	string:     Values
//	date:       Start, End (inclusive calendar days)
type ColumnSpec struct {
	Name   string
	Type   ColumnType
	Min    float64
	Max    float64
	Values []string
	Start  time.Time
	End    time.Time
}

// Validate checks the spec for its declared type.
func (c ColumnSpec) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidColumn)
	}

	switch c.Type {
	case ColumnInt:
		if c.Min != math.Trunc(c.Min) || c.Max != math.Trunc(c.Max) {
			return fmt.Errorf("%w: %q: int range must be whole numbers", ErrInvalidColumn, c.Name)
		}
		if math.Abs(c.Min) > IntBound || math.Abs(c.Max) > IntBound {
			return fmt.Errorf("%w: %q: int range must stay within +/-%g", ErrInvalidColumn, c.Name, IntBound)
		}
		fallthrough
	case ColumnFloat:
		if math.IsNaN(c.Min) || math.IsNaN(c.Max) || math.IsInf(c.Min, 0) || math.IsInf(c.Max, 0) {
			return fmt.Errorf("%w: %q: range must be finite", ErrInvalidColumn, c.Name)
		}
		if c.Min > c.Max {
			return fmt.Errorf("%w: %q: min %g is greater than max %g", ErrInvalidColumn, c.Name, c.Min, c.Max)
		}
	case ColumnString:
		if len(c.Values) == 0 {
			return fmt.Errorf("%w: %q: at least one value is required", ErrInvalidColumn, c.Name)
		}
	case ColumnDate:
		if c.Start.IsZero() || c.End.IsZero() {
			return fmt.Errorf("%w: %q: start and end dates are required", ErrInvalidColumn, c.Name)
		}
		if c.End.Before(c.Start) {
			return fmt.Errorf("%w: %q: end %s is before start %s", ErrInvalidColumn, c.Name,
				c.End.Format(DateLayout), c.Start.Format(DateLayout))
		}
	default:
		return fmt.Errorf("%w: %q: unknown type %q", ErrInvalidColumn, c.Name, c.Type)
	}
	return nil
}

// ValidateColumns validates every spec and checks that names are unique and
// do not collide with reserved names (the fixed dataset columns). All
// problems are reported together.
func ValidateColumns(specs []ColumnSpec, reserved ...string) error {
	taken := make(map[string]bool, len(specs)+len(reserved))
	for _, r := range reserved {
		taken[strings.ToLower(r)] = true
	}

	var errs []error
	for i, c := range specs {
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("column %d: %w", i+1, err))
			continue
		}
		key := strings.ToLower(strings.TrimSpace(c.Name))
		if taken[key] {
			errs = append(errs, fmt.Errorf("column %d: %w: name %q is already used", i+1, ErrInvalidColumn, c.Name))
			continue
		}
		taken[key] = true
	}
	return errors.Join(errs...)
}

// ColumnBuilder accumulates custom columns in definition order.
//
//	cols, err := core.NewColumns().
//	    Int("AGE", 18, 90).
//	    String("SEX", "F", "M").
//	    Date("VISIT_DATE", start, end).
//	    Build()
type ColumnBuilder struct {
	specs []ColumnSpec
}

// NewColumns starts an empty column list.
func NewColumns() *ColumnBuilder {
	return &ColumnBuilder{}
}

// Int adds an integer column drawing uniformly from [min, max].
func (b *ColumnBuilder) Int(name string, lo, hi int64) *ColumnBuilder {
	return b.Add(ColumnSpec{Name: name, Type: ColumnInt, Min: float64(lo), Max: float64(hi)})
}

// Float adds a float column drawing uniformly from [min, max).
func (b *ColumnBuilder) Float(name string, lo, hi float64) *ColumnBuilder {
	return b.Add(ColumnSpec{Name: name, Type: ColumnFloat, Min: lo, Max: hi})
}

// String adds a column choosing uniformly among values.
func (b *ColumnBuilder) String(name string, values ...string) *ColumnBuilder {
	return b.Add(ColumnSpec{Name: name, Type: ColumnString, Values: cleanValues(values)})
}

// Date adds a date column drawing a calendar day uniformly from [start, end].
func (b *ColumnBuilder) Date(name string, start, end time.Time) *ColumnBuilder {
	return b.Add(ColumnSpec{Name: name, Type: ColumnDate, Start: truncateDay(start), End: truncateDay(end)})
}

// Add appends a prepared spec. Date bounds are truncated to UTC calendar
// days.
func (b *ColumnBuilder) Add(spec ColumnSpec) *ColumnBuilder {
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Type == ColumnDate {
		spec.Start, spec.End = truncateDay(spec.Start), truncateDay(spec.End)
	}
	b.specs = append(b.specs, spec)
	return b
}

// Len returns the number of columns added so far.
func (b *ColumnBuilder) Len() int {
	return len(b.specs)
}

// Build validates the columns and returns them in definition order.
func (b *ColumnBuilder) Build(reserved ...string) ([]ColumnSpec, error) {
	if err := ValidateColumns(b.specs, reserved...); err != nil {
		return nil, err
	}
	out := make([]ColumnSpec, len(b.specs))
	copy(out, b.specs)
	return out, nil
}

// ColumnInput is the loosely typed column definition shared by the JSON API,
// YAML column documents and the web form. Open ranges take the defaults
// 10..50 and 2022-01-01..2023-12-31.
type ColumnInput struct {
	Name   string   `json:"name" yaml:"name"`
	Type   string   `json:"type" yaml:"type"`
	Min    *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max    *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Values []string `json:"values,omitempty" yaml:"values,omitempty"`
	Start  string   `json:"start,omitempty" yaml:"start,omitempty"`
	End    string   `json:"end,omitempty" yaml:"end,omitempty"`
}

// Spec converts the input into a ColumnSpec. It does not validate ranges;
// call Validate or ValidateColumns on the result.
func (in ColumnInput) Spec() (ColumnSpec, error) {
	ct, err := ParseColumnType(in.Type)
	if err != nil {
		return ColumnSpec{}, fmt.Errorf("%q: %w", in.Name, err)
	}

	spec := ColumnSpec{Name: strings.TrimSpace(in.Name), Type: ct}
	switch ct {
	case ColumnInt, ColumnFloat:
		spec.Min, spec.Max = DefaultRangeMin, DefaultRangeMax
		if in.Min != nil {
			spec.Min = *in.Min
		}
		if in.Max != nil {
			spec.Max = *in.Max
		}
	case ColumnString:
		spec.Values = cleanValues(in.Values)
	case ColumnDate:
		spec.Start, spec.End = DefaultDateStart, DefaultDateEnd
		if in.Start != "" {
			if spec.Start, err = time.Parse(DateLayout, strings.TrimSpace(in.Start)); err != nil {
				return ColumnSpec{}, fmt.Errorf("%w: %q: start date must be YYYY-MM-DD", ErrInvalidColumn, in.Name)
			}
		}
		if in.End != "" {
			if spec.End, err = time.Parse(DateLayout, strings.TrimSpace(in.End)); err != nil {
				return ColumnSpec{}, fmt.Errorf("%w: %q: end date must be YYYY-MM-DD", ErrInvalidColumn, in.Name)
			}
		}
	}
	return spec, nil
}

// Input converts the spec back to its wire form.
func (c ColumnSpec) Input() ColumnInput {
	in := ColumnInput{Name: c.Name, Type: string(c.Type)}
	switch c.Type {
	case ColumnInt, ColumnFloat:
		lo, hi := c.Min, c.Max
		in.Min, in.Max = &lo, &hi
	case ColumnString:
		in.Values = append([]string(nil), c.Values...)
	case ColumnDate:
		in.Start = c.Start.Format(DateLayout)
		in.End = c.End.Format(DateLayout)
	}
	return in
}

// MarshalJSON encodes the spec in its ColumnInput form.
func (c ColumnSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Input())
}

// UnmarshalJSON decodes a ColumnInput and converts it.
func (c *ColumnSpec) UnmarshalJSON(data []byte) error {
	var in ColumnInput
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	spec, err := in.Spec()
	if err != nil {
		return err
	}
	*c = spec
	return nil
}

// ColumnsFromInputs converts and validates a list of inputs.
func ColumnsFromInputs(inputs []ColumnInput, reserved ...string) ([]ColumnSpec, error) {
	b := NewColumns()
	var errs []error
	for i, in := range inputs {
		spec, err := in.Spec()
		if err != nil {
			errs = append(errs, fmt.Errorf("column %d: %w", i+1, err))
			continue
		}
		b.Add(spec)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return b.Build(reserved...)
}

func cleanValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
