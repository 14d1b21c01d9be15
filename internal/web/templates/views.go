// Package templates renders the HTML pages of the generator UI as templ
// components. Components take plain view structs so they can be rendered
// and tested without the core package.
//
// page.templ is the source; run `templ generate` after editing it.
package templates

import "strconv"

// HiddenField is a name/value pair written as <input type="hidden">.
type HiddenField struct {
	Name  string
	Value string
}

// ColumnRow is one custom column as entered in the form.
type ColumnRow struct {
	Name   string
	Type   string
	Min    string
	Max    string
	Values string
	Start  string
	End    string
}

// MappingRow is one category and its tests.
type MappingRow struct {
	Category string
	Tests    []string
}

// Preview is the first rows of a generated dataset.
type Preview struct {
	ID       string
	Seed     int64
	Headers  []string
	Rows     [][]string
	Total    int
	Download []HiddenField
}

// Alert is an error shown above the form.
type Alert struct {
	Message string
	Detail  string
	Action  string
	Code    string
}

// FormView is everything the generator page needs to render.
type FormView struct {
	// Configuration
	Mapping          []MappingRow
	Source           string
	SavedConfigs     []string
	SavedConfig      string
	ConfigName       string
	ConfigSeed       int64
	MappingCSV       string
	RandomCategories int
	RandomTests      int
	MaxCategories    int
	MaxTests         int

	// Dataset parameters, as entered
	Rows           string
	Subjects       string
	SubjectPrefix  string
	SubjectStart   string
	CategoryColumn string
	TestColumn     string
	Seed           string
	MaxRows        int
	MaxSubjects    int
	MaxColumns     int

	Columns     []ColumnRow
	ColumnTypes []string

	Warning string
	Notice  string
	Error   *Alert
	Preview *Preview
}

// limit renders a form maximum; zero means unbounded.
func limit(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

const styles = `body{font-family:system-ui,sans-serif;margin:2rem auto;max-width:72rem;padding:0 1rem;color:#1f2933}
fieldset{border:1px solid #cbd2d9;border-radius:6px;margin:1rem 0;padding:1rem}
label{display:block;font-size:.85rem;margin-top:.5rem}
input,select{padding:.3rem;font-size:.9rem}
button{margin:.5rem .5rem 0 0;padding:.4rem .8rem;cursor:pointer}
table{border-collapse:collapse;font-size:.85rem;margin-top:.5rem}
td,th{border:1px solid #cbd2d9;padding:.25rem .5rem;text-align:left}
.grid{display:grid;grid-template-columns:repeat(auto-fill,minmax(12rem,1fr));gap:.5rem}
.column{border-top:1px dashed #cbd2d9;padding-top:.5rem;margin-top:.5rem}
.alert{border-radius:6px;padding:.75rem 1rem;margin:1rem 0}
.error{background:#fde8e8;border:1px solid #f8b4b4}
.warning{background:#fdf6b2;border:1px solid #faca15}
.notice{background:#def7ec;border:1px solid #84e1bc}
.muted{color:#616e7c;font-size:.85rem}`
