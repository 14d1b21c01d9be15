package core

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ColumnDocument is the YAML file the CLI reads custom columns from:
//
//	columns:
//	  - name: AGE
//	    type: int
//	    min: 18
//	    max: 90
//	  - name: RESULT_FLAG
//	    type: string
//	    values: [LOW, NORMAL, HIGH]
//	  - name: COLLECTION_DATE
//	    type: date
//	    start: 2022-01-01
//	    end: 2023-12-31
type ColumnDocument struct {
	Columns []ColumnInput `yaml:"columns"`
}

// ReadColumnsYAML decodes a ColumnDocument and returns validated specs.
// An empty document yields no columns.
func ReadColumnsYAML(r io.Reader, reserved ...string) ([]ColumnSpec, error) {
	var doc ColumnDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: column document: %v", ErrInvalidColumn, err)
	}
	return ColumnsFromInputs(doc.Columns, reserved...)
}

// WriteColumnsYAML encodes specs as a ColumnDocument.
func WriteColumnsYAML(w io.Writer, specs []ColumnSpec) error {
	doc := ColumnDocument{Columns: make([]ColumnInput, len(specs))}
	for i, c := range specs {
		doc.Columns[i] = c.Input()
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
