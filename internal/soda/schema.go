package soda

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Validator checks records against the JSON schema of their dataset.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewValidator compiles the embedded schemas of every dataset.
func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema)}
	for _, ds := range []Dataset{Crashes, People} {
		b, err := schemaFS.ReadFile("schemas/" + ds.Name + ".json")
		if err != nil {
			return nil, fmt.Errorf("read %s schema: %w", ds.Name, err)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", ds.Name, err)
		}
		v.schemas[ds.Name] = schema
	}
	return v, nil
}

// Rejection describes a record that failed validation.
type Rejection struct {
	Index  int
	Reason string
}

// Filter returns the records that satisfy the dataset schema and the
// reasons the others were rejected.
func (v *Validator) Filter(ds Dataset, records []Record) ([]Record, []Rejection, error) {
	schema, ok := v.schemas[ds.Name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: no schema for %q", ErrUnknownDataset, ds.Name)
	}
	valid := make([]Record, 0, len(records))
	var rejected []Rejection
	for i, r := range records {
		res, err := schema.Validate(gojsonschema.NewGoLoader(r))
		if err != nil {
			return nil, nil, fmt.Errorf("validate %s record %d: %w", ds.Name, i, err)
		}
		if res.Valid() {
			valid = append(valid, r)
			continue
		}
		reasons := make([]string, len(res.Errors()))
		for k, e := range res.Errors() {
			reasons[k] = e.String()
		}
		rejected = append(rejected, Rejection{Index: i, Reason: strings.Join(reasons, "; ")})
	}
	return valid, rejected, nil
}
