// Package schema validates synchronized record payloads against embedded
// OpenAPI component schemas, one per sync table.
package schema

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed sync_records.yaml
var syncRecordSchemas []byte

var (
	// ErrUnknownTable indicates a table without a registered schema.
	ErrUnknownTable = errors.New("schema: unknown sync table")
	// ErrInvalidRecord indicates a payload that violates its table schema.
	ErrInvalidRecord = errors.New("schema: invalid record")
)

// Validator checks record payloads per table.
type Validator struct {
	schemas map[string]*openapi3.Schema
}

// NewValidator loads the embedded schemas.
func NewValidator(ctx context.Context) (*Validator, error) {
	return NewValidatorFromData(ctx, syncRecordSchemas)
}

// NewValidatorFromData loads schemas from an OpenAPI document in data.
func NewValidatorFromData(ctx context.Context, data []byte) (*Validator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("schema: load document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("schema: validate document: %w", err)
	}

	schemas := make(map[string]*openapi3.Schema, len(doc.Components.Schemas))
	for name, ref := range doc.Components.Schemas {
		if ref == nil || ref.Value == nil {
			continue
		}
		schemas[name] = ref.Value
	}
	return &Validator{schemas: schemas}, nil
}

// Tables lists the tables with a schema, sorted.
func (v *Validator) Tables() []string {
	tables := make([]string, 0, len(v.schemas))
	for name := range v.schemas {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return tables
}

// Validate checks data against the schema of tableName.
func (v *Validator) Validate(tableName string, data map[string]any) error {
	s, ok := v.schemas[tableName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTable, tableName)
	}

	var value any = data
	if data == nil {
		value = map[string]any{}
	}
	if err := s.VisitJSON(value, openapi3.MultiErrors()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}
