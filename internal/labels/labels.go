// Package labels defines the label schema of a dataset and validates
// proposed label assignments against it.
package labels

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/varity-app/lablr/internal/errors"
)

// Variant is the type tag of a label definition.
type Variant string

const (
	// VariantBoolean accepts only the values 0 and 1.
	VariantBoolean Variant = "boolean"
	// VariantNumerical accepts values within [Minimum, Maximum].
	VariantNumerical Variant = "numerical"
)

// ValidVariants lists the recognized label variants.
var ValidVariants = []Variant{VariantNumerical, VariantBoolean}

// Valid reports whether v is one of the recognized variants.
func (v Variant) Valid() bool {
	switch v {
	case VariantBoolean, VariantNumerical:
		return true
	default:
		return false
	}
}

// Default bounds for numerical label definitions.
const (
	DefaultMinimum  = 0.0
	DefaultMaximum  = 1.0
	DefaultInterval = 0.5
)

// Definition is one named, typed annotation dimension within a dataset's schema.
// Minimum, Maximum and Interval are only meaningful for the numerical variant.
// Interval is stored for UI step hints but is not enforced by validation.
type Definition struct {
	Name     string
	Variant  Variant
	Minimum  float64
	Maximum  float64
	Interval float64
}

// Assignment maps label names to numeric values. A nil Assignment means the
// sample is unlabeled; a non-nil empty Assignment still counts as labeled.
// It serializes to a JSON column so both SQLite and MySQL can store it.
type Assignment map[string]float64

// Value implements driver.Valuer. A nil map is stored as SQL NULL so the
// labeled/unlabeled distinction survives the round trip.
func (a Assignment) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshaling label assignment: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (a *Assignment) Scan(value any) error {
	if value == nil {
		*a = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for label assignment", value)
	}

	decoded := make(Assignment)
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("unmarshaling label assignment: %w", err)
	}
	*a = decoded
	return nil
}

// Schema is the ordered set of label definitions owned by a dataset.
type Schema struct {
	DatasetID   uint
	Definitions []Definition
}

// Lookup returns the definition matching name by exact string match.
func (s *Schema) Lookup(name string) (Definition, bool) {
	for _, def := range s.Definitions {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

// Names returns the label names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.Definitions))
	for _, def := range s.Definitions {
		names = append(names, def.Name)
	}
	return names
}

// ValidateVariants checks every definition's variant at schema creation time.
// An unrecognized variant rejects the whole schema, which in turn aborts the
// dataset creation it belongs to.
func (s *Schema) ValidateVariants() error {
	for _, def := range s.Definitions {
		if !def.Variant.Valid() {
			return errors.Newf("variant `%s` for label `%s` must be one of %v",
				def.Variant, def.Name, ValidVariants).
				Component("labels").
				Category(errors.CategoryValidation).
				Context("label", def.Name).
				Context("variant", string(def.Variant)).
				Build()
		}
	}
	return nil
}

// Validate checks a proposed assignment against the schema. Validation is
// all-or-nothing: the first failing field rejects the whole assignment.
//
// Rules per field:
//   - the label name must exist in the schema (exact match)
//   - numerical values must satisfy minimum <= value <= maximum, inclusive
//   - boolean values must be exactly 0 or 1 by numeric equality
func (s *Schema) Validate(proposed Assignment) error {
	for name, value := range proposed {
		def, ok := s.Lookup(name)
		if !ok {
			return errors.Newf("label `%s` is not a valid label for dataset with dataset_id `%d`",
				name, s.DatasetID).
				Component("labels").
				Category(errors.CategoryValidation).
				Context("label", name).
				Context("dataset_id", s.DatasetID).
				Build()
		}

		switch def.Variant {
		case VariantNumerical:
			if value < def.Minimum || value > def.Maximum {
				return errors.Newf("value `%v` of label `%s` must be within range (%v, %v)",
					value, name, def.Minimum, def.Maximum).
					Component("labels").
					Category(errors.CategoryValidation).
					Context("label", name).
					Context("value", value).
					Build()
			}
		case VariantBoolean:
			if value != 0 && value != 1 {
				return errors.Newf("value `%v` of label `%s` must be either 0 or 1",
					value, name).
					Component("labels").
					Category(errors.CategoryValidation).
					Context("label", name).
					Context("value", value).
					Build()
			}
		}
	}
	return nil
}
