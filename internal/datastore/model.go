// model.go this code defines the data model for the application
package datastore

import (
	"time"

	"github.com/varity-app/lablr/internal/labels"
)

// Dataset is a named collection of samples plus the label schema used to
// annotate them. Label definitions and samples reference the dataset by id;
// the dataset itself carries no back-references.
type Dataset struct {
	ID          uint `gorm:"primaryKey"`
	Name        string
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
}

// LabelDefinition is one named, typed annotation dimension within a dataset's
// schema. Minimum, Maximum and Interval are only meaningful for the numerical
// variant; Interval is a UI step hint and is not enforced by validation.
type LabelDefinition struct {
	ID        uint `gorm:"primaryKey"`
	DatasetID uint `gorm:"index:idx_label_definitions_dataset;not null"`

	Name    string
	Variant labels.Variant `gorm:"type:varchar(20)"`

	// Numerical variant-specific fields
	Minimum  float64 `gorm:"default:0"`
	Maximum  float64 `gorm:"default:1"`
	Interval float64 `gorm:"default:0.5"`
}

// Definition converts the stored row to its domain representation.
func (ld *LabelDefinition) Definition() labels.Definition {
	return labels.Definition{
		Name:     ld.Name,
		Variant:  ld.Variant,
		Minimum:  ld.Minimum,
		Maximum:  ld.Maximum,
		Interval: ld.Interval,
	}
}

// SchemaFor assembles the label schema of a dataset from its stored
// definitions, preserving creation order.
func SchemaFor(datasetID uint, defs []LabelDefinition) *labels.Schema {
	schema := &labels.Schema{DatasetID: datasetID}
	for i := range defs {
		schema.Definitions = append(schema.Definitions, defs[i].Definition())
	}
	return schema
}

// Sample is one annotatable record belonging to a dataset. Labels is NULL
// until the sample has been labeled; OriginalID is the externally supplied
// identifier from the uploaded file and is not required to be unique.
type Sample struct {
	ID        uint `gorm:"primaryKey"`
	DatasetID uint `gorm:"index:idx_samples_dataset;not null"`

	OriginalID   string
	Text         string            `gorm:"type:text"`
	Labels       labels.Assignment `gorm:"type:text"`
	SaveForLater bool              `gorm:"default:false"`
}

// Labeled reports whether the sample carries a label assignment. An empty
// but present assignment still counts as labeled.
func (s *Sample) Labeled() bool {
	return s.Labels != nil
}
