// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/varity-app/lablr/internal/conf"
	"github.com/varity-app/lablr/internal/errors"
	"github.com/varity-app/lablr/internal/labels"
)

// Interface abstracts the underlying database implementation and defines the
// interface for database operations.
type Interface interface {
	Open() error
	Close() error

	// Dataset aggregate
	CreateDataset(dataset *Dataset, defs []LabelDefinition, samples []Sample) error
	GetAllDatasets() ([]Dataset, error)
	GetDataset(id string) (Dataset, error)
	DeleteDataset(id string) error
	GetLabelDefinitions(datasetID uint) ([]LabelDefinition, error)

	// Sample store
	CreateSamples(samples []Sample) error
	GetSamples(datasetID uint, offset, limit int, labeled *bool) ([]Sample, int64, error)
	GetSample(datasetID uint, sampleID string) (Sample, error)
	UpdateSampleLabels(datasetID uint, sampleID string, assignment labels.Assignment, saveForLater *bool) error
	CountSamples(datasetID uint) (total, labeled int64, err error)
	GetLabeledSamples(datasetID uint) ([]Sample, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// notFound wraps gorm's record-not-found error into a categorized error the
// API layer can map to a 404.
func notFound(err error, entity string, id any) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Context("entity", entity).
		Context("id", id).
		Build()
}

func databaseError(err error, operation string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}

// parseID converts a string id from the request path to a database id.
// An unparseable id behaves like a missing record.
func parseID(id, entity string) (uint, error) {
	parsed, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, notFound(gorm.ErrRecordNotFound, entity, id)
	}
	return uint(parsed), nil
}

// CreateDataset stores a dataset, its label definitions and its initial
// samples as a single transaction. Any failure rolls the whole creation back
// so an aborted creation leaves no residue.
func (ds *DataStore) CreateDataset(dataset *Dataset, defs []LabelDefinition, samples []Sample) error {
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		if dataset.CreatedAt.IsZero() {
			dataset.CreatedAt = time.Now()
		}
		if err := tx.Create(dataset).Error; err != nil {
			return fmt.Errorf("saving dataset: %w", err)
		}

		for i := range defs {
			defs[i].DatasetID = dataset.ID
			if err := tx.Create(&defs[i]).Error; err != nil {
				return fmt.Errorf("saving label definition: %w", err)
			}
		}

		for i := range samples {
			samples[i].DatasetID = dataset.ID
			if err := tx.Create(&samples[i]).Error; err != nil {
				return fmt.Errorf("saving sample: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return databaseError(err, "create-dataset")
	}
	return nil
}

// GetAllDatasets retrieves all datasets in creation order.
func (ds *DataStore) GetAllDatasets() ([]Dataset, error) {
	var datasets []Dataset
	if result := ds.DB.Order("id ASC").Find(&datasets); result.Error != nil {
		return nil, databaseError(result.Error, "get-all-datasets")
	}
	return datasets, nil
}

// GetDataset retrieves a dataset by its ID.
func (ds *DataStore) GetDataset(id string) (Dataset, error) {
	datasetID, err := parseID(id, "dataset")
	if err != nil {
		return Dataset{}, err
	}

	var dataset Dataset
	if err := ds.DB.First(&dataset, datasetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Dataset{}, notFound(err, "dataset", id)
		}
		return Dataset{}, databaseError(err, "get-dataset")
	}
	return dataset, nil
}

// DeleteDataset removes a dataset and all label definitions and samples that
// reference it within a single transaction. A successful delete leaves no
// orphans; a failed one leaves everything in place.
func (ds *DataStore) DeleteDataset(id string) error {
	datasetID, err := parseID(id, "dataset")
	if err != nil {
		return err
	}

	// Resolve the dataset first so a missing id surfaces as not-found
	// rather than a no-op delete.
	if _, err := ds.GetDataset(id); err != nil {
		return err
	}

	err = ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dataset_id = ?", datasetID).Delete(&LabelDefinition{}).Error; err != nil {
			return fmt.Errorf("deleting label definitions for dataset ID %d: %w", datasetID, err)
		}
		if err := tx.Where("dataset_id = ?", datasetID).Delete(&Sample{}).Error; err != nil {
			return fmt.Errorf("deleting samples for dataset ID %d: %w", datasetID, err)
		}
		if err := tx.Delete(&Dataset{}, datasetID).Error; err != nil {
			return fmt.Errorf("deleting dataset with ID %d: %w", datasetID, err)
		}
		return nil
	})
	if err != nil {
		return databaseError(err, "delete-dataset")
	}
	return nil
}

// GetLabelDefinitions retrieves a dataset's label definitions in creation
// order, which is the schema order used for validation and export.
func (ds *DataStore) GetLabelDefinitions(datasetID uint) ([]LabelDefinition, error) {
	var defs []LabelDefinition
	if err := ds.DB.Where("dataset_id = ?", datasetID).Order("id ASC").Find(&defs).Error; err != nil {
		return nil, databaseError(err, "get-label-definitions")
	}
	return defs, nil
}

// CreateSamples stores a batch of samples as a single transaction so a
// failed ingestion leaves no partial sample set behind.
func (ds *DataStore) CreateSamples(samples []Sample) error {
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		for i := range samples {
			if err := tx.Create(&samples[i]).Error; err != nil {
				return fmt.Errorf("saving sample: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return databaseError(err, "create-samples")
	}
	return nil
}

// GetSamples retrieves a page of a dataset's samples in insertion order.
// labeled is tri-state: nil applies no filter, true returns only samples with
// a label assignment, false only samples without one. The filter is applied
// before pagination, so the returned total reflects the post-filter count.
func (ds *DataStore) GetSamples(datasetID uint, offset, limit int, labeled *bool) ([]Sample, int64, error) {
	query := ds.DB.Model(&Sample{}).Where("dataset_id = ?", datasetID)
	// Session makes the filtered query reusable for both the count and the page
	query = applyLabeledFilter(query, labeled).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, databaseError(err, "count-samples-page")
	}

	var samples []Sample
	err := query.Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&samples).Error
	if err != nil {
		return nil, 0, databaseError(err, "get-samples")
	}

	return samples, total, nil
}

// GetSample retrieves a single sample scoped to a dataset.
func (ds *DataStore) GetSample(datasetID uint, sampleID string) (Sample, error) {
	id, err := parseID(sampleID, "sample")
	if err != nil {
		return Sample{}, err
	}

	var sample Sample
	err = ds.DB.Where("id = ? AND dataset_id = ?", id, datasetID).First(&sample).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Sample{}, notFound(err, "sample", sampleID)
		}
		return Sample{}, databaseError(err, "get-sample")
	}
	return sample, nil
}

// UpdateSampleLabels replaces a sample's label assignment. The sample is
// re-read inside the transaction so the write applies to exactly the row it
// resolved. The assignment replaces the previous one wholesale; it is never
// merged. saveForLater updates the flag when non-nil.
func (ds *DataStore) UpdateSampleLabels(datasetID uint, sampleID string, assignment labels.Assignment, saveForLater *bool) error {
	id, err := parseID(sampleID, "sample")
	if err != nil {
		return err
	}

	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var sample Sample
		err := tx.Where("id = ? AND dataset_id = ?", id, datasetID).First(&sample).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(err, "sample", sampleID)
			}
			return databaseError(err, "get-sample-for-update")
		}

		updates := map[string]any{"labels": assignment}
		if saveForLater != nil {
			updates["save_for_later"] = *saveForLater
		}

		if err := tx.Model(&Sample{}).Where("id = ?", sample.ID).Updates(updates).Error; err != nil {
			return databaseError(err, "update-sample-labels")
		}
		return nil
	})
}

// CountSamples returns the total and labeled sample counts of a dataset.
// Statistics derived from these counts are computed fresh on every call.
func (ds *DataStore) CountSamples(datasetID uint) (total, labeled int64, err error) {
	base := ds.DB.Model(&Sample{}).Where("dataset_id = ?", datasetID).Session(&gorm.Session{})

	if err := base.Count(&total).Error; err != nil {
		return 0, 0, databaseError(err, "count-samples")
	}
	if err := base.Where("labels IS NOT NULL").Count(&labeled).Error; err != nil {
		return 0, 0, databaseError(err, "count-labeled-samples")
	}
	return total, labeled, nil
}

// GetLabeledSamples retrieves all of a dataset's labeled samples in insertion
// order, for export.
func (ds *DataStore) GetLabeledSamples(datasetID uint) ([]Sample, error) {
	var samples []Sample
	err := ds.DB.Where("dataset_id = ? AND labels IS NOT NULL", datasetID).
		Order("id ASC").
		Find(&samples).Error
	if err != nil {
		return nil, databaseError(err, "get-labeled-samples")
	}
	return samples, nil
}

// applyLabeledFilter narrows a sample query by labeled state.
func applyLabeledFilter(query *gorm.DB, labeled *bool) *gorm.DB {
	if labeled == nil {
		return query
	}
	if *labeled {
		return query.Where("labels IS NOT NULL")
	}
	return query.Where("labels IS NULL")
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Dataset{}, &LabelDefinition{}, &Sample{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}
