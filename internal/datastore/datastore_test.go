// datastore_test.go: Tests for dataset, label definition and sample persistence
package datastore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/varity-app/lablr/internal/errors"
	"github.com/varity-app/lablr/internal/labels"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *DataStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&Dataset{}, &LabelDefinition{}, &Sample{})
	require.NoError(t, err)

	return &DataStore{DB: db}
}

// seedDataset creates a dataset with a boolean and a numerical label and the
// given number of samples, returning its id.
func seedDataset(t *testing.T, ds *DataStore, sampleCount int) uint {
	t.Helper()

	dataset := &Dataset{Name: "reviews", Description: "product reviews"}
	defs := []LabelDefinition{
		{Name: "toxic", Variant: labels.VariantBoolean, Minimum: 0, Maximum: 1, Interval: 0.5},
		{Name: "sentiment", Variant: labels.VariantNumerical, Minimum: -1, Maximum: 1, Interval: 0.5},
	}

	samples := make([]Sample, sampleCount)
	for i := range samples {
		samples[i] = Sample{
			OriginalID: fmt.Sprintf("r-%d", i+1),
			Text:       fmt.Sprintf("review number %d", i+1),
		}
	}

	require.NoError(t, ds.CreateDataset(dataset, defs, samples))
	return dataset.ID
}

func TestCreateDatasetAssignsOwnership(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	id := seedDataset(t, ds, 3)

	defs, err := ds.GetLabelDefinitions(id)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "toxic", defs[0].Name)
	assert.Equal(t, "sentiment", defs[1].Name)
	for _, def := range defs {
		assert.Equal(t, id, def.DatasetID)
	}

	total, labeled, err := ds.CountSamples(id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(0), labeled)
}

func TestGetDatasetNotFound(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	_, err := ds.GetDataset("9999")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	// A non-numeric id behaves like a missing record
	_, err = ds.GetDataset("abc")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestDeleteDatasetCascades(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	id := seedDataset(t, ds, 4)
	idStr := fmt.Sprintf("%d", id)

	require.NoError(t, ds.DeleteDataset(idStr))

	_, err := ds.GetDataset(idStr)
	assert.True(t, errors.IsNotFound(err))

	defs, err := ds.GetLabelDefinitions(id)
	require.NoError(t, err)
	assert.Empty(t, defs)

	total, _, err := ds.CountSamples(id)
	require.NoError(t, err)
	assert.Zero(t, total)

	// Deleting again reports not-found, not success
	err = ds.DeleteDataset(idStr)
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateSampleLabelsReplaces(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	id := seedDataset(t, ds, 1)

	samples, _, err := ds.GetSamples(id, 0, 10, nil)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	sampleID := fmt.Sprintf("%d", samples[0].ID)

	first := labels.Assignment{"toxic": 1, "sentiment": 0.5}
	require.NoError(t, ds.UpdateSampleLabels(id, sampleID, first, nil))

	// Applying a different assignment replaces, never merges
	second := labels.Assignment{"sentiment": -1}
	require.NoError(t, ds.UpdateSampleLabels(id, sampleID, second, nil))

	sample, err := ds.GetSample(id, sampleID)
	require.NoError(t, err)
	assert.Equal(t, second, sample.Labels)
	assert.NotContains(t, sample.Labels, "toxic")

	// Idempotent replace: applying the same assignment twice yields the same mapping
	require.NoError(t, ds.UpdateSampleLabels(id, sampleID, second, nil))
	sample, err = ds.GetSample(id, sampleID)
	require.NoError(t, err)
	assert.Equal(t, second, sample.Labels)
}

func TestUpdateSampleLabelsSaveForLater(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	id := seedDataset(t, ds, 1)
	samples, _, err := ds.GetSamples(id, 0, 1, nil)
	require.NoError(t, err)
	sampleID := fmt.Sprintf("%d", samples[0].ID)

	later := true
	require.NoError(t, ds.UpdateSampleLabels(id, sampleID, labels.Assignment{"toxic": 0}, &later))

	sample, err := ds.GetSample(id, sampleID)
	require.NoError(t, err)
	assert.True(t, sample.SaveForLater)
}

func TestUpdateSampleLabelsScopedToDataset(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	first := seedDataset(t, ds, 1)
	second := seedDataset(t, ds, 1)

	samples, _, err := ds.GetSamples(first, 0, 1, nil)
	require.NoError(t, err)
	sampleID := fmt.Sprintf("%d", samples[0].ID)

	// A sample id from another dataset is not reachable
	err = ds.UpdateSampleLabels(second, sampleID, labels.Assignment{"toxic": 1}, nil)
	assert.True(t, errors.IsNotFound(err))
}

func TestGetSamplesPagination(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	id := seedDataset(t, ds, 10)

	page, total, err := ds.GetSamples(id, 0, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
	require.Len(t, page, 4)

	lastPage, total, err := ds.GetSamples(id, 8, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
	assert.Len(t, lastPage, 2)

	// Insertion order is stable across calls
	again, _, err := ds.GetSamples(id, 0, 4, nil)
	require.NoError(t, err)
	for i := range page {
		assert.Equal(t, page[i].ID, again[i].ID)
	}
	assert.Equal(t, "r-1", page[0].OriginalID)
}

func TestGetSamplesLabeledFilter(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	id := seedDataset(t, ds, 4)
	samples, _, err := ds.GetSamples(id, 0, 10, nil)
	require.NoError(t, err)

	// Label the first sample only; an empty assignment still counts as labeled
	require.NoError(t, ds.UpdateSampleLabels(id, fmt.Sprintf("%d", samples[0].ID), labels.Assignment{"toxic": 1}, nil))
	require.NoError(t, ds.UpdateSampleLabels(id, fmt.Sprintf("%d", samples[1].ID), labels.Assignment{}, nil))

	labeledOnly := true
	page, total, err := ds.GetSamples(id, 0, 10, &labeledOnly)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "filter applies before pagination")
	assert.Len(t, page, 2)

	unlabeledOnly := false
	page, total, err = ds.GetSamples(id, 0, 10, &unlabeledOnly)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, page, 2)
	for i := range page {
		assert.Nil(t, page[i].Labels)
	}

	total, labeled, err := ds.CountSamples(id)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Equal(t, int64(2), labeled)
}

func TestGetLabeledSamplesForExport(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	id := seedDataset(t, ds, 3)
	samples, _, err := ds.GetSamples(id, 0, 10, nil)
	require.NoError(t, err)

	require.NoError(t, ds.UpdateSampleLabels(id, fmt.Sprintf("%d", samples[1].ID), labels.Assignment{"toxic": 0}, nil))

	exported, err := ds.GetLabeledSamples(id)
	require.NoError(t, err)
	require.Len(t, exported, 1)
	assert.Equal(t, samples[1].ID, exported[0].ID)
}

func TestSchemaForPreservesOrder(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	id := seedDataset(t, ds, 0)
	defs, err := ds.GetLabelDefinitions(id)
	require.NoError(t, err)

	schema := SchemaFor(id, defs)
	assert.Equal(t, []string{"toxic", "sentiment"}, schema.Names())
	assert.Equal(t, id, schema.DatasetID)

	def, ok := schema.Lookup("sentiment")
	require.True(t, ok)
	assert.Equal(t, labels.VariantNumerical, def.Variant)
	assert.Equal(t, -1.0, def.Minimum)
}
