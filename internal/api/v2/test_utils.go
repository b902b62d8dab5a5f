// test_utils.go: Package api provides shared test utilities for API v2 tests.

package api

import (
	"log"
	"os"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/varity-app/lablr/internal/conf"
	"github.com/varity-app/lablr/internal/datastore"
	"github.com/varity-app/lablr/internal/labels"
)

// MockDataStore implements the datastore.Interface for testing
// This is a shared implementation that can be used across all test files
type MockDataStore struct {
	mock.Mock
}

// Implement required methods of the datastore.Interface
func (m *MockDataStore) Open() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataStore) CreateDataset(dataset *datastore.Dataset, defs []datastore.LabelDefinition, samples []datastore.Sample) error {
	args := m.Called(dataset, defs, samples)
	return args.Error(0)
}

func (m *MockDataStore) GetAllDatasets() ([]datastore.Dataset, error) {
	args := m.Called()
	return args.Get(0).([]datastore.Dataset), args.Error(1)
}

func (m *MockDataStore) GetDataset(id string) (datastore.Dataset, error) {
	args := m.Called(id)
	return args.Get(0).(datastore.Dataset), args.Error(1)
}

func (m *MockDataStore) DeleteDataset(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockDataStore) GetLabelDefinitions(datasetID uint) ([]datastore.LabelDefinition, error) {
	args := m.Called(datasetID)
	return args.Get(0).([]datastore.LabelDefinition), args.Error(1)
}

func (m *MockDataStore) CreateSamples(samples []datastore.Sample) error {
	args := m.Called(samples)
	return args.Error(0)
}

func (m *MockDataStore) GetSamples(datasetID uint, offset, limit int, labeled *bool) ([]datastore.Sample, int64, error) {
	args := m.Called(datasetID, offset, limit, labeled)
	return args.Get(0).([]datastore.Sample), args.Get(1).(int64), args.Error(2)
}

func (m *MockDataStore) GetSample(datasetID uint, sampleID string) (datastore.Sample, error) {
	args := m.Called(datasetID, sampleID)
	return args.Get(0).(datastore.Sample), args.Error(1)
}

func (m *MockDataStore) UpdateSampleLabels(datasetID uint, sampleID string, assignment labels.Assignment, saveForLater *bool) error {
	args := m.Called(datasetID, sampleID, assignment, saveForLater)
	return args.Error(0)
}

func (m *MockDataStore) CountSamples(datasetID uint) (total, labeled int64, err error) {
	args := m.Called(datasetID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockDataStore) GetLabeledSamples(datasetID uint) ([]datastore.Sample, error) {
	args := m.Called(datasetID)
	return args.Get(0).([]datastore.Sample), args.Error(1)
}

// setupTestEnvironment creates a new Echo instance, a mock datastore and a
// controller wired together for handler tests
func setupTestEnvironment(t *testing.T) (*echo.Echo, *MockDataStore, *Controller) {
	t.Helper()

	// Create Echo instance
	e := echo.New()

	// Create mock datastore
	mockDS := new(MockDataStore)

	// Create settings
	settings := &conf.Settings{
		WebServer: conf.WebServerSettings{
			Debug: true,
		},
	}

	// Create a test logger
	logger := log.New(os.Stdout, "API TEST: ", log.LstdFlags)

	// Create API controller
	controller, err := New(e, mockDS, settings, logger)
	if err != nil {
		t.Fatalf("Failed to create test API controller: %v", err)
	}

	return e, mockDS, controller
}

// testSchema returns the label definitions used across handler tests: one
// boolean label and one numerical label on the -1..1 scale
func testSchema(datasetID uint) []datastore.LabelDefinition {
	return []datastore.LabelDefinition{
		{
			ID:        1,
			DatasetID: datasetID,
			Name:      "toxic",
			Variant:   labels.VariantBoolean,
			Minimum:   0,
			Maximum:   1,
			Interval:  1,
		},
		{
			ID:        2,
			DatasetID: datasetID,
			Name:      "sentiment",
			Variant:   labels.VariantNumerical,
			Minimum:   -1,
			Maximum:   1,
			Interval:  0.5,
		},
	}
}
