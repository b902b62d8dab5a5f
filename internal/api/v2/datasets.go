// internal/api/v2/datasets.go
package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/varity-app/lablr/internal/datastore"
	"github.com/varity-app/lablr/internal/export"
	"github.com/varity-app/lablr/internal/labels"
)

// initDatasetRoutes registers all dataset-related API endpoints
func (c *Controller) initDatasetRoutes() {
	c.Group.GET("/datasets", c.GetDatasets)
	c.Group.POST("/datasets", c.CreateDataset)
	c.Group.GET("/datasets/:id", c.GetDataset)
	c.Group.DELETE("/datasets/:id", c.DeleteDataset)
	c.Group.GET("/datasets/:id/export", c.ExportDataset)
}

// LabelDefinitionRequest represents one label definition in a dataset
// creation request. Bounds are optional and default to the 0..1 range with a
// 0.5 step hint.
type LabelDefinitionRequest struct {
	Name     string   `json:"name"`
	Variant  string   `json:"variant"`
	Minimum  *float64 `json:"minimum,omitempty"`
	Maximum  *float64 `json:"maximum,omitempty"`
	Interval *float64 `json:"interval,omitempty"`
}

// LabelDefinitionResponse represents a label definition in API responses
type LabelDefinitionResponse struct {
	Name     string  `json:"name"`
	Variant  string  `json:"variant"`
	Minimum  float64 `json:"minimum"`
	Maximum  float64 `json:"maximum"`
	Interval float64 `json:"interval"`
}

// DatasetCreateRequest represents the request body for creating a dataset
type DatasetCreateRequest struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Labels      []LabelDefinitionRequest `json:"labels"`
}

// DatasetResponse represents a dataset in list responses
type DatasetResponse struct {
	DatasetID   uint   `json:"dataset_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// DatasetDetailResponse represents a single dataset with its schema and
// freshly computed labeling statistics
type DatasetDetailResponse struct {
	DatasetResponse
	Labels         []LabelDefinitionResponse `json:"labels"`
	LabeledPercent float64                   `json:"labeled_percent"`
}

func datasetResponse(ds *datastore.Dataset) DatasetResponse {
	return DatasetResponse{
		DatasetID:   ds.ID,
		Name:        ds.Name,
		Description: ds.Description,
		CreatedAt:   ds.CreatedAt.Format(time.RFC3339),
	}
}

func labelDefinitionResponses(defs []datastore.LabelDefinition) []LabelDefinitionResponse {
	responses := make([]LabelDefinitionResponse, 0, len(defs))
	for i := range defs {
		responses = append(responses, LabelDefinitionResponse{
			Name:     defs[i].Name,
			Variant:  string(defs[i].Variant),
			Minimum:  defs[i].Minimum,
			Maximum:  defs[i].Maximum,
			Interval: defs[i].Interval,
		})
	}
	return responses
}

// labeledPercent computes the fraction of a dataset's samples carrying a
// label assignment. A dataset with no samples counts as fully labeled.
func (c *Controller) labeledPercent(datasetID uint) (float64, error) {
	total, labeled, err := c.DS.CountSamples(datasetID)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 1.0, nil
	}
	return float64(labeled) / float64(total), nil
}

// GetDatasets returns all datasets
func (c *Controller) GetDatasets(ctx echo.Context) error {
	datasets, err := c.DS.GetAllDatasets()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get datasets", http.StatusInternalServerError)
	}

	responses := make([]DatasetResponse, 0, len(datasets))
	for i := range datasets {
		responses = append(responses, datasetResponse(&datasets[i]))
	}

	return ctx.JSON(http.StatusOK, responses)
}

// GetDataset returns a single dataset with its label schema and statistics
func (c *Controller) GetDataset(ctx echo.Context) error {
	id := ctx.Param("id")
	dataset, err := c.DS.GetDataset(id)
	if err != nil {
		return c.HandleError(ctx, err, "Dataset not found", statusFromError(err))
	}

	defs, err := c.DS.GetLabelDefinitions(dataset.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get label definitions", http.StatusInternalServerError)
	}

	percent, err := c.labeledPercent(dataset.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to compute statistics", http.StatusInternalServerError)
	}

	response := DatasetDetailResponse{
		DatasetResponse: datasetResponse(&dataset),
		Labels:          labelDefinitionResponses(defs),
		LabeledPercent:  percent,
	}

	return ctx.JSON(http.StatusOK, response)
}

// CreateDataset creates a dataset and its label definitions as a single unit.
// An unrecognized label variant rejects the whole creation before anything is
// written, so a failed creation leaves no partial dataset behind.
func (c *Controller) CreateDataset(ctx echo.Context) error {
	req := &DatasetCreateRequest{}
	if err := ctx.Bind(req); err != nil {
		return c.HandleError(ctx, err, "Invalid request format", http.StatusBadRequest)
	}

	if req.Name == "" {
		return c.HandleError(ctx, nil, "Missing dataset name", http.StatusBadRequest)
	}

	defs := make([]datastore.LabelDefinition, 0, len(req.Labels))
	schema := &labels.Schema{}
	for _, label := range req.Labels {
		def := datastore.LabelDefinition{
			Name:     label.Name,
			Variant:  labels.Variant(label.Variant),
			Minimum:  labels.DefaultMinimum,
			Maximum:  labels.DefaultMaximum,
			Interval: labels.DefaultInterval,
		}
		if label.Minimum != nil {
			def.Minimum = *label.Minimum
		}
		if label.Maximum != nil {
			def.Maximum = *label.Maximum
		}
		if label.Interval != nil {
			def.Interval = *label.Interval
		}
		defs = append(defs, def)
		schema.Definitions = append(schema.Definitions, def.Definition())
	}

	// Reject the whole creation before any row is written
	if err := schema.ValidateVariants(); err != nil {
		return c.HandleError(ctx, err, "Invalid label definition", statusFromError(err))
	}

	dataset := &datastore.Dataset{
		Name:        req.Name,
		Description: req.Description,
	}

	if err := c.DS.CreateDataset(dataset, defs, nil); err != nil {
		return c.HandleError(ctx, err, "Failed to create dataset", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusCreated, datasetResponse(dataset))
}

// DeleteDataset deletes a dataset and all its label definitions and samples
func (c *Controller) DeleteDataset(ctx echo.Context) error {
	id := ctx.Param("id")

	if err := c.DS.DeleteDataset(id); err != nil {
		return c.HandleError(ctx, err, "Failed to delete dataset", statusFromError(err))
	}

	return ctx.NoContent(http.StatusNoContent)
}

// ExportDataset renders a dataset's labeled samples as CSV
func (c *Controller) ExportDataset(ctx echo.Context) error {
	id := ctx.Param("id")
	dataset, err := c.DS.GetDataset(id)
	if err != nil {
		return c.HandleError(ctx, err, "Dataset not found", statusFromError(err))
	}

	defs, err := c.DS.GetLabelDefinitions(dataset.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get label definitions", http.StatusInternalServerError)
	}

	samples, err := c.DS.GetLabeledSamples(dataset.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get samples", http.StatusInternalServerError)
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, datastore.SchemaFor(dataset.ID, defs), samples); err != nil {
		return c.HandleError(ctx, err, "Failed to export dataset", http.StatusInternalServerError)
	}

	return ctx.Blob(http.StatusOK, "text/csv", buf.Bytes())
}
