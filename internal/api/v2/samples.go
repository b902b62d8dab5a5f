// internal/api/v2/samples.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/varity-app/lablr/internal/datastore"
	"github.com/varity-app/lablr/internal/errors"
	"github.com/varity-app/lablr/internal/ingest"
	"github.com/varity-app/lablr/internal/labels"
)

// Default page window for sample listings
const (
	defaultSampleOffset = 0
	defaultSampleLimit  = 1
)

// initSampleRoutes registers all sample-related API endpoints
func (c *Controller) initSampleRoutes() {
	c.Group.GET("/datasets/:id/samples", c.GetSamples)
	c.Group.POST("/datasets/:id/samples", c.UploadSamples)
	c.Group.GET("/datasets/:id/samples/:sampleId", c.GetSample)
	c.Group.PUT("/datasets/:id/samples/:sampleId", c.UpdateSample)
}

// SampleResponse represents a sample in API responses. Labels is null until
// the sample has been labeled; an explicitly empty assignment still counts as
// labeled and serializes as an empty object.
type SampleResponse struct {
	SampleID     uint              `json:"sample_id"`
	OriginalID   string            `json:"original_id"`
	Text         string            `json:"text"`
	Labels       labels.Assignment `json:"labels"`
	SaveForLater bool              `json:"save_for_later"`
}

// PaginationMetadata describes the page window of a sample listing.
// NextOffset is null once the window reaches the end of the collection.
type PaginationMetadata struct {
	Offset     int   `json:"offset"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	NextOffset *int  `json:"next_offset"`
}

// SamplesMetadata carries listing statistics alongside pagination
type SamplesMetadata struct {
	LabeledPercent float64            `json:"labeled_percent"`
	Pagination     PaginationMetadata `json:"pagination"`
}

// SamplesResponse is the paginated sample listing envelope
type SamplesResponse struct {
	Samples  []SampleResponse `json:"samples"`
	Metadata SamplesMetadata  `json:"metadata"`
}

// SampleUpdateRequest represents the request body for relabeling a sample.
// Labels replaces the sample's assignment wholesale. SaveForLater is only
// touched when present in the request.
type SampleUpdateRequest struct {
	Labels       labels.Assignment `json:"labels"`
	SaveForLater *bool             `json:"save_for_later"`
}

// UploadResponse reports the outcome of a CSV ingestion
type UploadResponse struct {
	Message string `json:"message"`
}

func sampleResponse(s *datastore.Sample) SampleResponse {
	return SampleResponse{
		SampleID:     s.ID,
		OriginalID:   s.OriginalID,
		Text:         s.Text,
		Labels:       s.Labels,
		SaveForLater: s.SaveForLater,
	}
}

// parsePagination reads offset/limit query parameters, falling back to a
// single-sample window suitable for one-at-a-time annotation
func parsePagination(ctx echo.Context) (offset, limit int, err error) {
	offset = defaultSampleOffset
	limit = defaultSampleLimit

	if raw := ctx.QueryParam("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, errors.Newf("invalid offset `%s`", raw).
				Component("api").
				Category(errors.CategoryValidation).
				Build()
		}
	}
	if raw := ctx.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, errors.Newf("invalid limit `%s`", raw).
				Component("api").
				Category(errors.CategoryValidation).
				Build()
		}
	}
	return offset, limit, nil
}

// parseLabeledFilter reads the optional tri-state labeled filter
func parseLabeledFilter(ctx echo.Context) (*bool, error) {
	raw := ctx.QueryParam("labeled")
	if raw == "" {
		return nil, nil
	}
	labeled, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.Newf("invalid labeled filter `%s`", raw).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	return &labeled, nil
}

// GetSamples returns a page of a dataset's samples with pagination and
// labeling statistics. The pagination total reflects the post-filter count;
// labeled_percent always covers the whole dataset.
func (c *Controller) GetSamples(ctx echo.Context) error {
	id := ctx.Param("id")
	dataset, err := c.DS.GetDataset(id)
	if err != nil {
		return c.HandleError(ctx, err, "Dataset not found", statusFromError(err))
	}

	offset, limit, err := parsePagination(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid pagination parameters", statusFromError(err))
	}

	labeled, err := parseLabeledFilter(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid labeled filter", statusFromError(err))
	}

	samples, total, err := c.DS.GetSamples(dataset.ID, offset, limit, labeled)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get samples", http.StatusInternalServerError)
	}

	percent, err := c.labeledPercent(dataset.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to compute statistics", http.StatusInternalServerError)
	}

	responses := make([]SampleResponse, 0, len(samples))
	for i := range samples {
		responses = append(responses, sampleResponse(&samples[i]))
	}

	var nextOffset *int
	if int64(offset+limit) < total {
		next := offset + limit
		nextOffset = &next
	}

	return ctx.JSON(http.StatusOK, SamplesResponse{
		Samples: responses,
		Metadata: SamplesMetadata{
			LabeledPercent: percent,
			Pagination: PaginationMetadata{
				Offset:     offset,
				Limit:      limit,
				Total:      total,
				NextOffset: nextOffset,
			},
		},
	})
}

// GetSample returns a single sample scoped to its dataset
func (c *Controller) GetSample(ctx echo.Context) error {
	id := ctx.Param("id")
	dataset, err := c.DS.GetDataset(id)
	if err != nil {
		return c.HandleError(ctx, err, "Dataset not found", statusFromError(err))
	}

	sample, err := c.DS.GetSample(dataset.ID, ctx.Param("sampleId"))
	if err != nil {
		return c.HandleError(ctx, err, "Sample not found", statusFromError(err))
	}

	return ctx.JSON(http.StatusOK, sampleResponse(&sample))
}

// UpdateSample replaces a sample's label assignment. The assignment is
// validated against the dataset's label definitions first, so a rejected
// update leaves the stored labels untouched.
func (c *Controller) UpdateSample(ctx echo.Context) error {
	id := ctx.Param("id")
	dataset, err := c.DS.GetDataset(id)
	if err != nil {
		return c.HandleError(ctx, err, "Dataset not found", statusFromError(err))
	}

	sampleID := ctx.Param("sampleId")
	if _, err := c.DS.GetSample(dataset.ID, sampleID); err != nil {
		return c.HandleError(ctx, err, "Sample not found", statusFromError(err))
	}

	req := &SampleUpdateRequest{}
	if err := ctx.Bind(req); err != nil {
		return c.HandleError(ctx, err, "Invalid request format", http.StatusBadRequest)
	}
	if req.Labels == nil {
		return c.HandleError(ctx, nil, "Missing labels", http.StatusBadRequest)
	}

	defs, err := c.DS.GetLabelDefinitions(dataset.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get label definitions", http.StatusInternalServerError)
	}

	if err := datastore.SchemaFor(dataset.ID, defs).Validate(req.Labels); err != nil {
		return c.HandleError(ctx, err, "Invalid label assignment", statusFromError(err))
	}

	if err := c.DS.UpdateSampleLabels(dataset.ID, sampleID, req.Labels, req.SaveForLater); err != nil {
		return c.HandleError(ctx, err, "Failed to update sample", statusFromError(err))
	}

	sample, err := c.DS.GetSample(dataset.ID, sampleID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get sample", statusFromError(err))
	}

	return ctx.JSON(http.StatusOK, sampleResponse(&sample))
}

// UploadSamples ingests a CSV file of raw samples into a dataset. The form
// must carry the file plus the names of the columns holding the external
// identifier and the text. All rows land in a single transaction.
func (c *Controller) UploadSamples(ctx echo.Context) error {
	id := ctx.Param("id")
	dataset, err := c.DS.GetDataset(id)
	if err != nil {
		return c.HandleError(ctx, err, "Dataset not found", statusFromError(err))
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return c.HandleError(ctx, err, "Missing file", http.StatusBadRequest)
	}

	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		uploadErr := errors.Newf("uploaded file `%s` must be a CSV file", fileHeader.Filename).
			Component("api").
			Category(errors.CategoryValidation).
			Context("filename", fileHeader.Filename).
			Build()
		return c.HandleError(ctx, uploadErr, "Unsupported file type", statusFromError(uploadErr))
	}

	idColumn := ctx.FormValue("id_field")
	textColumn := ctx.FormValue("text_field")
	if idColumn == "" || textColumn == "" {
		return c.HandleError(ctx, nil, "Missing id_field or text_field", http.StatusBadRequest)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read upload", http.StatusInternalServerError)
	}
	defer file.Close()

	records, err := ingest.Read(file, idColumn, textColumn)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to parse CSV", statusFromError(err))
	}

	samples := make([]datastore.Sample, 0, len(records))
	for _, record := range records {
		samples = append(samples, datastore.Sample{
			DatasetID:  dataset.ID,
			OriginalID: record.OriginalID,
			Text:       record.Text,
		})
	}

	if err := c.DS.CreateSamples(samples); err != nil {
		return c.HandleError(ctx, err, "Failed to create samples", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusCreated, UploadResponse{
		Message: fmt.Sprintf("Successfully created %d samples.", len(samples)),
	})
}
