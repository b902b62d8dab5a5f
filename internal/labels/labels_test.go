package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varity-app/lablr/internal/errors"
)

func testSchema() *Schema {
	return &Schema{
		DatasetID: 1,
		Definitions: []Definition{
			{Name: "toxic", Variant: VariantBoolean},
			{Name: "sentiment", Variant: VariantNumerical, Minimum: -1, Maximum: 1, Interval: 0.5},
		},
	}
}

func TestValidateBooleanVariant(t *testing.T) {
	t.Parallel()
	schema := testSchema()

	testCases := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"zero accepted", 0, false},
		{"one accepted", 1, false},
		{"float zero accepted", 0.0, false},
		{"half rejected", 0.5, true},
		{"negative rejected", -1, true},
		{"two rejected", 2, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := schema.Validate(Assignment{"toxic": tc.value})
			if tc.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.IsValidation(err), "expected a validation error")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNumericalBounds(t *testing.T) {
	t.Parallel()
	schema := testSchema()

	testCases := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"lower bound inclusive", -1, false},
		{"upper bound inclusive", 1, false},
		{"interior value", 0.33, false},
		{"below range", -1.01, true},
		{"above range", 1.01, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := schema.Validate(Assignment{"sentiment": tc.value})
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUnknownLabel(t *testing.T) {
	t.Parallel()
	schema := testSchema()

	err := schema.Validate(Assignment{"no_such_label": 1})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "no_such_label")
	assert.Contains(t, err.Error(), "dataset_id `1`")
}

func TestValidateRejectsWholeAssignment(t *testing.T) {
	t.Parallel()
	schema := testSchema()

	// One valid field does not rescue an assignment with an invalid one.
	err := schema.Validate(Assignment{"toxic": 1, "sentiment": 5})
	assert.Error(t, err)
}

func TestValidatePartialAssignment(t *testing.T) {
	t.Parallel()
	schema := testSchema()

	// A subset of the schema's labels is a valid assignment.
	assert.NoError(t, schema.Validate(Assignment{"sentiment": 0.5}))
	// So is an empty one.
	assert.NoError(t, schema.Validate(Assignment{}))
}

func TestValidateVariants(t *testing.T) {
	t.Parallel()

	valid := testSchema()
	assert.NoError(t, valid.ValidateVariants())

	invalid := &Schema{
		DatasetID: 2,
		Definitions: []Definition{
			{Name: "toxic", Variant: VariantBoolean},
			{Name: "mood", Variant: Variant("categorical")},
		},
	}
	err := invalid.ValidateVariants()
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "categorical")
}

func TestAssignmentValueNilVsEmpty(t *testing.T) {
	t.Parallel()

	// nil assignment stores as NULL
	var unlabeled Assignment
	v, err := unlabeled.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	// empty-but-present assignment stores as {}
	v, err = Assignment{}.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)
}

func TestAssignmentScanRoundTrip(t *testing.T) {
	t.Parallel()

	original := Assignment{"toxic": 1, "sentiment": -0.5}
	v, err := original.Value()
	require.NoError(t, err)

	var decoded Assignment
	require.NoError(t, decoded.Scan(v))
	assert.Equal(t, original, decoded)

	// NULL scans back to nil
	var fromNull Assignment
	require.NoError(t, fromNull.Scan(nil))
	assert.Nil(t, fromNull)
}

func TestSchemaNamesOrder(t *testing.T) {
	t.Parallel()
	schema := testSchema()
	assert.Equal(t, []string{"toxic", "sentiment"}, schema.Names())
}
