package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varity-app/lablr/internal/errors"
)

func TestReadBasic(t *testing.T) {
	t.Parallel()

	input := "id,text,extra\n1,hello world,x\n2,second row,y\n"
	records, err := Read(strings.NewReader(input), "id", "text")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, Record{OriginalID: "1", Text: "hello world"}, records[0])
	assert.Equal(t, Record{OriginalID: "2", Text: "second row"}, records[1])
}

func TestReadPreservesFileOrder(t *testing.T) {
	t.Parallel()

	input := "id,text\nc,gamma\na,alpha\nb,beta\n"
	records, err := Read(strings.NewReader(input), "id", "text")
	require.NoError(t, err)

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.OriginalID
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestReadQuotedFields(t *testing.T) {
	t.Parallel()

	input := "id,text\n1,\"hello, world\"\n2,\"he said \"\"hi\"\"\"\n"
	records, err := Read(strings.NewReader(input), "id", "text")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "hello, world", records[0].Text)
	assert.Equal(t, `he said "hi"`, records[1].Text)
}

func TestReadSameColumnForIDAndText(t *testing.T) {
	t.Parallel()

	// A single-column dataset may use the same header field for both the
	// id and the text.
	input := "id,text\n1,hello\n2,world\n"
	records, err := Read(strings.NewReader(input), "id", "id")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, Record{OriginalID: "1", Text: "1"}, records[0])
	assert.Equal(t, Record{OriginalID: "2", Text: "2"}, records[1])
}

func TestReadMissingColumn(t *testing.T) {
	t.Parallel()

	input := "id,text\n1,hello\n"

	_, err := Read(strings.NewReader(input), "id_no_existo", "text")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "id_no_existo")
	// The failure names the available columns
	assert.Contains(t, err.Error(), "id")
	assert.Contains(t, err.Error(), "text")

	_, err = Read(strings.NewReader(input), "id", "body")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "body")
}

func TestReadInvalidUTF8(t *testing.T) {
	t.Parallel()

	input := "id,text\n1,\xff\xfe\n"
	_, err := Read(strings.NewReader(input), "id", "text")
	require.Error(t, err)
	assert.True(t, errors.IsMalformedData(err), "invalid encoding must be distinct from a missing column")
}

func TestReadEmptyFile(t *testing.T) {
	t.Parallel()

	_, err := Read(strings.NewReader(""), "id", "text")
	require.Error(t, err)
	assert.False(t, errors.IsValidation(err))
}

func TestReadDuplicateOriginalIDsAllowed(t *testing.T) {
	t.Parallel()

	input := "id,text\ndup,first\ndup,second\n"
	records, err := Read(strings.NewReader(input), "id", "text")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, records[0].OriginalID, records[1].OriginalID)
}

func TestReadHeaderOnly(t *testing.T) {
	t.Parallel()

	records, err := Read(strings.NewReader("id,text\n"), "id", "text")
	require.NoError(t, err)
	assert.Empty(t, records)
}
