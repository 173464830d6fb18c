package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJob(t *testing.T) {
	t.Run("PascalCaseFields", func(t *testing.T) {
		job, err := ParseJob([]byte(`{"message": {"ReportId": "r-1", "ImageUrl": "https://example.com/q.jpg"}}`))
		require.NoError(t, err)
		assert.Equal(t, "r-1", job.ReportID)
		assert.Equal(t, "https://example.com/q.jpg", job.ImageURL)
	})

	t.Run("CamelCaseFields", func(t *testing.T) {
		job, err := ParseJob([]byte(`{"message": {"reportId": "r-2", "imageUrl": "https://example.com/q.jpg"}}`))
		require.NoError(t, err)
		assert.Equal(t, "r-2", job.ReportID)
	})

	t.Run("NumericReportID", func(t *testing.T) {
		job, err := ParseJob([]byte(`{"message": {"reportId": 42, "imageUrl": "https://example.com/q.jpg"}}`))
		require.NoError(t, err)
		assert.Equal(t, "42", job.ReportID)
	})

	t.Run("MissingImageURL", func(t *testing.T) {
		_, err := ParseJob([]byte(`{"message": {"reportId": "r-3"}}`))
		assert.ErrorIs(t, err, ErrMalformedJob)
	})

	t.Run("MissingReportID", func(t *testing.T) {
		_, err := ParseJob([]byte(`{"message": {"imageUrl": "https://example.com/q.jpg"}}`))
		assert.ErrorIs(t, err, ErrMalformedJob)
	})

	t.Run("MissingEnvelope", func(t *testing.T) {
		_, err := ParseJob([]byte(`{"reportId": "r-4", "imageUrl": "u"}`))
		assert.ErrorIs(t, err, ErrMalformedJob)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		_, err := ParseJob([]byte(`{`))
		assert.ErrorIs(t, err, ErrMalformedJob)
	})
}
