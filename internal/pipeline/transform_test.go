package pipeline_test

import (
	"testing"

	"github.com/couchcryptid/casemap-service/internal/domain"
	"github.com/couchcryptid/casemap-service/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformer_Transform(t *testing.T) {
	tfm := pipeline.NewTransformer(newDirectory(t), discardLogger())

	snap, err := tfm.Transform(slice("2020-03-15", 10).body)
	require.NoError(t, err)

	assert.Equal(t, "2020-03-15", snap.Date)
	assert.Equal(t, domain.AggregateBucket{Total: 15, New: 1}, snap.Province["Lombardy"])
	assert.Equal(t, 1, snap.Unresolved)
}

func TestTransformer_ParseError(t *testing.T) {
	tfm := pipeline.NewTransformer(newDirectory(t), discardLogger())

	_, err := tfm.Transform([]byte(`{"date":"2020-03-15"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestTransformer_NilResolver(t *testing.T) {
	tfm := pipeline.NewTransformer(nil, discardLogger())

	snap, err := tfm.Transform(slice("2020-03-15", 10).body)
	require.NoError(t, err)
	assert.Empty(t, snap.Atomic)
	assert.Equal(t, 3, snap.Unresolved)
}
