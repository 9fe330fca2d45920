package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/casemap-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirFetcher(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "d"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "d", "latest.json"), []byte("latest"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "d", "2020.03.14.json"), []byte("slice"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "countries.data"), []byte("IT:Italy"), 0o600))

	d := NewDirFetcher(root)
	ctx := context.Background()

	body, err := d.FetchLatestSlice(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, "latest", string(body))

	body, err = d.FetchSlice(ctx, "2020-03-14")
	require.NoError(t, err)
	assert.Equal(t, "slice", string(body))

	body, err = d.FetchCountries(ctx)
	require.NoError(t, err)
	assert.Equal(t, "IT:Italy", string(body))

	_, err = d.FetchSlice(ctx, "2020-03-13")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = d.FetchOverlay(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDirFetcher_Unreadable(t *testing.T) {
	root := t.TempDir()
	// A directory where a file is expected cannot be read as one.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "location_info.data"), 0o755))

	_, err := NewDirFetcher(root).FetchLocations(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}
