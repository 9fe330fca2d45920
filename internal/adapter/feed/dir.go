package feed

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/couchcryptid/casemap-service/internal/domain"
)

// DirFetcher reads the feed from a local mirror laid out like the upstream
// repository: d/latest.json, d/YYYY.MM.DD.json, location_info.data,
// countries.data, jhu.json, and latestCounts.json. Request tokens are ignored.
type DirFetcher struct {
	root string
}

// NewDirFetcher creates a fetcher rooted at dir.
func NewDirFetcher(dir string) *DirFetcher {
	return &DirFetcher{root: dir}
}

func (d *DirFetcher) FetchLatestSlice(_ context.Context, _ int64) ([]byte, error) {
	return d.read(KindLatest, "d", "latest.json")
}

func (d *DirFetcher) FetchSlice(_ context.Context, date string) ([]byte, error) {
	return d.read(KindSlice, "d", domain.SliceName(date))
}

func (d *DirFetcher) FetchLocations(_ context.Context) ([]byte, error) {
	return d.read(KindLocations, "location_info.data")
}

func (d *DirFetcher) FetchCountries(_ context.Context) ([]byte, error) {
	return d.read(KindCountries, "countries.data")
}

func (d *DirFetcher) FetchOverlay(_ context.Context, _ int64) ([]byte, error) {
	return d.read(KindOverlay, "jhu.json")
}

func (d *DirFetcher) FetchHeadline(_ context.Context, _ int64) ([]byte, error) {
	return d.read(KindHeadline, "latestCounts.json")
}

func (d *DirFetcher) read(kind string, elem ...string) ([]byte, error) {
	path := filepath.Join(append([]string{d.root}, elem...)...)
	body, err := os.ReadFile(path)
	switch {
	case err == nil:
		return body, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%s %s: %w", kind, path, domain.ErrNotFound)
	default:
		return nil, fmt.Errorf("%s %s: %w: %w", kind, path, domain.ErrUnavailable, err)
	}
}
