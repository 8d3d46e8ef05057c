package loader

import (
	"context"

	"github.com/regtrace/lineage/pkg/common"
)

// SourceFile points at one submissions export that feeds a graph build.
// The actual bytes are retrieved through the associated SourceFileLoader,
// which may read from disk, S3, or any other backing store.
type SourceFile struct {
	ID     string
	Source common.SourceKind
	Path   string
	Loader SourceFileLoader
}

// GetText retrieves the raw content of the file using its Loader.
func (f *SourceFile) GetText(ctx context.Context) ([]byte, error) {
	return f.Loader.GetFileText(ctx, *f)
}

// SourceFileLoader defines the interface for loading the contents of a
// SourceFile. Implementations may load files from disk, cloud storage, or
// other sources.
type SourceFileLoader interface {
	GetFileText(ctx context.Context, file SourceFile) ([]byte, error)
}

// CacheKey identifies a file for loader-level caches. Two SourceFiles with
// the same ID and path share cached content.
func CacheKey(file SourceFile) string {
	return file.ID + "|" + file.Path
}
