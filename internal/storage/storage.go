// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dataforge-labs/dataforge/internal/curve"
)

// ErrNotFound is returned when a dataset or curve record does not exist.
var ErrNotFound = errors.New("record not found")

// DatasetRecord is the persisted metadata of one uploaded dataset. The file
// itself lives in the remote blob store; only identifiers are kept here.
type DatasetRecord struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Format           string    `json:"format"`
	Categories       []string  `json:"categories"`
	Size             int64     `json:"size"`
	ChainID          int       `json:"chain_id"`
	FileID           string    `json:"file_id"`
	BlobID           string    `json:"blob_id"`
	BlobObjectID     string    `json:"blob_object_id"`
	OriginalFilename string    `json:"original_filename"`
	UploadDate       time.Time `json:"upload_date"`
}

// CurveRecord ties a dataset to its bonding curve on the ledger plus the
// token display metadata derived from the dataset title.
type CurveRecord struct {
	Name    string               `json:"name"`
	Symbol  string               `json:"symbol"`
	ChainID int                  `json:"chain_id"`
	Curve   curve.CurveReference `json:"curve"`
}

// Records is the persistence interface for dataset and curve metadata.
type Records interface {
	SaveDataset(ctx context.Context, record *DatasetRecord) error
	GetDataset(ctx context.Context, title string) (*DatasetRecord, error)
	ListDatasets(ctx context.Context) ([]*DatasetRecord, error)

	SaveCurve(ctx context.Context, title string, record *CurveRecord) error
	GetCurve(ctx context.Context, title string) (*CurveRecord, error)
}
