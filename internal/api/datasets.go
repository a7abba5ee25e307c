// internal/api/datasets.go
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dataforge-labs/dataforge/internal/storage"
)

type datasetMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Format      string   `json:"format"`
	Categories  []string `json:"categories"`
}

// UploadDataset accepts a multipart upload (file + metadata JSON), pushes
// the file to the blob store, creates a bonding curve for it and persists
// both records.
func (h *Handler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	var meta datasetMetadata
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid metadata JSON")
			return
		}
	}
	if meta.Title == "" {
		h.writeError(w, http.StatusBadRequest, "metadata.title is required")
		return
	}

	tmpPath, size, err := h.saveTemp(file, header.Filename)
	if err != nil {
		h.logger.Error("Failed to stage upload", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to store uploaded file")
		return
	}
	defer os.Remove(tmpPath)

	ctx := r.Context()
	info, err := h.blobs.Upload(ctx, tmpPath, header.Filename)
	if err != nil {
		h.logger.Error("Blob upload failed", zap.String("title", meta.Title), zap.Error(err))
		h.writeError(w, http.StatusBadGateway, "failed to upload file to storage")
		return
	}

	curveObjectID, err := h.engine.CreateCurve(ctx)
	if err != nil {
		h.logger.Error("Curve creation failed", zap.String("title", meta.Title), zap.Error(err))
		h.writeError(w, http.StatusBadGateway, "failed to create bonding curve")
		return
	}

	record := &storage.DatasetRecord{
		Title:            meta.Title,
		Description:      meta.Description,
		Format:           meta.Format,
		Categories:       meta.Categories,
		Size:             size,
		ChainID:          h.chainID,
		FileID:           info.ID,
		BlobID:           info.BlobID,
		BlobObjectID:     info.BlobObjectID,
		OriginalFilename: header.Filename,
		UploadDate:       time.Now().UTC(),
	}
	if err := h.records.SaveDataset(ctx, record); err != nil {
		h.logger.Error("Failed to persist dataset record", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to save dataset record")
		return
	}

	curveRecord := &storage.CurveRecord{
		Name:    meta.Title + " Token",
		Symbol:  tokenSymbol(meta.Title),
		ChainID: h.chainID,
		Curve:   h.engine.Reference(curveObjectID),
	}
	if err := h.records.SaveCurve(ctx, meta.Title, curveRecord); err != nil {
		h.logger.Error("Failed to persist curve record", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to save curve record")
		return
	}

	h.logger.Info("Dataset uploaded",
		zap.String("title", meta.Title),
		zap.String("file_id", info.ID),
		zap.String("curve_object_id", curveObjectID))

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Dataset uploaded successfully",
		"dataset": map[string]any{
			"id":          info.ID,
			"title":       meta.Title,
			"upload_date": record.UploadDate,
		},
	})
}

type datasetWithCurve struct {
	*storage.DatasetRecord
	BondingCurve *storage.CurveRecord `json:"bonding_curve"`
}

// ListDatasets returns every dataset record joined with its curve record.
// A dataset whose curve record is missing is still listed, with a null
// bonding_curve.
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.records.ListDatasets(ctx)
	if err != nil {
		h.logger.Error("Failed to list datasets", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to list datasets")
		return
	}

	out := make([]datasetWithCurve, 0, len(records))
	for _, rec := range records {
		entry := datasetWithCurve{DatasetRecord: rec}
		cr, err := h.records.GetCurve(ctx, rec.Title)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			h.logger.Error("Failed to read curve record",
				zap.String("title", rec.Title), zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "failed to read curve records")
			return
		}
		entry.BondingCurve = cr
		out = append(out, entry)
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"datasets": out})
}

// saveTemp copies an uploaded file into the staging directory and returns
// its path and size.
func (h *Handler) saveTemp(src io.Reader, origName string) (string, int64, error) {
	dir := filepath.Join(h.dataDir, "tmp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}
	path := filepath.Join(dir, uuid.NewString()+"-"+filepath.Base(origName))
	dst, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	size, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, err
	}
	return path, size, nil
}

// tokenSymbol derives a short ticker from a dataset title.
func tokenSymbol(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, title)
	if cleaned == "" {
		cleaned = "DAT"
	}
	if len(cleaned) > 3 {
		cleaned = cleaned[:3]
	}
	return strings.ToUpper(cleaned)
}
