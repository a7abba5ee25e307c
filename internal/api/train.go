// internal/api/train.go
package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dataforge-labs/dataforge/internal/ml"
	"github.com/dataforge-labs/dataforge/internal/storage"
)

// defaultRewardPayment is spent on the dataset's curve when a trained
// model clears the requested accuracy bar.
var defaultRewardPayment = big.NewInt(1_000_000)

// TrainAndReward downloads a stored dataset, trains a decision tree on
// it, optionally scores it against supplied test rows, and buys into the
// dataset's bonding curve when the model meets the requested accuracy.
func (h *Handler) TrainAndReward(w http.ResponseWriter, r *http.Request) {
	validationPath, err := h.parseTrainForm(w, r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if validationPath != "" {
		defer os.Remove(validationPath)
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		h.writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	ctx := r.Context()
	record, err := h.records.GetDataset(ctx, title)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "dataset not found: "+title)
			return
		}
		h.logger.Error("Failed to read dataset record", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to read dataset record")
		return
	}

	data, err := h.blobs.Download(ctx, record.FileID)
	if err != nil {
		h.logger.Error("Blob download failed",
			zap.String("file_id", record.FileID), zap.Error(err))
		h.writeError(w, http.StatusBadGateway, "failed to download dataset file")
		return
	}

	csvPath, err := h.stageTrainingFile(record.FileID, data)
	if err != nil {
		h.logger.Error("Failed to stage training file", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to store training file")
		return
	}

	hp := ml.Hyperparameters{
		MaxDepth:        formInt(r, "maxDepth"),
		MinSamplesLeaf:  formInt(r, "minSamplesLeaf"),
		MinSamplesSplit: formInt(r, "minSamplesSplit"),
		Criterion:       r.FormValue("criterion"),
	}
	modelInfo, err := h.trainer.TrainFromCSV(record.FileID, csvPath, hp)
	if err != nil {
		h.logger.Error("Training failed", zap.String("title", title), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "training failed: "+err.Error())
		return
	}

	resp := map[string]any{
		"success": true,
		"message": "File saved and model trained successfully",
		"dataset": map[string]any{
			"title":   record.Title,
			"file_id": record.FileID,
		},
		"model": modelInfo,
	}

	rows, rowsErr := h.testRows(r, validationPath)
	if rowsErr != nil {
		h.writeError(w, http.StatusBadRequest, rowsErr.Error())
		return
	}

	var prediction *ml.Prediction
	if len(rows) > 0 {
		prediction, err = h.trainer.Predict(record.FileID, rows)
		if err != nil {
			resp["prediction_error"] = err.Error()
		} else {
			resp["predictions"] = prediction
		}
	}

	desiredStr := strings.TrimSpace(r.FormValue("desired_accuracy"))
	if desiredStr == "" {
		h.writeJSON(w, http.StatusOK, resp)
		return
	}
	desired, err := strconv.ParseFloat(desiredStr, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "desired_accuracy must be a number")
		return
	}

	good := prediction != nil && prediction.Accuracy != nil && *prediction.Accuracy >= desired
	resp["good_prediction"] = good
	if !good {
		resp["success"] = false
		h.writeJSON(w, http.StatusOK, resp)
		return
	}

	curveRecord, err := h.records.GetCurve(ctx, title)
	if err != nil {
		h.logger.Error("No curve record for rewarded dataset",
			zap.String("title", title), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "no bonding curve recorded for dataset")
		return
	}

	payment := defaultRewardPayment
	if raw := strings.TrimSpace(r.FormValue("mockPaymentAmount")); raw != "" {
		p, ok := parseAmount(raw)
		if !ok || p.Sign() == 0 {
			h.writeError(w, http.StatusBadRequest, "mockPaymentAmount must be a positive integer")
			return
		}
		payment = p
	}

	buyResult, err := h.engine.Buy(ctx, curveRecord.Curve.CurveObjectID, payment)
	if err != nil {
		h.curveError(w, err)
		return
	}

	purchase := map[string]any{"transactionId": buyResult.Digest}
	if buyResult.Purchased != nil {
		purchase["tokensMinted"] = buyResult.Purchased.TokensMinted.String()
		purchase["paymentAmount"] = buyResult.Purchased.PaymentAmount.String()
	}
	if buyResult.Warning != "" {
		purchase["warning"] = buyResult.Warning
	}
	resp["purchase"] = purchase

	h.logger.Info("Model met accuracy target, curve purchase executed",
		zap.String("title", title),
		zap.Float64("desired_accuracy", desired),
		zap.Float64("accuracy", *prediction.Accuracy),
		zap.String("digest", buyResult.Digest))

	h.writeJSON(w, http.StatusOK, resp)
}

// parseTrainForm parses either flavor of request body and stages the
// optional validation_dataset file, returning its temp path.
func (h *Handler) parseTrainForm(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return "", errors.New("invalid form body")
		}
		return "", nil
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", errors.New("invalid multipart request")
	}
	file, header, err := r.FormFile("validation_dataset")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", errors.New("invalid validation_dataset file")
	}
	defer file.Close()
	path, _, err := h.saveTemp(file, header.Filename)
	if err != nil {
		h.logger.Error("Failed to stage validation file", zap.Error(err))
		return "", errors.New("failed to store validation_dataset")
	}
	return path, nil
}

// testRows collects prediction input rows, from the testData JSON field
// or, failing that, from the uploaded validation CSV.
func (h *Handler) testRows(r *http.Request, validationPath string) ([]map[string]any, error) {
	if raw := strings.TrimSpace(r.FormValue("testData")); raw != "" {
		var rows []map[string]any
		if err := json.Unmarshal([]byte(raw), &rows); err == nil {
			return rows, nil
		}
		var row map[string]any
		if err := json.Unmarshal([]byte(raw), &row); err == nil {
			return []map[string]any{row}, nil
		}
		return nil, errors.New("testData must be a JSON object or array of objects")
	}
	if validationPath == "" {
		return nil, nil
	}
	rows, err := ml.RowsFromCSV(validationPath)
	if err != nil {
		return nil, errors.New("invalid validation_dataset csv: " + err.Error())
	}
	return rows, nil
}

func (h *Handler) stageTrainingFile(fileID string, data []byte) (string, error) {
	dir := filepath.Join(h.dataDir, "trainingsets")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fileID+".csv")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func formInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	if err != nil {
		return 0
	}
	return v
}
