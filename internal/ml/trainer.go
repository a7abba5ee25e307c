// internal/ml/trainer.go
package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ModelInfo is the persisted description of one trained model.
type ModelInfo struct {
	FileID          string          `json:"fileId"`
	Features        []string        `json:"features"`
	Target          string          `json:"target"`
	Hyperparameters Hyperparameters `json:"hyperparameters"`
	TrainedAt       time.Time       `json:"trainedAt"`
	NumExamples     int             `json:"numExamples"`
}

// RowPrediction is the outcome for one input row. Actual and Correct are
// present only when the input carried the target label.
type RowPrediction struct {
	Input      map[string]any `json:"input"`
	Prediction string         `json:"prediction"`
	Actual     string         `json:"actual,omitempty"`
	Correct    *bool          `json:"correct,omitempty"`
}

// Prediction aggregates per-row results; Accuracy is set when at least one
// input row was labeled.
type Prediction struct {
	Predictions        []RowPrediction `json:"predictions"`
	Accuracy           *float64        `json:"accuracy,omitempty"`
	CorrectPredictions int             `json:"correctPredictions,omitempty"`
	TotalWithLabels    int             `json:"totalWithLabels,omitempty"`
}

type trainedModel struct {
	root     *treeNode
	features []string
	target   string
}

// Trainer trains decision-tree classifiers on CSV training sets and keeps
// the trained models in memory, keyed by file id. Model descriptions are
// persisted as JSON next to the training data.
type Trainer struct {
	modelsDir string
	logger    *zap.Logger

	mu     sync.RWMutex
	models map[string]*trainedModel
}

// NewTrainer creates a trainer persisting model info under modelsDir.
func NewTrainer(modelsDir string, logger *zap.Logger) *Trainer {
	return &Trainer{
		modelsDir: modelsDir,
		logger:    logger.Named("ml"),
		models:    map[string]*trainedModel{},
	}
}

// TrainFromCSV trains a classifier on the CSV at csvPath. The last column
// is the target class, all other columns must be numeric features.
func (t *Trainer) TrainFromCSV(fileID, csvPath string, hp Hyperparameters) (*ModelInfo, error) {
	hp.normalize()

	ds, err := loadCSV(csvPath)
	if err != nil {
		return nil, err
	}

	root := buildTree(ds.X, ds.y, hp, 0)

	t.mu.Lock()
	t.models[fileID] = &trainedModel{root: root, features: ds.features, target: ds.target}
	t.mu.Unlock()

	info := &ModelInfo{
		FileID:          fileID,
		Features:        ds.features,
		Target:          ds.target,
		Hyperparameters: hp,
		TrainedAt:       time.Now().UTC(),
		NumExamples:     len(ds.X),
	}

	if err := t.saveInfo(info); err != nil {
		// The in-memory model is still usable; losing the info file is a
		// degradation, not a failure.
		t.logger.Warn("Failed to persist model info",
			zap.String("file_id", fileID), zap.Error(err))
	}

	t.logger.Info("Trained decision tree",
		zap.String("file_id", fileID),
		zap.Int("examples", info.NumExamples),
		zap.Strings("features", info.Features),
		zap.String("criterion", hp.Criterion))

	return info, nil
}

// Predict runs the trained model for fileID over the given rows. Rows that
// include the target column contribute to the accuracy figure.
func (t *Trainer) Predict(fileID string, rows []map[string]any) (*Prediction, error) {
	t.mu.RLock()
	model, ok := t.models[fileID]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no trained model for file id %s", fileID)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no input rows to predict")
	}

	result := &Prediction{}
	for _, row := range rows {
		sample := make([]float64, len(model.features))
		for i, feature := range model.features {
			raw, ok := row[feature]
			if !ok {
				return nil, fmt.Errorf("missing required feature %q", feature)
			}
			v, err := toFloat(raw)
			if err != nil {
				return nil, fmt.Errorf("feature %q: %w", feature, err)
			}
			sample[i] = v
		}

		rp := RowPrediction{Input: row, Prediction: model.root.predict(sample)}
		if actual, ok := row[model.target]; ok {
			rp.Actual = toLabel(actual)
			correct := rp.Prediction == rp.Actual
			rp.Correct = &correct
			result.TotalWithLabels++
			if correct {
				result.CorrectPredictions++
			}
		}
		result.Predictions = append(result.Predictions, rp)
	}

	if result.TotalWithLabels > 0 {
		accuracy := float64(result.CorrectPredictions) / float64(result.TotalWithLabels)
		result.Accuracy = &accuracy
	}
	return result, nil
}

func (t *Trainer) saveInfo(info *ModelInfo) error {
	if err := os.MkdirAll(t.modelsDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(t.modelsDir, info.FileID+"_info.json"), data, 0o644)
}

func toFloat(v any) (float64, error) {
	switch value := v.(type) {
	case float64:
		return value, nil
	case json.Number:
		return value.Float64()
	case string:
		return strconv.ParseFloat(value, 64)
	case int:
		return float64(value), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}

// toLabel normalizes an input label to the string form used by the CSV
// loader so numeric labels compare equal regardless of JSON type.
func toLabel(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
