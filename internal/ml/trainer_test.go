package ml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// A linearly separable toy set: width <= 2.5 is "small", else "large".
const toyCSV = `length,width,class
1.0,1.0,small
1.5,2.0,small
2.0,1.5,small
2.5,2.4,small
5.0,3.0,large
5.5,4.0,large
6.0,3.5,large
6.5,4.5,large
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTrainFromCSV(t *testing.T) {
	trainer := NewTrainer(t.TempDir(), zap.NewNop())

	info, err := trainer.TrainFromCSV("f-1", writeCSV(t, toyCSV), Hyperparameters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"length", "width"}, info.Features)
	assert.Equal(t, "class", info.Target)
	assert.Equal(t, 8, info.NumExamples)
	// Defaults applied.
	assert.Equal(t, 5, info.Hyperparameters.MaxDepth)
	assert.Equal(t, CriterionGini, info.Hyperparameters.Criterion)
}

func TestTrainFromCSV_PersistsModelInfo(t *testing.T) {
	modelsDir := t.TempDir()
	trainer := NewTrainer(modelsDir, zap.NewNop())

	_, err := trainer.TrainFromCSV("f-1", writeCSV(t, toyCSV), Hyperparameters{})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(modelsDir, "f-1_info.json"))
	assert.NoError(t, err)
}

func TestPredict(t *testing.T) {
	trainer := NewTrainer(t.TempDir(), zap.NewNop())
	_, err := trainer.TrainFromCSV("f-1", writeCSV(t, toyCSV), Hyperparameters{})
	require.NoError(t, err)

	res, err := trainer.Predict("f-1", []map[string]any{
		{"length": 1.2, "width": 1.1},
		{"length": 6.1, "width": 4.2},
	})
	require.NoError(t, err)
	require.Len(t, res.Predictions, 2)
	assert.Equal(t, "small", res.Predictions[0].Prediction)
	assert.Equal(t, "large", res.Predictions[1].Prediction)
	assert.Nil(t, res.Accuracy, "unlabeled rows produce no accuracy")
}

func TestPredict_AccuracyFromLabeledRows(t *testing.T) {
	trainer := NewTrainer(t.TempDir(), zap.NewNop())
	_, err := trainer.TrainFromCSV("f-1", writeCSV(t, toyCSV), Hyperparameters{})
	require.NoError(t, err)

	res, err := trainer.Predict("f-1", []map[string]any{
		{"length": 1.2, "width": 1.1, "class": "small"},
		{"length": 6.1, "width": 4.2, "class": "large"},
		{"length": 5.9, "width": 3.9, "class": "small"}, // mislabeled on purpose
		{"length": 2.0, "width": 2.0},                   // unlabeled, excluded from accuracy
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalWithLabels)
	assert.Equal(t, 2, res.CorrectPredictions)
	require.NotNil(t, res.Accuracy)
	assert.InDelta(t, 2.0/3.0, *res.Accuracy, 1e-9)
}

func TestPredict_MissingFeature(t *testing.T) {
	trainer := NewTrainer(t.TempDir(), zap.NewNop())
	_, err := trainer.TrainFromCSV("f-1", writeCSV(t, toyCSV), Hyperparameters{})
	require.NoError(t, err)

	_, err = trainer.Predict("f-1", []map[string]any{{"length": 1.2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "width")
}

func TestPredict_UnknownModel(t *testing.T) {
	trainer := NewTrainer(t.TempDir(), zap.NewNop())
	_, err := trainer.Predict("nope", []map[string]any{{"length": 1.0}})
	assert.Error(t, err)
}

func TestTrainFromCSV_RejectsNonNumericFeatures(t *testing.T) {
	trainer := NewTrainer(t.TempDir(), zap.NewNop())
	_, err := trainer.TrainFromCSV("f-1", writeCSV(t, "a,b,class\nx,1,small\n"), Hyperparameters{})
	assert.Error(t, err)
}

func TestDepthOneStump(t *testing.T) {
	trainer := NewTrainer(t.TempDir(), zap.NewNop())
	_, err := trainer.TrainFromCSV("f-1", writeCSV(t, toyCSV), Hyperparameters{MaxDepth: 1})
	require.NoError(t, err)

	// Even a depth-1 stump separates this set.
	res, err := trainer.Predict("f-1", []map[string]any{
		{"length": 1.0, "width": 1.0, "class": "small"},
		{"length": 6.0, "width": 4.0, "class": "large"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Accuracy)
	assert.Equal(t, 1.0, *res.Accuracy)
}
