package checkpoints

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ulikunitz/xz"
)

// CheckpointFormat defines the serialization format
type CheckpointFormat int

const (
	FormatJSON CheckpointFormat = iota
	FormatJSONXZ
)

func (cf CheckpointFormat) String() string {
	switch cf {
	case FormatJSON:
		return "JSON"
	case FormatJSONXZ:
		return "JSON+XZ"
	default:
		return "Unknown"
	}
}

// Checkpoint represents a complete model state including weights, optimizer
// state, and training metadata. RunID ties every checkpoint of one training
// run together.
type Checkpoint struct {
	RunID   string         `json:"run_id"`
	Weights []WeightTensor `json:"weights"`

	TrainingState TrainingState `json:"training_state"`

	// Optimizer state (if available)
	OptimizerState *OptimizerState `json:"optimizer_state,omitempty"`

	Metadata CheckpointMetadata `json:"metadata"`
}

// WeightTensor represents a model parameter tensor with its data
type WeightTensor struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
	Layer string    `json:"layer"`
	Type  string    `json:"type"` // "weight", "bias", "gamma", "beta", etc.
}

// TrainingState captures the current training progress
type TrainingState struct {
	Epoch        int     `json:"epoch"`
	LearningRate float64 `json:"learning_rate"`
	BestLoss     float64 `json:"best_loss"`
	BestMetric   float64 `json:"best_metric"`
}

// OptimizerState captures optimizer-specific state (momentum, variance, etc.)
type OptimizerState struct {
	Type       string                 `json:"type"` // "SGD", "Adam", etc.
	Parameters map[string]interface{} `json:"parameters"`
	StateData  []OptimizerTensor      `json:"state_data"`
}

// OptimizerTensor represents optimizer state tensors (momentum, variance, etc.)
type OptimizerTensor struct {
	Name      string    `json:"name"`
	Shape     []int     `json:"shape"`
	Data      []float32 `json:"data"`
	StateType string    `json:"state_type"` // "momentum", "variance", "m", "v", etc.
}

// CheckpointMetadata contains checkpoint metadata
type CheckpointMetadata struct {
	Version     string    `json:"version"`
	Framework   string    `json:"framework"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

// NewCheckpoint creates a checkpoint skeleton with a fresh run ID and
// populated metadata. Callers fill in weights and state before saving.
func NewCheckpoint(description string) *Checkpoint {
	return &Checkpoint{
		RunID: uuid.New().String(),
		Metadata: CheckpointMetadata{
			Version:     "1.0",
			Framework:   "biolearn",
			CreatedAt:   time.Now(),
			Description: description,
		},
	}
}

// WeightSource is anything that can export its parameters as named weight
// tensors, typically a model.
type WeightSource interface {
	Weights() []WeightTensor
}

// WeightLoader is the inverse of WeightSource: it restores exported weight
// tensors into a live model.
type WeightLoader interface {
	LoadWeights(weights []WeightTensor) error
}

// CheckpointSaver handles saving model checkpoints in various formats
type CheckpointSaver struct {
	format CheckpointFormat
}

// NewCheckpointSaver creates a new checkpoint saver for the specified format
func NewCheckpointSaver(format CheckpointFormat) *CheckpointSaver {
	return &CheckpointSaver{
		format: format,
	}
}

// SaveCheckpoint saves a complete model checkpoint
func (cs *CheckpointSaver) SaveCheckpoint(checkpoint *Checkpoint, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file: %v", err)
	}
	defer file.Close()

	switch cs.format {
	case FormatJSON:
		return writeJSON(checkpoint, file)
	case FormatJSONXZ:
		return writeJSONXZ(checkpoint, file)
	default:
		return fmt.Errorf("unsupported checkpoint format: %s", cs.format.String())
	}
}

// LoadCheckpoint loads a checkpoint from disk
func (cs *CheckpointSaver) LoadCheckpoint(path string) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file: %v", err)
	}
	defer file.Close()

	switch cs.format {
	case FormatJSON:
		return readJSON(file)
	case FormatJSONXZ:
		return readJSONXZ(file)
	default:
		return nil, fmt.Errorf("unsupported checkpoint format: %s", cs.format.String())
	}
}

func writeJSON(checkpoint *Checkpoint, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(checkpoint); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %v", err)
	}
	return nil
}

func writeJSONXZ(checkpoint *Checkpoint, w io.Writer) error {
	xw, err := xz.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create xz writer: %v", err)
	}
	if err := json.NewEncoder(xw).Encode(checkpoint); err != nil {
		xw.Close()
		return fmt.Errorf("failed to encode checkpoint: %v", err)
	}
	if err := xw.Close(); err != nil {
		return fmt.Errorf("failed to finish xz stream: %v", err)
	}
	return nil
}

func readJSON(r io.Reader) (*Checkpoint, error) {
	var checkpoint Checkpoint
	if err := json.NewDecoder(r).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %v", err)
	}
	return &checkpoint, nil
}

func readJSONXZ(r io.Reader) (*Checkpoint, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create xz reader: %v", err)
	}
	return readJSON(xr)
}
