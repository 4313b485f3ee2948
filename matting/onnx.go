package matting

import (
	"context"
	"image"
	"os"
	"sync"

	"github.com/nvr-ai/go-icongen/images"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// ONNXConfig describes a salient-object segmentation model.
type ONNXConfig struct {
	// ModelPath is the path to the .onnx file, e.g. u2net.onnx.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// SharedLibraryPath locates the ONNX Runtime library. Empty uses
	// DefaultSharedLibraryPath.
	SharedLibraryPath string `json:"shared_library_path" yaml:"shared_library_path"`
	// InputName is the model's input tensor name.
	InputName string `json:"input_name" yaml:"input_name"`
	// OutputName is the model's first output tensor name.
	OutputName string `json:"output_name" yaml:"output_name"`
	// InputSize is the square input resolution.
	InputSize int `json:"input_size" yaml:"input_size"`
	// Provider selects the execution backend.
	Provider ExecutionProvider `json:"provider" yaml:"provider"`
	// DeviceID selects the GPU for CUDA.
	DeviceID int `json:"device_id" yaml:"device_id"`
	// IntraOpThreads parallelises work within graph nodes. 0 uses the default.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
	// InterOpThreads parallelises work across graph nodes. 0 uses the default.
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
}

// DefaultONNXConfig returns the tensor names and input size of the reference
// U^2-Net export.
func DefaultONNXConfig() ONNXConfig {
	return ONNXConfig{
		ModelPath:  "models/u2net.onnx",
		InputName:  "input.1",
		OutputName: "1959",
		InputSize:  320,
		Provider:   CPUExecutionProvider,
	}
}

// ONNXRemover runs a segmentation model. Run calls are serialised because the
// input and output tensors are reused.
type ONNXRemover struct {
	mu      sync.Mutex
	cfg     ONNXConfig
	logger  *zap.Logger
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

var envMu sync.Mutex

// initEnvironment initialises the process-wide ONNX Runtime environment once.
func initEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath)
	}

	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "error initializing ORT environment")
	}
	return nil
}

// NewONNXRemover loads the model and allocates its tensors.
//
// Arguments:
//   - cfg: The model configuration.
//   - logger: The logger, nil to discard.
//
// Returns:
//   - *ONNXRemover: The remover; Close releases its resources.
//   - error: ErrModelNotFound, or an error from ONNX Runtime.
func NewONNXRemover(cfg ONNXConfig, logger *zap.Logger) (*ONNXRemover, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	defaults := DefaultONNXConfig()
	if cfg.InputName == "" {
		cfg.InputName = defaults.InputName
	}
	if cfg.OutputName == "" {
		cfg.OutputName = defaults.OutputName
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = defaults.InputSize
	}
	if cfg.SharedLibraryPath == "" {
		cfg.SharedLibraryPath = DefaultSharedLibraryPath()
	}

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(ErrModelNotFound, "%s: %v", cfg.ModelPath, err)
	}
	if err := initEnvironment(cfg.SharedLibraryPath); err != nil {
		return nil, err
	}

	size := int64(cfg.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, size, size))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}

	options, err := newSessionOptions(cfg, logger)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session")
	}

	logger.Debug("loaded matting model",
		zap.String("model", cfg.ModelPath),
		zap.String("provider", string(cfg.Provider)),
		zap.Int("input_size", cfg.InputSize),
	)

	return &ONNXRemover{
		cfg:     cfg,
		logger:  logger,
		session: session,
		input:   input,
		output:  output,
	}, nil
}

// RemoveBackground runs the model on img and returns a matte with its
// dimensions.
func (r *ONNXRemover) RemoveBackground(ctx context.Context, img *images.Image) (*image.Gray, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil, ErrClosed
	}

	if err := FillTensor(img.NRGBA(), r.cfg.InputSize, r.input.GetData()); err != nil {
		return nil, errors.Wrap(err, "failed to prepare input")
	}
	if err := r.session.Run(); err != nil {
		return nil, errors.Wrap(err, "failed to run inference")
	}

	pred := make([]float32, len(r.output.GetData()))
	copy(pred, r.output.GetData())

	matte, err := MatteFromPrediction(pred, r.cfg.InputSize, img.Width, img.Height)
	if err != nil {
		return nil, errors.Wrap(err, "failed to process output")
	}
	return matte, nil
}

// Close releases the session and its tensors.
func (r *ONNXRemover) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.input != nil {
		r.input.Destroy()
		r.input = nil
	}
	if r.output != nil {
		r.output.Destroy()
		r.output = nil
	}
	if r.session != nil {
		err := r.session.Destroy()
		r.session = nil
		return err
	}
	return nil
}
