package matting

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// ExecutionProvider selects the ONNX Runtime backend.
type ExecutionProvider string

const (
	// CPUExecutionProvider uses the default CPU backend.
	CPUExecutionProvider ExecutionProvider = "cpu"
	// CUDAExecutionProvider uses NVIDIA CUDA for GPU acceleration.
	CUDAExecutionProvider ExecutionProvider = "cuda"
	// CoreMLExecutionProvider uses Apple CoreML for macOS acceleration.
	CoreMLExecutionProvider ExecutionProvider = "coreml"
	// OpenVINOExecutionProvider uses Intel OpenVINO.
	OpenVINOExecutionProvider ExecutionProvider = "openvino"
)

// ParseExecutionProvider parses a provider name. An empty name selects the CPU.
func ParseExecutionProvider(s string) (ExecutionProvider, error) {
	switch p := ExecutionProvider(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return CPUExecutionProvider, nil
	case CPUExecutionProvider, CUDAExecutionProvider, CoreMLExecutionProvider, OpenVINOExecutionProvider:
		return p, nil
	default:
		return "", errors.Errorf("unknown execution provider %q", s)
	}
}

// SharedLibraryEnv names the environment variable that overrides the ONNX
// Runtime shared library location.
const SharedLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// DefaultSharedLibraryPath returns the ONNX Runtime library path for the
// current platform, honouring SharedLibraryEnv.
//
// Returns:
//   - string: The path to the shared library.
func DefaultSharedLibraryPath() string {
	if p := os.Getenv(SharedLibraryEnv); p != "" {
		return p
	}
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}

// newSessionOptions builds session options for the configured provider. An
// accelerator that cannot be enabled is logged and the session falls back to
// the CPU.
func newSessionOptions(cfg ONNXConfig, logger *zap.Logger) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session options")
	}

	// A value of 0 uses the default number of threads.
	if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "error setting intra-op threads")
	}
	if err := options.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "error setting inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "error setting graph optimization level")
	}

	switch cfg.Provider {
	case CoreMLExecutionProvider:
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			logger.Warn("failed to enable CoreML provider", zap.Error(err))
		}

	case OpenVINOExecutionProvider:
		if err := options.AppendExecutionProviderOpenVINO(map[string]string{
			"device_type": "CPU",
			"precision":   "FP32",
		}); err != nil {
			logger.Warn("failed to enable OpenVINO provider", zap.Error(err))
		}

	case CUDAExecutionProvider:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			logger.Warn("failed to create CUDA provider options", zap.Error(err))
			break
		}
		defer cuda.Destroy()

		if err := cuda.Update(map[string]string{
			"device_id": strconv.Itoa(cfg.DeviceID),
		}); err != nil {
			logger.Warn("failed to configure CUDA provider", zap.Error(err))
			break
		}
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			logger.Warn("failed to enable CUDA provider", zap.Error(err))
		}
	}

	return options, nil
}
