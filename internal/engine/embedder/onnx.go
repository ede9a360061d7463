package embedder

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Only the first call has
// any effect.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// onnxSession runs a BERT-style encoder exported with one [batch, seq, hidden]
// output per encoder layer and returns the last few of them.
type onnxSession struct {
	session     *ort.DynamicAdvancedSession
	inputNames  []string
	outputNames []string // selected layers, shallowest first
	hiddenDim   int64
}

// newONNXSession loads modelPath and selects its last `layers` hidden-state
// outputs. An empty libPath means libonnxruntime.so next to the model.
func newONNXSession(modelPath, libPath string, layers, threads int) (*onnxSession, error) {
	if libPath == "" {
		libPath = filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	}
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	inputNames, err := validateInputs(inputs)
	if err != nil {
		return nil, err
	}
	outputNames, hiddenDim, err := selectLayers(outputs, layers)
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	if threads > 0 {
		opts.SetIntraOpNumThreads(threads)
	}
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}
	return &onnxSession{
		session:     session,
		inputNames:  inputNames,
		outputNames: outputNames,
		hiddenDim:   hiddenDim,
	}, nil
}

// validateInputs checks for the BERT-style inputs and returns them in feed
// order.
func validateInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	have := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		have[in.Name] = true
	}
	required := []string{"input_ids", "attention_mask", "token_type_ids"}
	for _, name := range required {
		if !have[name] {
			return nil, fmt.Errorf("onnx: model missing required input %q", name)
		}
	}
	return required, nil
}

var layerSuffix = regexp.MustCompile(`(\d+)$`)

// selectLayers picks the last k three-dimensional outputs. Outputs are ordered
// by the trailing number in their names, falling back to model order.
func selectLayers(outputs []ort.InputOutputInfo, k int) ([]string, int64, error) {
	type layer struct {
		name string
		num  int
		pos  int
		dim  int64
	}
	var layers []layer
	for i, out := range outputs {
		if len(out.Dimensions) != 3 {
			continue
		}
		l := layer{name: out.Name, num: -1, pos: i, dim: out.Dimensions[2]}
		if m := layerSuffix.FindStringSubmatch(out.Name); m != nil {
			l.num, _ = strconv.Atoi(m[1])
		}
		layers = append(layers, l)
	}
	if k <= 0 {
		return nil, 0, fmt.Errorf("onnx: layer count must be positive, got %d", k)
	}
	if len(layers) < k {
		return nil, 0, fmt.Errorf("onnx: want %d hidden-state outputs, model has %d", k, len(layers))
	}
	sort.SliceStable(layers, func(i, j int) bool {
		if layers[i].num != layers[j].num {
			return layers[i].num < layers[j].num
		}
		return layers[i].pos < layers[j].pos
	})

	chosen := layers[len(layers)-k:]
	names := make([]string, k)
	dim := chosen[0].dim
	for i, l := range chosen {
		if l.dim != dim || dim <= 0 {
			return nil, 0, fmt.Errorf("onnx: output %q has hidden size %d, want %d", l.name, l.dim, dim)
		}
		names[i] = l.name
	}
	return names, dim, nil
}

// infer runs the model on one padded batch and returns the selected layers'
// hidden states, each flat [size * seqLen * hiddenDim].
func (s *onnxSession) infer(b batch) ([][]float32, error) {
	shape := ort.NewShape(b.size, b.seqLen)
	feeds := [][]int64{b.inputIDs, b.attentionMask, b.tokenTypeIDs}

	inputs := make([]ort.Value, 0, len(feeds))
	defer func() {
		for _, v := range inputs {
			v.Destroy()
		}
	}()
	for i, data := range feeds {
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("onnx: failed to create %s tensor: %w", s.inputNames[i], err)
		}
		inputs = append(inputs, t)
	}

	outShape := ort.NewShape(b.size, b.seqLen, s.hiddenDim)
	outTensors := make([]*ort.Tensor[float32], 0, len(s.outputNames))
	outputs := make([]ort.Value, 0, len(s.outputNames))
	defer func() {
		for _, v := range outputs {
			v.Destroy()
		}
	}()
	for _, name := range s.outputNames {
		t, err := ort.NewEmptyTensor[float32](outShape)
		if err != nil {
			return nil, fmt.Errorf("onnx: failed to create %s tensor: %w", name, err)
		}
		outTensors = append(outTensors, t)
		outputs = append(outputs, t)
	}

	if err := s.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	// Copy out before the tensors are destroyed.
	result := make([][]float32, len(outTensors))
	for i, t := range outTensors {
		result[i] = append([]float32(nil), t.GetData()...)
	}
	return result, nil
}

func (s *onnxSession) close() error {
	return s.session.Destroy()
}
