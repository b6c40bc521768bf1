package vision

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sort"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"
)

const (
	inputWidth  = 224
	inputHeight = 224
	channels    = 3
)

var (
	ErrModelUnavailable = errors.New("classifier model not loaded")
	ErrInvalidImage     = errors.New("invalid image")
)

// DefaultLabels are the 36 produce classes in the alphabetical order the
// model was trained with.
var DefaultLabels = []string{
	"apple", "banana", "beetroot", "bell pepper", "cabbage",
	"capsicum", "carrot", "cauliflower", "chilli pepper", "corn",
	"cucumber", "eggplant", "garlic", "ginger", "grapes",
	"jalepeno", "kiwi", "lemon", "lettuce", "mango",
	"onion", "orange", "paprika", "pear", "peas",
	"pineapple", "pomegranate", "potato", "raddish", "soy beans",
	"spinach", "sweetcorn", "sweetpotato", "tomato", "turnip",
	"watermelon",
}

// LabelScore holds a class label and its confidence.
type LabelScore struct {
	Label string  `json:"label"`
	Index int     `json:"index"`
	Score float32 `json:"score"`
}

type Result struct {
	Predictions map[string]float32 `json:"predictions"`
	Top         []LabelScore       `json:"top"`
}

// Classifier runs a produce classifier exported to ONNX. The session and its
// bound tensors are shared, so Classify serializes inference on mu.
type Classifier struct {
	mu sync.Mutex

	modelPath  string
	labelsPath string
	libPath    string
	topK       int

	labels  []string
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	nhwc    bool
	loaded  bool
}

func NewClassifier(modelPath, labelsPath, onnxLibPath string, topK int) *Classifier {
	if topK <= 0 {
		topK = 5
	}
	return &Classifier{
		modelPath:  modelPath,
		labelsPath: labelsPath,
		libPath:    onnxLibPath,
		topK:       topK,
		labels:     DefaultLabels,
	}
}

// Load opens the model. A failed load leaves the classifier unavailable but
// usable; every Classify call then returns ErrModelUnavailable.
func (c *Classifier) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}
	if c.modelPath == "" {
		return fmt.Errorf("%w: no model path configured", ErrModelUnavailable)
	}
	if _, err := os.Stat(c.modelPath); err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	if c.labelsPath != "" {
		labels, err := loadLabels(c.labelsPath)
		if err != nil {
			return fmt.Errorf("load labels: %w", err)
		}
		c.labels = labels
	}

	if c.libPath != "" {
		ort.SetSharedLibraryPath(c.libPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("onnx init environment: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(c.modelPath)
	if err != nil {
		return fmt.Errorf("onnx get input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return fmt.Errorf("onnx model has no inputs or outputs")
	}

	inputShape := fixBatch(inputs[0].Dimensions)
	nhwc, err := layoutOf(inputShape)
	if err != nil {
		return err
	}
	outputShape := fixBatch(outputs[0].Dimensions)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return fmt.Errorf("onnx new input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return fmt.Errorf("onnx new output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(c.modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		outputTensor.Destroy()
		inputTensor.Destroy()
		return fmt.Errorf("onnx new session: %w", err)
	}

	c.input = inputTensor
	c.output = outputTensor
	c.session = session
	c.nhwc = nhwc
	c.loaded = true
	return nil
}

func (c *Classifier) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Close releases the session and tensors.
func (c *Classifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return
	}
	c.session.Destroy()
	c.input.Destroy()
	c.output.Destroy()
	c.loaded = false
}

func (c *Classifier) Classify(imageData []byte) (*Result, error) {
	if !c.Loaded() {
		return nil, ErrModelUnavailable
	}
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	c.mu.Lock()
	if !c.loaded {
		c.mu.Unlock()
		return nil, ErrModelUnavailable
	}
	tensor := Preprocess(img, c.nhwc)
	in := c.input.GetData()
	if len(in) != len(tensor) {
		c.mu.Unlock()
		return nil, fmt.Errorf("input tensor size %d, preprocessed %d", len(in), len(tensor))
	}
	copy(in, tensor)
	if err := c.session.Run(); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	scores := append([]float32(nil), c.output.GetData()...)
	c.mu.Unlock()

	return Rank(c.labels, scores, c.topK), nil
}

// Rank pairs scores with labels by position and lists the k best. Scores past
// the label list are ignored.
func Rank(labels []string, scores []float32, k int) *Result {
	n := min(len(labels), len(scores))
	res := &Result{Predictions: make(map[string]float32, n)}
	ranked := make([]LabelScore, n)
	for i := 0; i < n; i++ {
		res.Predictions[labels[i]] = scores[i]
		ranked[i] = LabelScore{Label: labels[i], Index: i, Score: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	res.Top = ranked[:min(k, n)]
	return res
}

// Preprocess scales img to 224x224 RGB with bilinear filtering and maps each
// channel to [-1, 1]. The layout is [1,224,224,3] when nhwc, else [1,3,224,224].
func Preprocess(img image.Image, nhwc bool) []float32 {
	dst := image.NewRGBA(image.Rect(0, 0, inputWidth, inputHeight))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	const plane = inputWidth * inputHeight
	out := make([]float32, channels*plane)
	for y := 0; y < inputHeight; y++ {
		for x := 0; x < inputWidth; x++ {
			px := dst.RGBAAt(x, y)
			rgb := [channels]float32{scale(px.R), scale(px.G), scale(px.B)}
			idx := y*inputWidth + x
			for ch := 0; ch < channels; ch++ {
				if nhwc {
					out[idx*channels+ch] = rgb[ch]
				} else {
					out[ch*plane+idx] = rgb[ch]
				}
			}
		}
	}
	return out
}

func scale(v uint8) float32 {
	return float32(v)/127.5 - 1
}

func fixBatch(shape ort.Shape) ort.Shape {
	out := shape.Clone()
	for i := range out {
		if out[i] <= 0 {
			out[i] = 1
		}
	}
	return out
}

func layoutOf(shape ort.Shape) (nhwc bool, err error) {
	if len(shape) != 4 {
		return false, fmt.Errorf("unsupported input rank %d", len(shape))
	}
	switch {
	case shape[3] == channels:
		return true, nil
	case shape[1] == channels:
		return false, nil
	default:
		return false, fmt.Errorf("unsupported input shape %v", shape)
	}
}

func loadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var labels []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if label := strings.TrimSpace(sc.Text()); label != "" {
			labels = append(labels, label)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}
