// Package onnx runs a local token-classification model exported to ONNX.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/matsen/refmatch/internal/extract"
)

// DefaultMaxSeqLen is the default number of model tokens per reference.
const DefaultMaxSeqLen = 512

// Config locates the model files.
type Config struct {
	// LibraryPath is the onnxruntime shared library.
	LibraryPath string

	// ModelPath is the exported token-classification model.
	ModelPath string

	// TokenizerPath is a HuggingFace tokenizer.json.
	TokenizerPath string

	// LabelsPath is the model's config.json holding id2label.
	LabelsPath string

	MaxSeqLen int
}

var (
	envOnce sync.Once
	envErr  error
)

// initEnvironment initializes the process-wide onnxruntime environment once.
func initEnvironment(libraryPath string) error {
	envOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if ort.IsInitialized() {
			return
		}
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// Probe checks that every configured file exists.
func Probe(cfg Config) error {
	files := map[string]string{
		"model":     cfg.ModelPath,
		"tokenizer": cfg.TokenizerPath,
		"labels":    cfg.LabelsPath,
	}
	if cfg.LibraryPath != "" {
		files["onnxruntime library"] = cfg.LibraryPath
	}
	for what, path := range files {
		if path == "" {
			return fmt.Errorf("%s path not configured", what)
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
	}
	return nil
}

// Classifier labels reference tokens with a local ONNX model.
// Calls are serialized; the session is not shared across goroutines.
type Classifier struct {
	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	tk        *tokenizer.Tokenizer
	labels    []string
	maxSeqLen int
}

// New loads the tokenizer, labels and model.
func New(cfg Config) (*Classifier, error) {
	if err := Probe(cfg); err != nil {
		return nil, err
	}
	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("initializing onnxruntime: %w", err)
	}

	labels, err := loadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask"}, []string{"logits"}, nil)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	maxSeqLen := cfg.MaxSeqLen
	if maxSeqLen <= 0 {
		maxSeqLen = DefaultMaxSeqLen
	}

	return &Classifier{
		session:   session,
		tk:        tk,
		labels:    labels,
		maxSeqLen: maxSeqLen,
	}, nil
}

// NewExtractor wraps a classifier in the generic token pipeline.
func NewExtractor(cfg Config) (extract.Extractor, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return extract.NewTokenPipeline("onnx", c, false), nil
}

// Classify runs the model over text and decodes BIO-tagged spans.
func (c *Classifier) Classify(ctx context.Context, text string) ([]extract.Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	enc, err := c.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("tokenizing: %w", err)
	}

	ids := enc.GetIds()
	mask := enc.GetAttentionMask()
	offsets := enc.GetOffsets()
	n := min(len(ids), c.maxSeqLen)
	if n == 0 {
		return nil, nil
	}

	logits, err := c.run(ids[:n], mask[:n])
	if err != nil {
		return nil, err
	}

	numLabels := len(c.labels)
	if len(logits) < n*numLabels {
		return nil, fmt.Errorf("model returned %d logits, want %d", len(logits), n*numLabels)
	}

	tokens := make([]token, 0, n)
	for i := 0; i < n; i++ {
		if i >= len(offsets) || len(offsets[i]) < 2 {
			continue
		}
		best, prob := softmaxArgmax(logits[i*numLabels : (i+1)*numLabels])
		tokens = append(tokens, token{
			Label: c.labels[best],
			Prob:  prob,
			Start: offsets[i][0],
			End:   offsets[i][1],
		})
	}

	return decodeBIO(text, tokens), nil
}

func (c *Classifier) run(ids, mask []int) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, errors.New("classifier is closed")
	}

	n := int64(len(ids))
	shape := ort.NewShape(1, n)

	idData := make([]int64, len(ids))
	maskData := make([]int64, len(ids))
	for i := range ids {
		idData[i] = int64(ids[i])
		maskData[i] = 1
		if i < len(mask) {
			maskData[i] = int64(mask[i])
		}
	}

	idTensor, err := ort.NewTensor(shape, idData)
	if err != nil {
		return nil, fmt.Errorf("creating input tensor: %w", err)
	}
	defer idTensor.Destroy()

	maskTensor, err := ort.NewTensor(shape, maskData)
	if err != nil {
		return nil, fmt.Errorf("creating mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, n, int64(len(c.labels))))
	if err != nil {
		return nil, fmt.Errorf("creating output tensor: %w", err)
	}
	defer out.Destroy()

	if err := c.session.Run([]ort.Value{idTensor, maskTensor}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("running model: %w", err)
	}

	logits := make([]float32, len(out.GetData()))
	copy(logits, out.GetData())
	return logits, nil
}

// Close releases the model session.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Destroy()
	c.session = nil
	return err
}
