package onnx

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// loadLabels reads id2label from a HuggingFace model config.json.
func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading label config: %w", err)
	}
	return parseLabels(data)
}

func parseLabels(data []byte) ([]string, error) {
	var cfg struct {
		ID2Label map[string]string `json:"id2label"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing label config: %w", err)
	}
	if len(cfg.ID2Label) == 0 {
		return nil, fmt.Errorf("label config has no id2label")
	}

	labels := make([]string, len(cfg.ID2Label))
	for k, v := range cfg.ID2Label {
		id, err := strconv.Atoi(k)
		if err != nil || id < 0 || id >= len(labels) {
			return nil, fmt.Errorf("label id %q out of range", k)
		}
		labels[id] = v
	}
	return labels, nil
}
