package presenter

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
)

// YAMLPresenter implements output.Presenter for YAML output
type YAMLPresenter struct {
	output io.Writer
}

// NewYAMLPresenter creates a new YAML presenter
func NewYAMLPresenter(output io.Writer) output.Presenter {
	return &YAMLPresenter{output: output}
}

// PresentSuccess presents a successful result as a YAML document
func (p *YAMLPresenter) PresentSuccess(message string, data interface{}) error {
	return p.encode(map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// PresentError presents an error as a YAML document
func (p *YAMLPresenter) PresentError(err error) error {
	doc := map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	}
	if code := errorCode(err); code != "" {
		doc["code"] = code
	}
	return p.encode(doc)
}

// PresentProgress presents progress information as a YAML document
func (p *YAMLPresenter) PresentProgress(message string, progress int, total int) error {
	return p.encode(map[string]interface{}{
		"type":     "progress",
		"message":  message,
		"progress": progress,
		"total":    total,
		"percent":  percentOf(progress, total),
	})
}

func (p *YAMLPresenter) encode(v interface{}) error {
	enc := yaml.NewEncoder(p.output)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
