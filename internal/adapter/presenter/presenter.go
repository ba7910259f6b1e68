package presenter

import (
	"fmt"
	"io"
	"strings"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
)

// Output formats accepted by New
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// New returns the presenter for format, which is text, json or yaml
func New(format string, w io.Writer) (output.Presenter, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return NewCLIPresenter(w), nil
	case FormatJSON:
		return NewJSONPresenter(w), nil
	case FormatYAML:
		return NewYAMLPresenter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

func errorCode(err error) string {
	return workflow.CodeOf(err)
}

func percentOf(progress, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(progress) / float64(total) * 100
}
