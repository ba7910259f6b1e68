package local

import (
	"context"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
)

// Options configures the in-process collaborators
type Options struct {
	MaxUploadBytes int64
	PreviewBase    string
}

// New wires in-process collaborators over one storage gateway and agent
func New(storage output.StorageGateway, agent output.AgentGateway, opts Options) output.Collaborators {
	return output.Collaborators{
		Upload:   NewUploader(storage, opts.MaxUploadBytes, opts.PreviewBase),
		Prompt:   NewPromptParser(),
		Generate: NewGenerator(agent, storage),
		Export:   NewExporter(storage),
	}
}

// HealthCheck reports the agent's availability
func (g *Generator) HealthCheck(ctx context.Context) error {
	return g.agent.HealthCheck(ctx)
}

var _ output.HealthChecker = (*Generator)(nil)
