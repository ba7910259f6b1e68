package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
	getErr   error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func (f *fakeModels) Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &genai.Model{Name: model}, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{TotalTokenCount: 42},
	}
}

func TestGeminiGateway_Execute(t *testing.T) {
	fake := &fakeModels{resp: textResponse("<html></html>")}
	gw := newGeminiGateway(fake, "")

	resp, err := gw.Execute(context.Background(), output.AgentRequest{
		Prompt:      "make the header blue",
		Attachments: []output.Attachment{{MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}},
		Temperature: 0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, "<html></html>", resp.Output)
	assert.Equal(t, DefaultGeminiModel, resp.Model)
	assert.Equal(t, 42, resp.TokensUsed)

	assert.Equal(t, DefaultGeminiModel, fake.model)
	require.Len(t, fake.contents, 1)
	parts := fake.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/png", parts[0].InlineData.MIMEType)
	assert.Equal(t, "make the header blue", parts[1].Text)
	require.NotNil(t, fake.config)
	assert.InDelta(t, 0.2, *fake.config.Temperature, 0.0001)
}

func TestGeminiGateway_Errors(t *testing.T) {
	gw := newGeminiGateway(&fakeModels{err: errors.New("quota exceeded")}, "gemini-2.5-pro")
	_, err := gw.Execute(context.Background(), output.AgentRequest{Prompt: "x"})
	assert.ErrorContains(t, err, "quota exceeded")

	gw = newGeminiGateway(&fakeModels{resp: &genai.GenerateContentResponse{}}, "")
	_, err = gw.Execute(context.Background(), output.AgentRequest{Prompt: "x"})
	assert.ErrorContains(t, err, "no text")
}

func TestGeminiGateway_HealthCheck(t *testing.T) {
	assert.NoError(t, newGeminiGateway(&fakeModels{}, "").HealthCheck(context.Background()))
	assert.Error(t, newGeminiGateway(&fakeModels{getErr: errors.New("404")}, "").HealthCheck(context.Background()))
}

func TestNewGeminiGatewayRequiresKey(t *testing.T) {
	_, err := NewGeminiGateway(context.Background(), "", "")
	assert.Error(t, err)
}

func TestTemplateGateway(t *testing.T) {
	gw := NewTemplateGateway()

	resp, err := gw.Execute(context.Background(), output.AgentRequest{Prompt: "add a <search> bar"})
	require.NoError(t, err)
	assert.Contains(t, resp.Output, "<!DOCTYPE html>")
	assert.Contains(t, resp.Output, "add a &lt;search&gt; bar")
	assert.NoError(t, gw.HealthCheck(context.Background()))

	gw.Delay = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gw.Execute(ctx, output.AgentRequest{Prompt: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewAgentGateway(t *testing.T) {
	gw, err := NewAgentGateway(context.Background(), TypeTemplate, "", "")
	require.NoError(t, err)
	assert.IsType(t, &TemplateGateway{}, gw)

	_, err = NewAgentGateway(context.Background(), "claude", "", "")
	assert.Error(t, err)

	assert.Equal(t, TypeGemini, DefaultAgent("key"))
	assert.Equal(t, TypeTemplate, DefaultAgent(""))
}
