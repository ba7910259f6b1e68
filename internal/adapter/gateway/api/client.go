package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
)

// DefaultTimeout bounds a single request when none is configured
const DefaultTimeout = 60 * time.Second

// Client talks to the mockup REST backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a REST client. A nil httpClient gets one with timeout.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", baseURL)
	}
	if httpClient == nil {
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}, nil
}

// Collaborators exposes the client through every workflow port
func (c *Client) Collaborators() output.Collaborators {
	return output.Collaborators{Upload: c, Prompt: c, Generate: c, Export: c}
}

// Upload posts the image as multipart field "file"
func (c *Client) Upload(ctx context.Context, req output.UploadRequest) (*output.UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	filename := filepath.Base(req.Filename)
	if filename == "." || filename == "/" {
		filename = "screenshot.png"
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": "file", "filename": filename}))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(req.Content); err != nil {
		return nil, fmt.Errorf("write multipart part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var res output.UploadResult
	if err := c.doJSON(httpReq, &res); err != nil {
		return nil, err
	}
	if res.ImageRef == "" {
		return nil, fmt.Errorf("upload response has no image_id")
	}
	res.PreviewURL = c.resolve(res.PreviewURL, c.ImageURL(res.ImageRef))
	return &res, nil
}

// Parse posts the description to /api/prompt
func (c *Client) Parse(ctx context.Context, req output.ParseRequest) (*output.ParseResult, error) {
	var res output.ParseResult
	if err := c.postJSON(ctx, "/api/prompt", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Generate posts to /api/generate
func (c *Client) Generate(ctx context.Context, req output.GenerateRequest) (*output.GenerateResult, error) {
	var res output.GenerateResult
	if err := c.postJSON(ctx, "/api/generate", req, &res); err != nil {
		return nil, err
	}
	if res.MockupRef == "" {
		return nil, fmt.Errorf("generate response has no mockup_id")
	}
	res.PreviewURL = c.resolve(res.PreviewURL, c.MockupPreviewURL(res.MockupRef))
	return &res, nil
}

// Mockup is a stored mockup as returned by /api/mockup/{id}
type Mockup struct {
	MockupRef string `json:"mockup_id"`
	Content   string `json:"html"`
	CreatedAt string `json:"created_at"`
	Status    string `json:"status"`
	Prompt    string `json:"prompt"`
}

// Mockup fetches a previously generated mockup
func (c *Client) Mockup(ctx context.Context, mockupRef string) (*Mockup, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/mockup/"+url.PathEscape(mockupRef), nil)
	if err != nil {
		return nil, err
	}
	var res Mockup
	if err := c.doJSON(httpReq, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// MockupPreview returns the rendered HTML of a mockup
func (c *Client) MockupPreview(ctx context.Context, mockupRef string) (string, error) {
	body, _, err := c.getRaw(ctx, c.MockupPreviewURL(mockupRef))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Image downloads an uploaded screenshot and its media type
func (c *Client) Image(ctx context.Context, imageRef string) ([]byte, string, error) {
	return c.getRaw(ctx, c.ImageURL(imageRef))
}

// MockupPreviewURL is the browser URL of a mockup preview
func (c *Client) MockupPreviewURL(mockupRef string) string {
	return c.baseURL + "/api/mockup/" + url.PathEscape(mockupRef) + "/preview"
}

// ImageURL is the browser URL of an uploaded screenshot
func (c *Client) ImageURL(imageRef string) string {
	return c.baseURL + "/api/image/" + url.PathEscape(imageRef)
}

// resolve makes a backend-relative URL absolute; an empty ref yields fallback
func (c *Client) resolve(ref, fallback string) string {
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func (c *Client) getRaw(ctx context.Context, endpoint string) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, "", decodeError(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s body: %w", httpReq.URL.Path, err)
	}
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		mt = http.DetectContentType(body)
	}
	return body, mt, nil
}

// Export downloads /api/export/{id}
func (c *Client) Export(ctx context.Context, req output.ExportRequest) (*output.ExportResult, error) {
	endpoint := fmt.Sprintf("%s/api/export/%s?%s", c.baseURL, url.PathEscape(req.MockupRef),
		url.Values{"format": {string(req.Format)}}.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, decodeError(resp)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read export body: %w", err)
	}

	result := &output.ExportResult{
		Filename:  fmt.Sprintf("mockup_%s.%s", req.MockupRef, req.Format),
		MediaType: req.Format.MediaType(),
		Content:   content,
	}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
		result.MediaType = mt
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		result.Filename = filepath.Base(params["filename"])
	}
	return result, nil
}

// HealthCheck calls /api/health and expects status "healthy"
func (c *Client) HealthCheck(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	var res struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(httpReq, &res); err != nil {
		return err
	}
	if res.Status != "healthy" {
		return fmt.Errorf("backend reports status %q", res.Status)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.doJSON(httpReq, out)
}

func (c *Client) doJSON(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

var (
	_ output.UploadGateway     = (*Client)(nil)
	_ output.PromptGateway     = (*Client)(nil)
	_ output.GenerationGateway = (*Client)(nil)
	_ output.ExportGateway     = (*Client)(nil)
	_ output.HealthChecker     = (*Client)(nil)
)
