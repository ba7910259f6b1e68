package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/YoshitsuguKoike/align/internal/app"
	"github.com/YoshitsuguKoike/align/internal/application/port/output"
	"github.com/YoshitsuguKoike/align/internal/application/service"
	"github.com/YoshitsuguKoike/align/internal/domain/model"
	wf "github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
)

const tracerName = "github.com/YoshitsuguKoike/align/internal/application/usecase/workflow"

// Options tunes the controller
type Options struct {
	// GenerationTimeout bounds the generation call; zero disables the bound
	GenerationTimeout time.Duration

	// ProgressInterval, ProgressStep and ProgressCap shape the synthetic
	// progress shown while a mockup is generated. ProgressCap stays below 100.
	ProgressInterval time.Duration
	ProgressStep     int
	ProgressCap      int
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		GenerationTimeout: 2 * time.Minute,
		ProgressInterval:  500 * time.Millisecond,
		ProgressStep:      10,
		ProgressCap:       90,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.GenerationTimeout < 0 {
		o.GenerationTimeout = 0
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = d.ProgressInterval
	}
	if o.ProgressStep <= 0 {
		o.ProgressStep = d.ProgressStep
	}
	if o.ProgressCap <= 0 || o.ProgressCap >= 100 {
		o.ProgressCap = d.ProgressCap
	}
	return o
}

// UploadFile is a screenshot chosen by the user
type UploadFile struct {
	Filename string
	Content  []byte
}

// ExportHandle identifies one export of the current mockup
type ExportHandle struct {
	ID        string              `json:"id" yaml:"id"`
	MockupRef string              `json:"mockup_id" yaml:"mockup_id"`
	Format    output.ExportFormat `json:"format" yaml:"format"`
	Filename  string              `json:"filename" yaml:"filename"`
	MediaType string              `json:"media_type" yaml:"media_type"`
	URL       string              `json:"url,omitempty" yaml:"url,omitempty"`
	Content   []byte              `json:"-" yaml:"-"`
}

// Outcome is the result of Retry. Exactly one result field is set.
type Outcome struct {
	State  wf.State
	Upload *output.UploadResult
	Parse  *output.ParseResult
	Mockup *output.GenerateResult
	Export *ExportHandle
}

// flight tracks the step currently waiting on a collaborator
type flight struct {
	step    wf.Step
	callers int
}

type promptInput struct {
	imageRef    string
	description string
}

// Controller drives the mockup workflow for one surface. Every Run* method
// makes at most one collaborator call and applies its outcome to the state,
// which is written through to the shared store.
type Controller struct {
	sync     *service.Synchronizer
	collab   output.Collaborators
	reporter output.Reporter
	opts     Options
	tracer   trace.Tracer

	group singleflight.Group

	mu         sync.Mutex
	state      wf.State
	flight     *flight
	lastUpload *UploadFile
	lastPrompt *promptInput
	lastFormat output.ExportFormat
}

// NewController creates a controller starting from the initial state.
// Call Resume to pick up a saved workflow.
func NewController(syncer *service.Synchronizer, collab output.Collaborators, reporter output.Reporter, opts Options) *Controller {
	return &Controller{
		sync:     syncer,
		collab:   collab,
		reporter: reporter,
		opts:     opts.normalized(),
		tracer:   otel.Tracer(tracerName),
		state:    wf.New(),
	}
}

// Current returns the controller's view of the workflow state
func (c *Controller) Current() wf.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Resume loads the saved workflow state so an interrupted workflow continues
// at the step where it stopped.
func (c *Controller) Resume(ctx context.Context) (wf.State, error) {
	st, _, err := c.sync.Checkpoint(ctx)
	if err != nil {
		return c.Current(), err
	}
	c.Adopt(st)
	return st, nil
}

// Adopt replaces the controller's state with one written by another surface
func (c *Controller) Adopt(st wf.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st.Epoch() != c.state.Epoch() {
		c.lastUpload = nil
		c.lastPrompt = nil
	}
	c.state = st
}

// Reset returns the workflow to the initial state. It is allowed while a
// call is outstanding; that call's response is discarded when it arrives.
func (c *Controller) Reset(ctx context.Context) (wf.State, error) {
	c.mu.Lock()
	next, err := c.state.Apply(wf.Reset())
	if err != nil {
		c.mu.Unlock()
		return c.Current(), err
	}
	if c.flight != nil {
		app.GetLogger().Debug("reset while %s is in flight", c.flight.step)
	}
	c.state = next
	c.flight = nil
	c.lastUpload = nil
	c.lastPrompt = nil
	c.lastFormat = ""
	c.mu.Unlock()

	c.reporter.Clear()

	saved, err := c.sync.Commit(ctx, next)
	if err != nil {
		app.GetLogger().Error("persist reset: %v", err)
		return next, err
	}
	c.replaceIf(next, saved)
	return saved, nil
}

// RunUpload validates that file is an image, uploads it and advances to Prompt
func (c *Controller) RunUpload(ctx context.Context, file UploadFile) (*output.UploadResult, error) {
	contentType, err := imageContentType(file)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	cp := file
	c.lastUpload = &cp
	c.mu.Unlock()

	v, err := c.run(ctx, wf.StepUpload, "Uploading image...", func(ctx context.Context, _ wf.State) (wf.Event, interface{}, string, error) {
		res, err := c.collab.Upload.Upload(ctx, output.UploadRequest{
			Filename:    file.Filename,
			ContentType: contentType,
			Content:     file.Content,
		})
		if err != nil {
			return wf.Event{}, nil, "", err
		}
		if res == nil || strings.TrimSpace(res.ImageRef) == "" {
			return wf.Event{}, nil, "", errors.New("upload returned no image reference")
		}
		return wf.ImageUploaded(res.ImageRef), res, "Image uploaded", nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*output.UploadResult), nil
}

// RunPrompt sends the description for interpretation and advances to Generate.
// An empty imageRef means the image of the current state.
func (c *Controller) RunPrompt(ctx context.Context, imageRef, description string) (*output.ParseResult, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, wf.InvalidInput("description must not be empty")
	}

	c.mu.Lock()
	c.lastPrompt = &promptInput{imageRef: imageRef, description: description}
	c.mu.Unlock()

	v, err := c.run(ctx, wf.StepPrompt, "Analyzing description...", func(ctx context.Context, st wf.State) (wf.Event, interface{}, string, error) {
		ref := orDefault(imageRef, st.ImageRef())
		res, err := c.collab.Prompt.Parse(ctx, output.ParseRequest{ImageRef: ref, Description: description})
		if err != nil {
			return wf.Event{}, nil, "", err
		}
		if res == nil {
			return wf.Event{}, nil, "", errors.New("prompt parser returned no result")
		}
		msg := "Description analyzed"
		if res.Summary != "" {
			msg = res.Summary
		}
		return wf.DescriptionParsed(description, res.Requirements), res, msg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*output.ParseResult), nil
}

// RunGenerate asks for a mockup and advances to Export. Empty arguments fall
// back to the current state's inputs. Synthetic progress is reported while
// the collaborator works and reaches 100 only on success.
func (c *Controller) RunGenerate(ctx context.Context, imageRef, description string, requirements *wf.Requirements) (*output.GenerateResult, error) {
	v, err := c.run(ctx, wf.StepGenerate, "Generating mockup...", func(ctx context.Context, st wf.State) (wf.Event, interface{}, string, error) {
		req := output.GenerateRequest{
			ImageRef:     orDefault(imageRef, st.ImageRef()),
			Description:  orDefault(description, st.Description()),
			Requirements: requirements,
		}
		if req.Requirements == nil {
			req.Requirements = st.Requirements()
		}

		stop := c.startProgress()
		res, err := c.generate(ctx, req)
		stop()
		if err != nil {
			return wf.Event{}, nil, "", err
		}
		if res == nil || strings.TrimSpace(res.MockupRef) == "" || res.Content == "" {
			return wf.Event{}, nil, "", errors.New("generator returned an empty mockup")
		}
		return wf.MockupGenerated(res.MockupRef, res.Content), res, "Mockup generated", nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*output.GenerateResult), nil
}

func (c *Controller) generate(ctx context.Context, req output.GenerateRequest) (*output.GenerateResult, error) {
	if c.opts.GenerationTimeout <= 0 {
		return c.collab.Generate.Generate(ctx, req)
	}

	gctx, cancel := context.WithTimeout(ctx, c.opts.GenerationTimeout)
	defer cancel()

	res, err := c.collab.Generate.Generate(gctx, req)
	if err != nil && errors.Is(gctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("timed out after %s: %w", c.opts.GenerationTimeout, err)
	}
	return res, err
}

// RunExport requests a download of the current mockup in format (html or zip).
// A success only clears a previously recorded error, so it may be repeated.
func (c *Controller) RunExport(ctx context.Context, mockupRef, format string) (*ExportHandle, error) {
	f, ok := output.ParseExportFormat(strings.ToLower(strings.TrimSpace(format)))
	if !ok {
		return nil, wf.InvalidInput("unsupported export format %q (want html or zip)", format)
	}

	c.mu.Lock()
	c.lastFormat = f
	c.mu.Unlock()

	v, err := c.run(ctx, wf.StepExport, "Preparing export...", func(ctx context.Context, st wf.State) (wf.Event, interface{}, string, error) {
		ref := orDefault(mockupRef, st.MockupRef())
		res, err := c.collab.Export.Export(ctx, output.ExportRequest{MockupRef: ref, Format: f})
		if err != nil {
			return wf.Event{}, nil, "", err
		}
		if res == nil || (len(res.Content) == 0 && res.URL == "") {
			return wf.Event{}, nil, "", errors.New("export returned no content")
		}
		id := model.NewID(model.PrefixExport)
		handle := &ExportHandle{
			ID:        id,
			MockupRef: ref,
			Format:    f,
			Filename:  res.Filename,
			MediaType: orDefault(res.MediaType, f.MediaType()),
			URL:       res.URL,
			Content:   res.Content,
		}
		return wf.Exported(), handle, "Export ready: " + handle.Filename, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ExportHandle), nil
}

// Retry re-issues the request of the current step with the same inputs.
// Generate and Export take their inputs from the state; Upload and Prompt
// reuse the inputs of the last attempt made through this controller.
func (c *Controller) Retry(ctx context.Context) (*Outcome, error) {
	c.mu.Lock()
	st := c.state
	lastUpload, lastPrompt, lastFormat := c.lastUpload, c.lastPrompt, c.lastFormat
	c.mu.Unlock()

	out := &Outcome{}
	var err error
	switch st.Step() {
	case wf.StepUpload:
		if lastUpload == nil {
			return nil, wf.InvalidInput("no previous upload to retry")
		}
		out.Upload, err = c.RunUpload(ctx, *lastUpload)
	case wf.StepPrompt:
		if lastPrompt == nil {
			return nil, wf.InvalidInput("no previous description to retry")
		}
		out.Parse, err = c.RunPrompt(ctx, lastPrompt.imageRef, lastPrompt.description)
	case wf.StepGenerate:
		out.Mockup, err = c.RunGenerate(ctx, st.ImageRef(), st.Description(), st.Requirements())
	case wf.StepExport:
		if lastFormat == "" {
			lastFormat = output.ExportHTML
		}
		out.Export, err = c.RunExport(ctx, st.MockupRef(), string(lastFormat))
	}
	if err != nil {
		return nil, err
	}
	out.State = c.Current()
	return out, nil
}

// callFunc performs the collaborator call of a step. It returns the event to
// apply (zero Kind for none), the caller-facing result and a success message.
type callFunc func(ctx context.Context, st wf.State) (wf.Event, interface{}, string, error)

// run admits a call for step, joins an identical call already in flight and
// rejects calls for other steps while one is outstanding.
func (c *Controller) run(ctx context.Context, step wf.Step, loading string, call callFunc) (interface{}, error) {
	c.mu.Lock()
	if f := c.flight; f != nil && f.step != step {
		c.mu.Unlock()
		return nil, wf.NewError(wf.CodeBusy, fmt.Sprintf("%s is still in progress", f.step.Label()), nil)
	}
	if cur := c.state.Step(); cur != step {
		c.mu.Unlock()
		app.GetLogger().Debug("reject %s at step %s", step, cur)
		return nil, wf.NewError(wf.CodeInvalidTransition, fmt.Sprintf("%s is not the current step (%s)", step, cur), nil)
	}
	f := c.flight
	if f == nil {
		f = &flight{step: step}
		c.flight = f
	}
	f.callers++
	st := c.state
	c.mu.Unlock()

	defer c.leave(f)

	key := fmt.Sprintf("%d/%s", st.Epoch(), step)
	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		return c.execute(ctx, st, step, loading, call)
	})
	if shared {
		app.GetLogger().Debug("joined in-flight %s call", step)
	}
	return v, err
}

func (c *Controller) leave(f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.callers--
	if f.callers == 0 && c.flight == f {
		c.flight = nil
	}
}

func (c *Controller) execute(ctx context.Context, st wf.State, step wf.Step, loading string, call callFunc) (interface{}, error) {
	ctx, span := c.tracer.Start(ctx, "workflow."+string(step), trace.WithAttributes(
		attribute.String("align.surface", c.sync.Surface()),
		attribute.String("align.step", string(step)),
		attribute.Int64("align.epoch", st.Epoch()),
		attribute.Int64("align.revision", st.Revision()),
	))
	defer span.End()

	logger := app.GetLogger()
	c.reporter.Report(output.StatusLoading, loading)

	ev, result, success, callErr := call(ctx, st)
	if callErr != nil {
		werr := wf.NewError(wf.CollaboratorCode(step), failureMessage(step), callErr)
		span.RecordError(callErr)
		span.SetStatus(codes.Error, werr.Message)
		return nil, c.fail(ctx, st, werr)
	}

	c.mu.Lock()
	if stale := c.staleLocked(st, step); stale != nil {
		c.mu.Unlock()
		logger.Debug("discard %s response: %v", step, stale)
		span.SetAttributes(attribute.Bool("align.stale", true))
		return nil, stale
	}
	next, err := c.state.Apply(ev)
	if err != nil {
		c.mu.Unlock()
		werr := wf.NewError(wf.CollaboratorCode(step), failureMessage(step), err)
		span.SetStatus(codes.Error, werr.Message)
		return nil, c.fail(ctx, st, werr)
	}
	if next.Revision() == c.state.Revision() {
		c.mu.Unlock()
		c.reporter.Report(output.StatusSuccess, success)
		return result, nil
	}
	c.state = next
	c.mu.Unlock()

	if step == wf.StepGenerate {
		c.reporter.Progress(100)
	}

	saved, err := c.sync.Commit(ctx, next)
	if err != nil {
		logger.Error("persist %s: %v", step, err)
		span.RecordError(err)
		c.reporter.Report(output.StatusError, "Could not save progress: "+err.Error())
		return nil, err
	}
	c.replaceIf(next, saved)

	span.SetAttributes(attribute.String("align.next_step", string(next.Step())))
	logger.Info("%s completed, now at %s", step, next.Step())
	c.reporter.Report(output.StatusSuccess, success)
	return result, nil
}

// fail applies a Failed event for werr unless the state moved on meanwhile
func (c *Controller) fail(ctx context.Context, st wf.State, werr *wf.Error) error {
	logger := app.GetLogger()
	msg := fmt.Sprintf("%s: %v", werr.Message, werr.Cause)

	c.mu.Lock()
	if stale := c.staleLocked(st, st.Step()); stale != nil {
		c.mu.Unlock()
		logger.Debug("discard %s failure: %v (%s)", st.Step(), stale, msg)
		return stale
	}
	next, err := c.state.Apply(wf.Failed(msg))
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = next
	c.mu.Unlock()

	logger.Warn("%s", msg)
	c.reporter.Report(output.StatusError, msg)

	saved, err := c.sync.Commit(ctx, next)
	if err != nil {
		logger.Error("persist failure of %s: %v", st.Step(), err)
	} else {
		c.replaceIf(next, saved)
	}
	return werr
}

// staleLocked reports a response whose originating step or epoch no longer
// matches the current state. c.mu must be held.
func (c *Controller) staleLocked(origin wf.State, step wf.Step) error {
	if c.state.Epoch() != origin.Epoch() || c.state.Step() != step {
		return wf.NewError(wf.CodeInvalidTransition,
			fmt.Sprintf("stale %s response (epoch %d, now %d at %s)", step, origin.Epoch(), c.state.Epoch(), c.state.Step()), nil)
	}
	return nil
}

// replaceIf swaps in the writer-stamped state if nothing changed since prev
func (c *Controller) replaceIf(prev, saved wf.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Revision() == prev.Revision() && c.state.Epoch() == prev.Epoch() {
		c.state = saved
	}
}

// startProgress reports synthetic progress until the returned stop is called
func (c *Controller) startProgress() (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	c.reporter.Progress(0)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(c.opts.ProgressInterval)
		defer ticker.Stop()

		percent := 0
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if percent >= c.opts.ProgressCap {
					continue
				}
				percent += c.opts.ProgressStep
				if percent > c.opts.ProgressCap {
					percent = c.opts.ProgressCap
				}
				c.reporter.Progress(percent)
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

func failureMessage(step wf.Step) string {
	switch step {
	case wf.StepUpload:
		return "upload failed"
	case wf.StepPrompt:
		return "could not analyze description"
	case wf.StepGenerate:
		return "mockup generation failed"
	default:
		return "export failed"
	}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
