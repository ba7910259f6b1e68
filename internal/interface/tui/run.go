package tui

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
)

// StatusSource publishes the reporter's status changes
type StatusSource interface {
	Subscribe(fn func(output.Status)) (cancel func())
}

// StateFollower re-loads the shared state and calls fn with external writes
type StateFollower interface {
	Follow(ctx context.Context, notify <-chan struct{}, poll time.Duration, fn func(workflow.State)) error
}

// Adopter accepts a state written by another surface
type Adopter interface {
	Adopt(st workflow.State)
}

// RunOptions wires the overlay to the application
type RunOptions struct {
	Model    Config
	Status   StatusSource
	Follower StateFollower
	Adopter  Adopter
	Notify   <-chan struct{}
	Poll     time.Duration

	// ProgramOptions are passed to tea.NewProgram after the defaults
	ProgramOptions []tea.ProgramOption
}

// Run shows the overlay until the user quits or ctx is done
func Run(ctx context.Context, opts RunOptions) error {
	if opts.Model.Context == nil {
		opts.Model.Context = ctx
	}

	programOpts := append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts.ProgramOptions...)
	p := tea.NewProgram(New(opts.Model), programOpts...)

	if opts.Status != nil {
		cancel := opts.Status.Subscribe(func(st output.Status) {
			p.Send(StatusMsg{Status: st})
		})
		defer cancel()
	}

	followCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if opts.Follower != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = opts.Follower.Follow(followCtx, opts.Notify, opts.Poll, func(st workflow.State) {
				if opts.Adopter != nil {
					opts.Adopter.Adopt(st)
				}
				p.Send(StateMsg{State: st})
			})
		}()
	}

	_, err := p.Run()
	stop()
	wg.Wait()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
