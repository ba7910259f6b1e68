package cli

import (
	"context"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/align/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/align/internal/app"
	appconfig "github.com/YoshitsuguKoike/align/internal/app/config"
	"github.com/YoshitsuguKoike/align/internal/application/port/output"
	"github.com/YoshitsuguKoike/align/internal/application/service"
	usecase "github.com/YoshitsuguKoike/align/internal/application/usecase/workflow"
	"github.com/YoshitsuguKoike/align/internal/domain/repository"
)

// Runtime is the wired application a command runs against.
// It is satisfied by the DI container.
type Runtime interface {
	Config() appconfig.Config
	GetController() *usecase.Controller
	GetSynchronizer() *service.Synchronizer
	GetReporter() *presenter.StatusReporter
	GetPresenter() output.Presenter
	GetFs() afero.Fs
	GetJournal() *app.JournalWriter
	Notifier() repository.ChangeNotifier
	HealthCheck(ctx context.Context) error
}

// RuntimeProvider resolves the runtime once configuration has been loaded
type RuntimeProvider func() (Runtime, error)
