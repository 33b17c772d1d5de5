package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tvx/internal/notifications"
	"github.com/desertthunder/tvx/internal/push"
	"github.com/desertthunder/tvx/internal/repositories"
	"github.com/desertthunder/tvx/internal/services"
	"github.com/desertthunder/tvx/internal/session"
	"github.com/desertthunder/tvx/internal/shared"
	"github.com/desertthunder/tvx/internal/tasks"
	"github.com/desertthunder/tvx/internal/watch"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The backend stack is built lazily by [Runner.connect] so that commands like setup work without a database.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	db         *sql.DB

	client   *services.Client
	session  *session.Manager
	auth     *services.AuthService
	series   *services.SeriesGateway
	inbox    *notifications.Store
	push     *push.Manager
	jobs     *repositories.ExportJobRepository
	engine   *tasks.LibraryEngine
	watching *watch.Controller
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	DB         *sql.DB // Opened from Config.Database when nil
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.API.Timeout()}
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, seriesCommand, watchCommand, notificationsCommand,
		pushCommand, exportCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner. Must be called before [Runner.connect].
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// connect opens the local store and wires the backend stack, then restores the saved session.
//
// A failed session check is logged and leaves the stored session in place.
func (r *Runner) connect(ctx context.Context) error {
	if r.session != nil {
		return nil
	}

	if r.db == nil {
		db, err := shared.OpenStore(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		r.db = db
	}

	prefs := repositories.NewPreferenceRepository(r.db)
	devices := repositories.NewDeviceSubscriptionRepository(r.db)
	r.jobs = repositories.NewExportJobRepository(r.db)

	sessions := session.NewManager(repositories.NewSessionRepository(r.db), r.logger)
	r.client = services.NewClient(r.config.API.BaseURL, r.httpClient, sessions, r.logger)
	r.auth = services.NewAuthService(r.client, r.config.Auth.Google)
	r.series = services.NewSeriesGateway(r.client, services.NewLogNotifier(r.logger), r.logger)
	r.inbox = notifications.NewStore(services.NewNotificationService(r.client), r.logger)
	sessions.Bind(r.auth, r.inbox, r.series)
	r.session = sessions

	platform := push.NewDevicePlatform(r.config.Push, devices, prefs, push.IOPrompter{In: r.input, Out: r.output}, r.output)
	r.push = push.NewManager(platform, services.NewPushService(r.client), prefs, r.config.Push, r.logger)
	r.engine = tasks.NewLibraryEngine(r.series, r.client, r.jobs, r.logger)
	r.watching = watch.NewController(r.series, sessions, r.logger)

	switch _, err := sessions.Bootstrap(ctx); {
	case errors.Is(err, shared.ErrTokenExpired):
		r.logger.Warn("session expired, run 'tvx auth login' to sign in again")
	case err != nil:
		r.logger.Warn("could not verify session", "error", err)
	}
	return nil
}

// requireAuth connects and fails with [shared.ErrNotAuthenticated] when nobody is signed in.
func (r *Runner) requireAuth(ctx context.Context) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	if !r.session.IsAuthenticated() {
		return fmt.Errorf("%w: run 'tvx auth login' first", shared.ErrNotAuthenticated)
	}
	return nil
}

// Close releases the database handle.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
