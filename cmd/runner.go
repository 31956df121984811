package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discover/internal/repositories"
	"github.com/desertthunder/discover/internal/services"
	"github.com/desertthunder/discover/internal/shared"
	"github.com/desertthunder/discover/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    *services.SpotifyService
	account    services.Account
	catalog    services.Catalog
	db         *sql.DB
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    *services.SpotifyService
	Account    services.Account // defaults to Spotify
	Catalog    services.Catalog // defaults to a client built from Config
	DB         *sql.DB          // opened from Config on first use when nil
	Logger     *log.Logger
	Output     io.Writer
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
	if opts.Account == nil && opts.Spotify != nil {
		opts.Account = opts.Spotify
	}
	if opts.Catalog == nil {
		opts.Catalog = services.NewCatalogServiceFromConfig(opts.Config.Catalog, opts.Logger)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		account:    opts.Account,
		catalog:    opts.Catalog,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, spotifyCommand, catalogCommand, recallCommand, playlistCommand, historyCommand, scheduleCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// saveTokens stores token in the config and, when the runner has a config path, on disk.
//
// Registered as the Spotify token refresh callback so refreshed tokens survive restarts.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}
	if token == nil {
		return fmt.Errorf("failed to update spotify configuration: %w: token cannot be nil", shared.ErrInvalidArgument)
	}

	r.config.Credentials.Spotify.Update(token)
	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.logger.Debug("saved refreshed token", "path", r.configPath)
	return nil
}

func (r *Runner) requireAccount() error {
	if r.account == nil {
		return fmt.Errorf("%w: Spotify service not initialized (run 'discover spotify auth')", shared.ErrServiceUnavailable)
	}
	return nil
}

func (r *Runner) requireSpotify() error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized (run 'discover spotify auth')", shared.ErrServiceUnavailable)
	}
	return nil
}

// database opens the configured database without migrating it.
func (r *Runner) database() (*sql.DB, error) {
	if r.db == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return nil, err
		}
		shared.ConfigureDatabase(db, r.config.Database)
		r.db = db
	}
	return r.db, nil
}

// store opens the run history, applying pending migrations first.
func (r *Runner) store() (*repositories.RecallRunRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	if err := shared.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return repositories.NewRecallRunRepository(db), nil
}

// Close releases the database, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// engine builds a recall engine from config and the command's --seed and --save flags.
func (r *Runner) engine(cmd *cli.Command) (*tasks.RecallEngine, error) {
	if err := r.requireAccount(); err != nil {
		return nil, err
	}

	opts := []tasks.EngineOption{tasks.WithLogger(r.logger)}
	if cmd.IsSet("seed") {
		opts = append(opts, tasks.WithSeed(cmd.Uint64("seed")))
	}
	if cmd.Bool("save") {
		repo, err := r.store()
		if err != nil {
			return nil, err
		}
		opts = append(opts, tasks.WithRecorder(repo))
	}

	return tasks.NewRecallEngineFromConfig(r.account, r.catalog, r.config, opts...)
}

// printProgress writes updates until progress is closed, then closes done.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	last := tasks.Phase(-1)
	for update := range progress {
		switch update.Phase {
		case tasks.RecallArtists:
			r.logger.Info(update.Message)
		case tasks.ResolveArtists, tasks.FetchAlbums, tasks.ExpandTracks:
			if update.Phase != last {
				r.logger.Info(update.Message)
			}
		case tasks.SearchTracks, tasks.AddTracks:
			r.logger.Debug(update.Message)
		case tasks.CreatePlaylist:
			r.logger.Info(update.Message)
		}
		last = update.Phase
	}
}

// withProgress runs fn with a progress channel drained to the logger.
func (r *Runner) withProgress(fn func(chan<- tasks.ProgressUpdate)) {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.printProgress(progress, done)

	fn(progress)
	close(progress)
	<-done
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

// emit writes a facade result as JSON when asJSON is set, otherwise through plain.
// A failed result becomes the returned error.
func emit[T any](r *Runner, res services.Result[T], asJSON, pretty bool, plain func(T)) error {
	if !res.Success() {
		return fmt.Errorf("%s: %w", res.Message, res.Err)
	}
	if asJSON {
		return r.writeJSON(res.Data, pretty)
	}
	if plain != nil {
		plain(res.Data)
	}
	if res.Message != "" {
		r.logger.Info(res.Message)
	}
	return nil
}
