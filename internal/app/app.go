package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/rs/zerolog"

	"github.com/pepperpark/imapmigrator/internal/config"
	"github.com/pepperpark/imapmigrator/internal/imaputil"
	"github.com/pepperpark/imapmigrator/internal/logging"
	"github.com/pepperpark/imapmigrator/internal/mailbox"
	"github.com/pepperpark/imapmigrator/internal/metrics"
	"github.com/pepperpark/imapmigrator/internal/migrator"
	"github.com/pepperpark/imapmigrator/internal/report"
)

// AskSecret marks a CSV password that is typed in at startup when
// Config.PromptSecrets is set.
const AskSecret = "-"

// Options are the per-invocation choices made on the command line.
type Options struct {
	CSV       string
	Output    string
	Mailboxes []string

	ListOld bool
	ListNew bool
	Backup  bool
	Restore bool
}

// Ops returns the requested operations in the order they run.
func (o Options) Ops() []migrator.Op {
	var ops []migrator.Op
	if o.ListOld {
		ops = append(ops, migrator.OpListOld)
	}
	if o.ListNew {
		ops = append(ops, migrator.OpListNew)
	}
	if o.Backup {
		ops = append(ops, migrator.OpBackup)
	}
	if o.Restore {
		ops = append(ops, migrator.OpRestore)
	}
	return ops
}

// App wires configuration, logging and tool execution together.
type App struct {
	Log    zerolog.Logger
	Config *config.Config
	Exec   migrator.Executor
	RunID  string
	// Stdout receives folder lists from the native list backend.
	Stdout io.Writer
	// Prompt reads a secret without echo. Nil means no terminal is available.
	Prompt func(label string) (string, error)
	// OnEvent receives migrator progress events.
	OnEvent func(migrator.Event)
	Now     func() time.Time
}

// Summary holds the result of every operation that ran.
type Summary struct {
	ListOld *migrator.ListResult
	ListNew *migrator.ListResult
	Backup  *migrator.BackupResult
	Restore *migrator.RestoreResult
}

// LoadError is a fatal problem with the CSV file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Path, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// Run loads the migration set and executes the requested operations.
func (a *App) Run(ctx context.Context, opts Options) (*Summary, error) {
	set, err := a.Load(opts)
	if err != nil {
		return nil, err
	}
	return a.Execute(ctx, set, opts)
}

// Load reads the CSV file and, when enabled, resolves prompted secrets.
// Failures are logged at critical level.
func (a *App) Load(opts Options) (mailbox.Set, error) {
	set, err := mailbox.LoadFile(opts.CSV, mailbox.NewFilter(opts.Mailboxes))
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logging.Critical(&a.Log).Msgf("CSV file %q not found.", opts.CSV)
		case errors.Is(err, fs.ErrPermission):
			logging.Critical(&a.Log).Msgf("Access denied to CSV file %q", opts.CSV)
		default:
			logging.Critical(&a.Log).Err(err).Msgf("Could not read CSV file %q", opts.CSV)
		}
		return nil, &LoadError{Path: opts.CSV, Err: err}
	}
	if !a.Config.PromptSecrets {
		return set, nil
	}
	set, err = a.resolveSecrets(set)
	if err != nil {
		logging.Critical(&a.Log).Err(err).Msg("Could not read mailbox password")
		return nil, err
	}
	return set, nil
}

func (a *App) resolveSecrets(set mailbox.Set) (mailbox.Set, error) {
	cache := make(map[string]string)
	resolve := func(mb mailbox.Mailbox) (mailbox.Mailbox, error) {
		if mb.Password != AskSecret {
			return mb, nil
		}
		key := mb.Role.String() + "|" + mb.Username + "|" + mb.Host
		if pass, ok := cache[key]; ok {
			return mb.WithPassword(pass), nil
		}
		if a.Prompt == nil {
			return mb, fmt.Errorf("password for %s must be typed in but no terminal is available", mb)
		}
		pass, err := a.Prompt(fmt.Sprintf("Password for %s: ", mb))
		if err != nil {
			return mb, fmt.Errorf("read password for %s: %w", mb, err)
		}
		cache[key] = pass
		return mb.WithPassword(pass), nil
	}

	out := make(mailbox.Set, 0, len(set))
	for _, m := range set {
		var err error
		if m.Old, err = resolve(m.Old); err != nil {
			return nil, err
		}
		if m.New, err = resolve(m.New); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (a *App) lister() migrator.FolderLister {
	if a.Config.ListBackend != config.ListBackendIMAP {
		return nil
	}
	return &imaputil.Lister{
		StartTLS: a.Config.IMAP.StartTLS,
		Insecure: a.Config.IMAP.Insecure,
		Out:      a.Stdout,
	}
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Execute runs the requested operations over set, in fixed order. Mailbox
// failures are reported in the summary; the error only covers problems that
// stopped an operation or prevented writing the report or metrics.
func (a *App) Execute(ctx context.Context, set mailbox.Set, opts Options) (*Summary, error) {
	log := a.Log
	log.Debug().Array("migrations", set).Msg("Operating on following mailboxes")

	m := migrator.New(a.Exec, log, migrator.Options{
		Tools: migrator.Tools{
			Grab:          a.Config.Tools.Grab,
			Upload:        a.Config.Tools.Upload,
			UploadRetries: a.Config.Tools.UploadRetries,
		},
		Lister:  a.lister(),
		OnEvent: a.OnEvent,
	})
	rep := report.New(a.RunID, a.now())
	met := metrics.New()
	sum := &Summary{}
	var errs []error

	for _, op := range opts.Ops() {
		switch op {
		case migrator.OpListOld, migrator.OpListNew:
			role := mailbox.Source
			if op == migrator.OpListNew {
				role = mailbox.Destination
			}
			res := m.List(ctx, set, role)
			log.Debug().Array("mailboxes", mailbox.List(res.Succeeded)).Msg("Listing succeeded for following mailboxes")
			rep.AddList(op, res)
			met.ObserveList(op, res)
			if op == migrator.OpListOld {
				sum.ListOld = &res
			} else {
				sum.ListNew = &res
			}
			a.logSummary(op, len(res.Succeeded), len(res.Failed))

		case migrator.OpBackup:
			res, err := m.Backup(ctx, set, opts.Output)
			if err != nil {
				log.Error().Err(err).Msg("backup aborted")
				errs = append(errs, err)
			}
			log.Debug().Array("mailboxes", mailbox.List(res.Succeeded)).Msg("Successfully backed up following mailboxes")
			rep.AddBackup(res)
			met.ObserveBackup(res)
			sum.Backup = &res
			a.logSummary(op, len(res.Succeeded), len(res.Failed))

		case migrator.OpRestore:
			res := m.Restore(ctx, set, opts.Output)
			log.Debug().Array("migrations", mailbox.Set(res.Succeeded)).Msg("Successfully ran following mailbox migrations")
			rep.AddRestore(res)
			met.ObserveRestore(res)
			sum.Restore = &res
			a.logSummary(op, len(res.Succeeded), len(res.Failed))
		}
	}

	if err := rep.Save(a.Config.ReportFile, a.now()); err != nil {
		log.Error().Err(err).Str("path", a.Config.ReportFile).Msg("could not write report")
		errs = append(errs, err)
	}
	if err := met.WriteFile(a.Config.MetricsFile); err != nil {
		log.Error().Err(err).Str("path", a.Config.MetricsFile).Msg("could not write metrics")
		errs = append(errs, err)
	}
	return sum, errors.Join(errs...)
}

func (a *App) logSummary(op migrator.Op, ok, failed int) {
	ev := a.Log.Info()
	if failed > 0 {
		ev = a.Log.Warn()
	}
	ev.Str("op", string(op)).Int("succeeded", ok).Int("failed", failed).Msgf("%s finished", op)
}

// Planned returns how many mailbox events a run of opts over set produces.
func Planned(set mailbox.Set, opts Options) int {
	return len(set) * len(opts.Ops())
}
