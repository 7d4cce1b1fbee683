package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/xid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pepperpark/imapmigrator/internal/app"
	"github.com/pepperpark/imapmigrator/internal/config"
	"github.com/pepperpark/imapmigrator/internal/logging"
	"github.com/pepperpark/imapmigrator/internal/migrator"
)

var (
	// Set via -ldflags at build time.
	version = "dev"
	commit  = ""
	date    = ""
)

type rootOptions struct {
	app.Options

	configFile  string
	verbosity   int
	logFile     string
	reportFile  string
	metricsFile string
	progress    bool
	askSecrets  bool
	showVersion bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	o := &rootOptions{}
	code := 0
	rootCmd := &cobra.Command{
		Use:   "imapmigrator [flags] mailbox... | all",
		Short: "Backup & restore IMAP mailboxes listed in a CSV file",
		Long: `Backup & restore IMAP mailboxes listed in a CSV file.

Each CSV row describes one migration, without header:
  old username, old password, old host, old port, old ssl,
  new username, new password, new host, new port, new ssl

Mailboxes are selected by their old username; use "all" for every row.
With --ask-passwords, a password of "-" is asked for on the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if o.showVersion {
				return nil
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.showVersion {
				printVersion(cmd.OutOrStdout())
				return nil
			}
			o.Mailboxes = args
			code = runMigrate(cmd.Context(), o)
			return nil
		},
	}

	f := rootCmd.Flags()
	f.StringVarP(&o.CSV, "csv", "c", "mailboxes.csv", "Path to CSV file containing mailboxes descriptions")
	f.BoolVarP(&o.ListOld, "listold", "l", false, `List folders of "old" mailboxes`)
	f.BoolVar(&o.ListNew, "listnew", false, `List folders of "new" mailboxes`)
	f.BoolVarP(&o.Backup, "backup", "b", false, `Backup "old" mailboxes to files`)
	f.StringVarP(&o.Output, "output", "o", "backups/", "Path to store mailboxes backup files")
	f.BoolVarP(&o.Restore, "restore", "r", false, `Restore backup files to "new" mailboxes`)
	f.CountVarP(&o.verbosity, "verbosity", "v", "Increase verbosity (repeat up to 4 times)")
	f.StringVar(&o.configFile, "config", "", "Path to YAML configuration file")
	f.StringVar(&o.logFile, "log-file", "", "Path to rotated log file (overrides config)")
	f.StringVar(&o.reportFile, "report", "", "Write a JSON report of the run to this file")
	f.StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus counters to this textfile")
	f.BoolVar(&o.progress, "progress", false, "Show a progress bar instead of console logs (terminal only)")
	f.BoolVar(&o.askSecrets, "ask-passwords", false, `Ask on the terminal for passwords given as "-" in the CSV file`)
	f.BoolVar(&o.showVersion, "version", false, "Print version and exit")

	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return code
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "imapmigrator %s", version)
	if commit != "" {
		fmt.Fprintf(w, " (%s)", commit)
	}
	if date != "" {
		fmt.Fprintf(w, " built %s", date)
	}
	fmt.Fprintln(w)
}

func runMigrate(ctx context.Context, o *rootOptions) int {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}
	if o.reportFile != "" {
		cfg.ReportFile = o.reportFile
	}
	if o.metricsFile != "" {
		cfg.MetricsFile = o.metricsFile
	}
	if o.askSecrets {
		cfg.PromptSecrets = true
	}

	progress := o.progress && term.IsTerminal(int(os.Stdout.Fd()))
	var console io.Writer = os.Stderr
	var toolOut, toolErr io.Writer = os.Stdout, os.Stderr
	if progress {
		console, toolOut, toolErr = nil, io.Discard, io.Discard
	}

	runID := xid.New().String()
	logger, closeLog, err := logging.New(logging.Options{
		Verbosity: logging.ClampVerbosity(o.verbosity),
		RunID:     runID,
		File:      cfg.Log.File,
		MaxBytes:  cfg.Log.MaxBytes,
		Backups:   cfg.Log.Backups,
		Console:   console,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	defer closeLog()

	a := &app.App{
		Log:    logger,
		Config: cfg,
		Exec:   migrator.ProcessExecutor{Stdout: toolOut, Stderr: toolErr},
		RunID:  runID,
		Stdout: toolOut,
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		a.Prompt = promptSecret
	}

	set, err := a.Load(o.Options)
	if err != nil {
		return 1
	}

	if progress {
		err = runProgress(ctx, a, set, o.Options)
	} else {
		_, err = a.Execute(ctx, set, o.Options)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn().Msg("interrupted")
		}
		return 1
	}
	return 0
}

func promptSecret(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
