package migrator

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pepperpark/imapmigrator/internal/mailbox"
)

// Tools locates the external programs.
type Tools struct {
	Grab          string
	Upload        string
	UploadRetries int
}

// FolderLister prints the folders of one mailbox.
type FolderLister interface {
	ListFolders(ctx context.Context, m mailbox.Mailbox) error
}

type Options struct {
	Tools Tools
	// Lister overrides the external list tool.
	Lister FolderLister
	// OnEvent, when set, receives progress events synchronously.
	OnEvent func(Event)
}

// Migrator runs list, backup and restore over a migration set, one mailbox at
// a time and in input order.
type Migrator struct {
	exec   Executor
	log    zerolog.Logger
	opts   Options
	lister FolderLister
}

func New(exec Executor, log zerolog.Logger, opts Options) *Migrator {
	if opts.Tools.UploadRetries <= 0 {
		opts.Tools.UploadRetries = 3
	}
	m := &Migrator{exec: exec, log: log, opts: opts, lister: opts.Lister}
	if m.lister == nil {
		m.lister = &ToolLister{Exec: exec, Grab: opts.Tools.Grab, Log: log}
	}
	return m
}

// Failure records why a mailbox or pair did not succeed.
type Failure struct {
	Mailbox string
	Err     error
}

func (m *Migrator) emit(ev Event) {
	if m.opts.OnEvent != nil {
		m.opts.OnEvent(ev)
	}
}

func (m *Migrator) done(op Op, name string, err error) {
	m.emit(Event{Type: EventMailboxDone, Op: op, Mailbox: name, Err: err})
}
