package migrator

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pepperpark/imapmigrator/internal/mailbox"
)

// ListResult holds the outcome of listing one side of a migration set.
type ListResult struct {
	Succeeded []mailbox.Mailbox
	Failed    []Failure
}

// ListOp returns the operation listing mailboxes of role.
func ListOp(role mailbox.Role) Op {
	if role == mailbox.Destination {
		return OpListNew
	}
	return OpListOld
}

// List lists the folders of every mailbox of the given role. A failing
// mailbox is logged and skipped.
func (m *Migrator) List(ctx context.Context, set mailbox.Set, role mailbox.Role) ListResult {
	var res ListResult
	op := ListOp(role)
	for _, mb := range set.Mailboxes(role) {
		if ctx.Err() != nil {
			break
		}
		log := m.log.With().Str("op", string(op)).Str("username", mb.Username).Logger()
		log.Info().Msgf("Listing mailbox %s", mb.Username)
		m.emit(Event{Type: EventMailboxStart, Op: op, Mailbox: mb.Username})

		err := m.lister.ListFolders(ctx, mb)
		m.done(op, mb.Username, err)
		if err != nil {
			log.Error().Err(err).Msg("listing failed")
			res.Failed = append(res.Failed, Failure{Mailbox: mb.Username, Err: err})
			continue
		}
		res.Succeeded = append(res.Succeeded, mb)
	}
	return res
}

// ToolLister lists folders with the external backup tool.
type ToolLister struct {
	Exec Executor
	Grab string
	Log  zerolog.Logger
}

func (l *ToolLister) ListFolders(ctx context.Context, mb mailbox.Mailbox) error {
	c := ListCommand(l.Grab, mb)
	l.Log.Debug().Strs("cmd", c.Redacted()).Msg("running list tool")
	_, err := run(ctx, l.Exec, c)
	return err
}
