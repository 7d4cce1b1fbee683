package migrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/pepperpark/imapmigrator/internal/mailbox"
)

// BackupResult holds the outcome of a backup run.
type BackupResult struct {
	Succeeded []mailbox.Mailbox
	Archives  []Archive
	Failed    []Failure
}

// Backup dumps every source mailbox into root/<user dir>. The error is only
// set when root itself cannot be created.
func (m *Migrator) Backup(ctx context.Context, set mailbox.Set, root string) (BackupResult, error) {
	var res BackupResult
	if err := os.MkdirAll(root, 0o755); err != nil {
		return res, fmt.Errorf("create output directory: %w", err)
	}

	for _, mb := range set.Mailboxes(mailbox.Source) {
		if ctx.Err() != nil {
			break
		}
		log := m.log.With().Str("op", string(OpBackup)).Str("username", mb.Username).Logger()
		log.Info().Msgf("Backing up mailbox %s", mb.Username)
		m.emit(Event{Type: EventMailboxStart, Op: OpBackup, Mailbox: mb.Username})

		dir, err := filepath.Abs(UserDir(root, mb.Username))
		if err == nil {
			err = os.Mkdir(dir, 0o755)
			if errors.Is(err, fs.ErrExist) {
				err = nil
			}
		}
		if err != nil {
			err = fmt.Errorf("create backup directory: %w", err)
			log.Error().Err(err).Msg("backup failed")
			res.Failed = append(res.Failed, Failure{Mailbox: mb.Username, Err: err})
			m.done(OpBackup, mb.Username, err)
			continue
		}

		c := BackupCommand(m.opts.Tools.Grab, mb, dir)
		log.Debug().Strs("cmd", c.Redacted()).Msg("running backup tool")
		_, err = run(ctx, m.exec, c)
		m.done(OpBackup, mb.Username, err)
		if err != nil {
			log.Error().Err(err).Msg("backup failed")
			res.Failed = append(res.Failed, Failure{Mailbox: mb.Username, Err: err})
			continue
		}
		res.Succeeded = append(res.Succeeded, mb)

		a, err := summarize(mb.Username, dir)
		if err != nil {
			log.Warn().Err(err).Msg("could not inspect backup")
			continue
		}
		res.Archives = append(res.Archives, a)
		log.Info().
			Int("folders", a.Folders).
			Int("messages", a.Messages).
			Str("size", humanize.Bytes(uint64(a.Size))).
			Msg("backup complete")
	}
	return res, nil
}
