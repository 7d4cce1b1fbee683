package migrator

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/pepperpark/imapmigrator/internal/mailbox"
)

// Upload is one backup file sent to a destination folder.
type Upload struct {
	Source   string
	Username string
	Folder   string
	File     string
	Size     int64
	Messages int
	ExitCode int
	Err      error
}

// RestoreResult holds the outcome of a restore run. A pair only succeeds when
// every one of its uploads did.
type RestoreResult struct {
	Succeeded []mailbox.Migration
	Uploads   []Upload
	Failed    []Failure
}

// Restore uploads every backup file of each pair into its destination mailbox,
// keeping the folder hierarchy. Pairs without a destination are skipped.
func (m *Migrator) Restore(ctx context.Context, set mailbox.Set, root string) RestoreResult {
	var res RestoreResult
	for _, mig := range set {
		if ctx.Err() != nil {
			break
		}
		src, dst := mig.Old, mig.New
		if !dst.Configured() {
			m.emit(Event{Type: EventMailboxSkipped, Op: OpRestore, Mailbox: src.Username})
			continue
		}
		log := m.log.With().Str("op", string(OpRestore)).Str("username", src.Username).Logger()
		m.emit(Event{Type: EventMailboxStart, Op: OpRestore, Mailbox: src.Username})

		if src.Username == "" {
			err := errors.New("no source username, refusing to restore the whole backup root")
			log.Error().Err(err).Msg("restore failed")
			res.Failed = append(res.Failed, Failure{Mailbox: src.Username, Err: err})
			m.done(OpRestore, src.Username, err)
			continue
		}
		dir := UserDir(root, src.Username)
		if _, err := os.Stat(dir); err != nil {
			log.Error().Msgf("Could not find backup directory %s, skipping this mailbox.", dir)
			err = fmt.Errorf("backup directory %s: %w", dir, err)
			res.Failed = append(res.Failed, Failure{Mailbox: src.Username, Err: err})
			m.done(OpRestore, src.Username, err)
			continue
		}

		log.Info().Msgf("Restoring old %s to new %s", src.Username, dst.Username)
		total, failed := 0, 0
		werr := walkBackup(dir, func(bf BackupFile) error {
			up := m.upload(ctx, log, src, dst, bf)
			res.Uploads = append(res.Uploads, up)
			total++
			if up.Err != nil {
				failed++
			}
			return nil
		})

		var err error
		switch {
		case werr != nil:
			err = fmt.Errorf("walk %s: %w", dir, werr)
			log.Error().Err(err).Msg("restore failed")
		case failed > 0:
			err = fmt.Errorf("%d of %d uploads failed", failed, total)
			log.Error().Msg(err.Error())
		}
		m.done(OpRestore, src.Username, err)
		if err != nil {
			res.Failed = append(res.Failed, Failure{Mailbox: src.Username, Err: err})
			continue
		}
		res.Succeeded = append(res.Succeeded, mig)
	}
	return res
}

func (m *Migrator) upload(ctx context.Context, log zerolog.Logger, src, dst mailbox.Mailbox, bf BackupFile) Upload {
	up := Upload{
		Source:   src.Username,
		Username: dst.Username,
		Folder:   bf.Folder,
		File:     bf.Path,
		Size:     bf.Size,
	}
	n, err := countMessages(bf.Path)
	if err != nil {
		log.Warn().Err(err).Str("file", bf.Path).Msg("could not count messages")
	}
	up.Messages = n

	c := UploadCommand(m.opts.Tools.Upload, m.opts.Tools.UploadRetries, dst, bf.Folder, bf.Path)
	log.Debug().
		Str("folder", bf.Folder).
		Int("messages", n).
		Str("size", humanize.Bytes(uint64(bf.Size))).
		Strs("cmd", c.Redacted()).
		Msg("running upload tool")

	up.ExitCode, up.Err = run(ctx, m.exec, c)
	ev := log.Info()
	if up.Err != nil {
		ev = log.Error().Err(up.Err)
	}
	ev.Str("folder", bf.Folder).Int("exit_code", up.ExitCode).Msg("upload finished")
	m.emit(Event{Type: EventUpload, Op: OpRestore, Mailbox: src.Username, Folder: bf.Folder, Err: up.Err})
	return up
}
