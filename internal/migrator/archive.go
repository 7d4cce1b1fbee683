package migrator

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-mbox"

	"github.com/pepperpark/imapmigrator/internal/mailbox"
)

// UserDir returns the per-user backup directory under root.
func UserDir(root, username string) string {
	return filepath.Join(root, mailbox.DirName(username))
}

// FolderName turns the path of a backup file, relative to its per-user
// directory, into the IMAP folder it was dumped from.
func FolderName(rel string) string {
	return filepath.ToSlash(strings.TrimSuffix(rel, BackupSuffix))
}

// BackupFile is one folder dump found on disk.
type BackupFile struct {
	Path   string // absolute
	Folder string
	Size   int64
}

// walkBackup calls fn for every backup file under dir, in lexical order.
func walkBackup(dir string, fn func(BackupFile) error) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), BackupSuffix) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		bf := BackupFile{Path: abs, Folder: FolderName(rel)}
		if info, err := d.Info(); err == nil {
			bf.Size = info.Size()
		}
		return fn(bf)
	})
}

// countMessages returns the number of messages in an mbox file.
func countMessages(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := mbox.NewReader(f)
	n := 0
	for {
		mr, err := r.NextMessage()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("read mbox %s: %w", path, err)
		}
		if _, err := io.Copy(io.Discard, mr); err != nil {
			return n, fmt.Errorf("read message: %w", err)
		}
		n++
	}
}

// Archive summarizes what a backup left on disk for one mailbox.
type Archive struct {
	Username string
	Dir      string
	Folders  int
	Messages int
	Size     int64
}

func summarize(username, dir string) (Archive, error) {
	a := Archive{Username: username, Dir: dir}
	err := walkBackup(dir, func(bf BackupFile) error {
		n, err := countMessages(bf.Path)
		if err != nil {
			return err
		}
		a.Folders++
		a.Messages += n
		a.Size += bf.Size
		return nil
	})
	return a, err
}
