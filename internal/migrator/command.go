package migrator

import (
	"strconv"

	"github.com/pepperpark/imapmigrator/internal/mailbox"
)

const (
	// BackupSuffix ends every file written by the backup tool, one per folder.
	BackupSuffix = ".mbox"
	// allFolders tells the backup tool to dump every folder.
	allFolders = "_ALL_"

	masked = "******"
)

// Command is an external tool invocation. The argument list is passed to the
// process as is, without a shell.
type Command struct {
	Path string
	Args []string
	// secret is the index in Args holding a password, or -1.
	secret int
}

// Redacted returns the full argv with the password masked, for logging.
func (c Command) Redacted() []string {
	out := make([]string, 0, len(c.Args)+1)
	out = append(out, c.Path)
	for i, a := range c.Args {
		if i == c.secret {
			a = masked
		}
		out = append(out, a)
	}
	return out
}

func newCommand(path string, args ...string) Command {
	return Command{Path: path, Args: args, secret: -1}
}

// withSecret appends "flag value" and remembers value as the password.
func (c Command) withSecret(flag, value string) Command {
	c.Args = append(c.Args, flag, value)
	c.secret = len(c.Args) - 1
	return c
}

func (c Command) with(args ...string) Command {
	c.Args = append(c.Args, args...)
	return c
}

// ListCommand asks the backup tool to list the folders of a mailbox.
func ListCommand(grab string, m mailbox.Mailbox) Command {
	return newCommand(grab, "-l", "-s", m.Host, "-u", m.Username).
		withSecret("-p", m.Password)
}

// BackupCommand dumps every folder of m into dir.
func BackupCommand(grab string, m mailbox.Mailbox, dir string) Command {
	c := newCommand(grab, "-v", "-d")
	if m.UseTLS {
		c = c.with("-S")
	}
	return c.with("-f", dir, "-s", m.Host, "-u", m.Username).
		withSecret("-p", m.Password).
		with("-m", allFolders)
}

// UploadCommand uploads one backup file into folder on mailbox m.
func UploadCommand(upload string, retries int, m mailbox.Mailbox, folder, file string) Command {
	c := newCommand(upload, "--retry", strconv.Itoa(retries))
	if m.UseTLS {
		c = c.with("--ssl")
	}
	return c.with("--host", m.Host, "--port", strconv.Itoa(m.Port), "--user", m.Username).
		withSecret("--password", m.Password).
		with("--box", folder, file)
}
