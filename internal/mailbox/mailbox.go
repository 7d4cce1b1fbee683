package mailbox

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Role tells which side of a migration a mailbox is on.
type Role int

const (
	Source Role = iota
	Destination
)

// String returns the short tag used on the command line and in logs.
func (r Role) String() string {
	switch r {
	case Source:
		return "old"
	case Destination:
		return "new"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

const (
	// DefaultTLSPort is used when TLS is enabled and no port is given.
	DefaultTLSPort = 993
	// DefaultPlainPort is used when TLS is disabled and no port is given.
	DefaultPlainPort = 143
)

// DefaultPort returns the IMAP port implied by the transport security flag.
func DefaultPort(useTLS bool) int {
	if useTLS {
		return DefaultTLSPort
	}
	return DefaultPlainPort
}

// Mailbox describes one IMAP endpoint.
type Mailbox struct {
	Role     Role
	Username string
	Password string
	Host     string
	Port     int
	UseTLS   bool
}

// Configured reports whether the mailbox has enough information to be
// connected to. A destination without username or host means "backup only".
func (m Mailbox) Configured() bool {
	return m.Username != "" && m.Host != ""
}

// WithPassword returns a copy of m carrying a different secret.
func (m Mailbox) WithPassword(pass string) Mailbox {
	m.Password = pass
	return m
}

func (m Mailbox) String() string {
	return fmt.Sprintf("%s on %s:%d (%s)", m.Username, m.Host, m.Port, m.Role)
}

// MarshalZerologObject writes the mailbox without its password.
func (m Mailbox) MarshalZerologObject(e *zerolog.Event) {
	e.Str("role", m.Role.String()).
		Str("username", m.Username).
		Str("host", m.Host).
		Int("port", m.Port).
		Bool("tls", m.UseTLS)
}

// Migration pairs a source mailbox with its destination.
type Migration struct {
	Old Mailbox
	New Mailbox
}

// Mailbox returns the side of the migration selected by role.
func (m Migration) Mailbox(role Role) Mailbox {
	if role == Destination {
		return m.New
	}
	return m.Old
}

func (m Migration) String() string {
	return fmt.Sprintf("%s => %s", m.Old, m.New)
}

func (m Migration) MarshalZerologObject(e *zerolog.Event) {
	e.Object("old", m.Old).Object("new", m.New)
}

// Set is an ordered list of migrations, in input order.
type Set []Migration

func (s Set) MarshalZerologArray(a *zerolog.Array) {
	for _, m := range s {
		a.Object(m)
	}
}

// Mailboxes returns the mailboxes of every migration for the given role.
func (s Set) Mailboxes(role Role) []Mailbox {
	out := make([]Mailbox, 0, len(s))
	for _, m := range s {
		out = append(out, m.Mailbox(role))
	}
	return out
}

// List is a list of mailboxes that can be dumped into a log event.
type List []Mailbox

func (l List) MarshalZerologArray(a *zerolog.Array) {
	for _, m := range l {
		a.Object(m)
	}
}

// DirName maps a username to the name of its per-user backup directory.
func DirName(username string) string {
	return strings.ReplaceAll(username, "@", "_at_")
}
