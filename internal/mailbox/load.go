package mailbox

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// AllKeyword selects every row of the CSV file.
const AllKeyword = "all"

// Column positions of a CSV row. The file has no header.
const (
	colOldUser = iota
	colOldPass
	colOldHost
	colOldPort
	colOldTLS
	colNewUser
	colNewPass
	colNewHost
	colNewPort
	colNewTLS
	numColumns
)

// Filter selects rows by source username.
type Filter struct {
	all   bool
	names map[string]struct{}
}

// NewFilter builds a filter from the positional selectors. A single "all"
// matches every row; otherwise rows match when their source username is listed.
func NewFilter(names []string) Filter {
	if len(names) == 1 && names[0] == AllKeyword {
		return Filter{all: true}
	}
	f := Filter{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		f.names[n] = struct{}{}
	}
	return f
}

// Match reports whether a source username passes the filter.
func (f Filter) Match(username string) bool {
	if f.all {
		return true
	}
	_, ok := f.names[username]
	return ok
}

// LoadFile opens path and parses it with Load. Open errors wrap fs.ErrNotExist
// or fs.ErrPermission so callers can tell them apart.
func LoadFile(path string, filter Filter) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f, filter)
}

// Load parses CSV rows into migrations, keeping input order and duplicates.
func Load(r io.Reader, filter Filter) (Set, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var set Set
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		m, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if filter.Match(m.Old.Username) {
			set = append(set, m)
		}
	}
	return set, nil
}

func parseRow(rec []string) (Migration, error) {
	// Short rows leave trailing columns empty.
	if len(rec) < numColumns {
		rec = append(rec, make([]string, numColumns-len(rec))...)
	}
	old, err := parseMailbox(Source, rec[colOldUser], rec[colOldPass], rec[colOldHost], rec[colOldPort], rec[colOldTLS])
	if err != nil {
		return Migration{}, err
	}
	nw, err := parseMailbox(Destination, rec[colNewUser], rec[colNewPass], rec[colNewHost], rec[colNewPort], rec[colNewTLS])
	if err != nil {
		return Migration{}, err
	}
	return Migration{Old: old, New: nw}, nil
}

func parseMailbox(role Role, user, pass, host, port, tls string) (Mailbox, error) {
	m := Mailbox{
		Role:     role,
		Username: user,
		Password: pass,
		Host:     host,
		UseTLS:   ParseTLS(tls),
	}
	if port == "" {
		m.Port = DefaultPort(m.UseTLS)
		return m, nil
	}
	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return Mailbox{}, fmt.Errorf("invalid %s port %q", role, port)
	}
	m.Port = p
	return m, nil
}

// ParseTLS interprets a CSV security flag. Only "false", in any case, disables
// TLS; an empty field enables it.
func ParseTLS(v string) bool {
	return strings.ToLower(v) != "false"
}
