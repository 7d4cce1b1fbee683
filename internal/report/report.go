package report

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pepperpark/imapmigrator/internal/migrator"
)

// Report is the outcome of one run, written as JSON at the end.
type Report struct {
	mu         sync.Mutex
	RunID      string                `json:"run_id"`
	Started    time.Time             `json:"started"`
	Finished   time.Time             `json:"finished"`
	Operations map[migrator.Op]*Step `json:"operations"`
}

// Step is the outcome of one operation.
type Step struct {
	Succeeded []string  `json:"succeeded"`
	Failed    []Failure `json:"failed,omitempty"`
	Archives  []Archive `json:"archives,omitempty"`
	Uploads   []Upload  `json:"uploads,omitempty"`
}

type Failure struct {
	Mailbox string `json:"mailbox"`
	Reason  string `json:"reason"`
}

type Archive struct {
	Username string `json:"username"`
	Dir      string `json:"dir"`
	Folders  int    `json:"folders"`
	Messages int    `json:"messages"`
	Size     string `json:"size"`
}

type Upload struct {
	Source   string `json:"source"`
	Username string `json:"username"`
	Folder   string `json:"folder"`
	File     string `json:"file"`
	Size     string `json:"size"`
	Messages int    `json:"messages"`
	ExitCode int    `json:"exit_code"`
	Error    string `json:"error,omitempty"`
}

func New(runID string, started time.Time) *Report {
	return &Report{RunID: runID, Started: started, Operations: make(map[migrator.Op]*Step)}
}

func failures(in []migrator.Failure) []Failure {
	out := make([]Failure, 0, len(in))
	for _, f := range in {
		out = append(out, Failure{Mailbox: f.Mailbox, Reason: f.Err.Error()})
	}
	return out
}

func (r *Report) set(op migrator.Op, s *Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Operations[op] = s
}

// AddList records a list operation.
func (r *Report) AddList(op migrator.Op, res migrator.ListResult) {
	s := &Step{Succeeded: []string{}, Failed: failures(res.Failed)}
	for _, m := range res.Succeeded {
		s.Succeeded = append(s.Succeeded, m.Username)
	}
	r.set(op, s)
}

func (r *Report) AddBackup(res migrator.BackupResult) {
	s := &Step{Succeeded: []string{}, Failed: failures(res.Failed)}
	for _, m := range res.Succeeded {
		s.Succeeded = append(s.Succeeded, m.Username)
	}
	for _, a := range res.Archives {
		s.Archives = append(s.Archives, Archive{
			Username: a.Username,
			Dir:      a.Dir,
			Folders:  a.Folders,
			Messages: a.Messages,
			Size:     humanize.Bytes(uint64(a.Size)),
		})
	}
	r.set(migrator.OpBackup, s)
}

func (r *Report) AddRestore(res migrator.RestoreResult) {
	s := &Step{Succeeded: []string{}, Failed: failures(res.Failed)}
	for _, m := range res.Succeeded {
		s.Succeeded = append(s.Succeeded, m.Old.Username)
	}
	for _, u := range res.Uploads {
		up := Upload{
			Source:   u.Source,
			Username: u.Username,
			Folder:   u.Folder,
			File:     u.File,
			Size:     humanize.Bytes(uint64(u.Size)),
			Messages: u.Messages,
			ExitCode: u.ExitCode,
		}
		if u.Err != nil {
			up.Error = u.Err.Error()
		}
		s.Uploads = append(s.Uploads, up)
	}
	r.set(migrator.OpRestore, s)
}

// Save writes the report. It may hold usernames, so it is private to the owner.
func (r *Report) Save(path string, finished time.Time) error {
	if path == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Finished = finished
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
