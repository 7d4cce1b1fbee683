package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pepperpark/imapmigrator/internal/migrator"
)

// Metrics counts per-mailbox outcomes of a run for the node_exporter
// textfile collector.
type Metrics struct {
	reg       *prometheus.Registry
	Mailboxes *prometheus.CounterVec
	Uploads   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Mailboxes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imapmigrator_mailboxes_total",
			Help: "Mailboxes processed, by operation and result.",
		}, []string{"operation", "result"}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imapmigrator_uploads_total",
			Help: "Backup files uploaded during restore, by result.",
		}, []string{"result"}),
	}
	m.reg.MustRegister(m.Mailboxes, m.Uploads)
	return m
}

func (m *Metrics) mailboxes(op migrator.Op, ok, failed int) {
	m.Mailboxes.WithLabelValues(string(op), "success").Add(float64(ok))
	m.Mailboxes.WithLabelValues(string(op), "failure").Add(float64(failed))
}

func (m *Metrics) ObserveList(op migrator.Op, res migrator.ListResult) {
	m.mailboxes(op, len(res.Succeeded), len(res.Failed))
}

func (m *Metrics) ObserveBackup(res migrator.BackupResult) {
	m.mailboxes(migrator.OpBackup, len(res.Succeeded), len(res.Failed))
}

func (m *Metrics) ObserveRestore(res migrator.RestoreResult) {
	m.mailboxes(migrator.OpRestore, len(res.Succeeded), len(res.Failed))
	for _, u := range res.Uploads {
		result := "success"
		if u.Err != nil {
			result = "failure"
		}
		m.Uploads.WithLabelValues(result).Inc()
	}
}

// WriteFile writes all counters in the text exposition format. An empty path
// is a no-op.
func (m *Metrics) WriteFile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}
