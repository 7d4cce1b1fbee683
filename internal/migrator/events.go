package migrator

// EventType enumerates emitted progress events.
type EventType string

const (
	EventMailboxStart   EventType = "mailbox_start"
	EventMailboxDone    EventType = "mailbox_done"
	EventMailboxSkipped EventType = "mailbox_skipped"
	EventUpload         EventType = "upload"
)

// Op names one of the operations a run can perform.
type Op string

const (
	OpListOld Op = "list-old"
	OpListNew Op = "list-new"
	OpBackup  Op = "backup"
	OpRestore Op = "restore"
)

// Event carries progress about a mailbox.
type Event struct {
	Type    EventType
	Op      Op
	Mailbox string
	Folder  string
	Err     error
}
