package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"vaultbank/application"
)

// Journal appends ledger events to a day-stamped JSONL file so external
// auditors can replay what the ledger accepted. Write failures are reported
// through the error hook and never fail the operation that emitted the event.
type Journal struct {
	mu  sync.Mutex
	dir string

	// OnError observes append failures. Nil means drop them.
	OnError func(error)
}

func NewJournal(dir string) *Journal {
	return &Journal{dir: dir}
}

// Publish implements application.EventSink.
func (j *Journal) Publish(e application.Event) {
	if err := j.append(e); err != nil && j.OnError != nil {
		j.OnError(err)
	}
}

func (j *Journal) append(e application.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("ensure audit dir: %w", err)
	}

	name := fmt.Sprintf("events-%s.jsonl", e.At.UTC().Format("20060102"))
	f, err := os.OpenFile(filepath.Join(j.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit journal: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// WriteSnapshot dumps a point-in-time view (stats, balances) as a timestamped
// JSON artifact next to the journal.
func (j *Journal) WriteSnapshot(name string, v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("ensure audit dir: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	path := filepath.Join(j.dir, fmt.Sprintf("%s-%s.json", stamp, name))

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}
