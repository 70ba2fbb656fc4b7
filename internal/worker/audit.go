// Package worker contains long-running consumers that run outside the HTTP
// server process.
package worker

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"bookkeeper/internal/notify"
)

// AuditWriter appends every ledger change event it receives to a JSON-lines
// stream. The result is an append-only audit trail of who changed what, fed
// from the same AMQP queue the live clients subscribe to.
type AuditWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func NewAuditWriter(out io.Writer) *AuditWriter {
	return &AuditWriter{out: out}
}

type auditRecord struct {
	ReceivedAt time.Time `json:"receivedAt"`
	Owner      string    `json:"owner"`
	Entity     string    `json:"entity"`
	Op         string    `json:"op"`
	IDs        []string  `json:"ids,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Handle records a single change event. It is safe for concurrent use and
// returns an error when the line could not be written, so the broker redelivers
// the message instead of losing it.
func (w *AuditWriter) Handle(event notify.ChangeEvent) error {
	record := auditRecord{
		ReceivedAt: time.Now().UTC(),
		Owner:      event.Owner,
		Entity:     event.Entity,
		Op:         event.Op,
		IDs:        event.IDs,
		OccurredAt: event.Timestamp,
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(line); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}

	slog.Info("Recorded ledger change",
		"owner", event.Owner,
		"entity", event.Entity,
		"op", event.Op,
		"ids", len(event.IDs))
	return nil
}
