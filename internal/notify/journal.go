// internal/notify/journal.go
package notify

import (
	"context"
	"time"
)

type recordWriter interface {
	WriteRecord(record []string) error
}

// JournalNotifier appends every message as a CSV row.
type JournalNotifier struct {
	w recordWriter
}

func NewJournalNotifier(w recordWriter) *JournalNotifier {
	return &JournalNotifier{w: w}
}

func (j *JournalNotifier) Notify(_ context.Context, msg Message) error {
	return j.w.WriteRecord([]string{
		msg.Time.UTC().Format(time.RFC3339),
		msg.Kind,
		msg.Mint,
		msg.Signature,
		msg.Link,
		msg.Text,
	})
}
