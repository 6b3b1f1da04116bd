package amqp

import (
	"encoding/json"
	"time"

	"expensetracker/internal/core"
)

// ExpenseRecordedMessage announces one accepted ledger entry.
type ExpenseRecordedMessage struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Department  string    `json:"department"`
	AmountCents int64     `json:"amount_cents"`
	RecordedAt  time.Time `json:"recorded_at"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewExpenseRecordedMessage builds the event for entry.
func NewExpenseRecordedMessage(entry core.LedgerEntry) *ExpenseRecordedMessage {
	return &ExpenseRecordedMessage{
		ID:          entry.ID,
		Category:    entry.Category.String(),
		Department:  core.DepartmentFor(entry.Category).String(),
		AmountCents: entry.Amount.Cents,
		RecordedAt:  entry.Timestamp,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseRecordedMessageFromJSON creates a message from JSON bytes
func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// TranscriptMessage carries a voice command recognized by a remote device.
type TranscriptMessage struct {
	Transcript string    `json:"transcript"`
	Source     string    `json:"source,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewTranscriptMessage creates a transcript message stamped now.
func NewTranscriptMessage(transcript, source string) *TranscriptMessage {
	return &TranscriptMessage{
		Transcript: transcript,
		Source:     source,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TranscriptMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TranscriptMessageFromJSON creates a message from JSON bytes
func TranscriptMessageFromJSON(data []byte) (*TranscriptMessage, error) {
	var msg TranscriptMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
