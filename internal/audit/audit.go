// Package audit keeps a server-side log of chat and upload exchanges.
// It records what was asked and how it ended; it is not a chat history
// and cannot restore a conversation.
package audit

import "time"

// Kind is the endpoint an exchange went through.
type Kind string

const (
	KindChat   Kind = "chat"
	KindUpload Kind = "upload"
)

// Status is how an exchange ended.
type Status string

const (
	StatusOK       Status = "ok"
	StatusEmpty    Status = "empty"    // the model answered with no text
	StatusRejected Status = "rejected" // invalid request, the model was not called
	StatusFailed   Status = "failed"
)

// Exchange is a single audit record.
type Exchange struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Kind         Kind      `json:"kind"`
	Prompt       string    `json:"prompt"`
	OutputChars  int       `json:"output_chars"`
	File         string    `json:"file,omitempty"`
	Status       Status    `json:"status"`
	Error        string    `json:"error,omitempty"`
	Provider     string    `json:"provider,omitempty"`
	Model        string    `json:"model,omitempty"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	DurationMS   int64     `json:"duration_ms"`
}

// Summary aggregates exchanges.
type Summary struct {
	Total        int            `json:"total"`
	ByStatus     map[Status]int `json:"by_status"`
	ByKind       map[Kind]int   `json:"by_kind"`
	InputTokens  int            `json:"input_tokens"`
	OutputTokens int            `json:"output_tokens"`
	CostUSD      float64        `json:"cost_usd"`
}
