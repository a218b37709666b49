package tools

import (
	"sync"
	"time"
)

// DefaultHistorySize is how many log tool messages are kept for log_tail.
const DefaultHistorySize = 200

// Record is one message written through the log tool.
type Record struct {
	Time    time.Time
	Level   string
	Message string
}

func (r Record) String() string {
	return r.Time.Format(time.RFC3339) + " [" + r.Level + "] " + r.Message
}

// History is a fixed-size ring of recent log records.
type History struct {
	mu      sync.Mutex
	records []Record
	next    int
	count   int
}

// NewHistory keeps up to size records; non-positive sizes use the default.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{records: make([]Record, size)}
}

func (h *History) Add(rec Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records[h.next] = rec
	h.next = (h.next + 1) % len(h.records)
	if h.count < len(h.records) {
		h.count++
	}
}

// Tail returns up to n of the newest records, oldest first.
func (h *History) Tail(n int) []Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n <= 0 || h.count == 0 {
		return nil
	}
	if n > h.count {
		n = h.count
	}

	start := (h.next - n + len(h.records)) % len(h.records)
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = h.records[(start+i)%len(h.records)]
	}
	return out
}

// Len reports how many records are held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}
