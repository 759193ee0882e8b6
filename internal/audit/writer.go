package audit

import "sync"

// Writer persists audit events.
//
// Write validates the event, chains it to the previous one (HashPrev, Hash)
// and returns only once the event is stored. A failed Write must fail the
// audited operation.
type Writer interface {
	Write(event *Event) error
	Close() error
	// LastHash returns GenesisHash until an event is written.
	LastHash() string
}

// NopWriter discards all events. Used when audit logging is disabled.
type NopWriter struct{}

var _ Writer = NopWriter{}

func (NopWriter) Write(*Event) error { return nil }
func (NopWriter) Close() error       { return nil }
func (NopWriter) LastHash() string   { return GenesisHash }

// MemoryWriter keeps a hash chained log in memory.
type MemoryWriter struct {
	mu       sync.Mutex
	events   []Event
	lastHash string
}

var _ Writer = (*MemoryWriter)(nil)

// NewMemoryWriter creates an empty in-memory log.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{lastHash: GenesisHash}
}

func (m *MemoryWriter) Write(event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := chain(event, m.lastHash); err != nil {
		return err
	}
	m.events = append(m.events, *event)
	m.lastHash = event.Hash
	return nil
}

func (m *MemoryWriter) Close() error { return nil }

func (m *MemoryWriter) LastHash() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHash
}

// Events returns a copy of the events written so far.
func (m *MemoryWriter) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// MultiWriter writes to multiple audit writers.
// If any writer fails, the write fails.
type MultiWriter struct {
	writers []Writer
}

var _ Writer = (*MultiWriter)(nil)

// NewMultiWriter creates a writer that writes to all provided writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) Write(event *Event) error {
	for _, w := range m.writers {
		// each writer chains the event to its own log
		e := *event
		if err := w.Write(&e); err != nil {
			return err
		}
		event.HashPrev, event.Hash = e.HashPrev, e.Hash
	}
	return nil
}

func (m *MultiWriter) Close() error {
	var lastErr error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (m *MultiWriter) LastHash() string {
	if len(m.writers) > 0 {
		return m.writers[0].LastHash()
	}
	return GenesisHash
}
