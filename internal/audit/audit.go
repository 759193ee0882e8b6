package audit

import (
	"fmt"
	"sync"
)

var (
	globalWriter Writer = NopWriter{}
	globalMu     sync.RWMutex
	enabled      bool
)

// Init installs w as the global audit writer. A nil writer disables audit
// logging.
func Init(w Writer) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if w == nil {
		globalWriter = NopWriter{}
		enabled = false
		return nil
	}
	globalWriter = w
	enabled = true
	return nil
}

// InitFile installs a FileWriter for path. An empty path disables audit
// logging.
func InitFile(path string) error {
	if path == "" {
		return Init(nil)
	}
	w, err := NewFileWriter(path)
	if err != nil {
		return err
	}
	return Init(w)
}

// Close closes the global audit writer and disables audit logging.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	err := globalWriter.Close()
	globalWriter = NopWriter{}
	enabled = false
	return err
}

// Enabled returns whether audit logging is active.
func Enabled() bool {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return enabled
}

// Log writes an audit event to the global writer.
func Log(event *Event) error {
	globalMu.RLock()
	w := globalWriter
	globalMu.RUnlock()

	return w.Write(event)
}

// MustLog writes an audit event and returns an error suitable for failing
// the parent operation.
//
//	if err := audit.MustLog(event); err != nil {
//	    return nil, err
//	}
func MustLog(event *Event) error {
	if err := Log(event); err != nil {
		return fmt.Errorf("audit log failed: %w", err)
	}
	return nil
}

func reason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// LogKeyDerived logs a PlayReady content key derivation. Only key IDs are
// recorded.
func LogKeyDerived(keyIDs []string, opErr error) error {
	return MustLog(NewEvent(EventKeyDerived, ResultOf(opErr == nil)).
		WithObject(Object{Type: "key", KeyIDs: keyIDs}).
		WithContext(Context{System: "PlayReady", Reason: reason(opErr)}))
}

// LogPSSHBuilt logs the construction of a PSSH box.
func LogPSSHBuilt(system, systemID string, version int, keyIDs []string, opErr error) error {
	return MustLog(NewEvent(EventPSSHBuilt, ResultOf(opErr == nil)).
		WithObject(Object{Type: "pssh", SystemID: systemID, KeyIDs: keyIDs}).
		WithContext(Context{System: system, Version: version, Reason: reason(opErr)}))
}

// LogPSSHDecoded logs the decoding of a PSSH box.
func LogPSSHDecoded(system, systemID string, version int, keyIDs []string, opErr error) error {
	return MustLog(NewEvent(EventPSSHDecoded, ResultOf(opErr == nil)).
		WithObject(Object{Type: "pssh", SystemID: systemID, KeyIDs: keyIDs}).
		WithContext(Context{System: system, Version: version, Reason: reason(opErr)}))
}

// LogCPIXWritten logs the output of a CPIX document.
func LogCPIXWritten(path, contentID string, keyIDs []string, opErr error) error {
	return MustLog(NewEvent(EventCPIXWritten, ResultOf(opErr == nil)).
		WithObject(Object{Type: "cpix", Path: path, KeyIDs: keyIDs}).
		WithContext(Context{ContentID: contentID, Reason: reason(opErr)}))
}

// LogKeyServerRequest logs a key server call.
func LogKeyServerRequest(url, contentID string, keyIDs []string, opErr error) error {
	return MustLog(NewEvent(EventKeyServerRequest, ResultOf(opErr == nil)).
		WithObject(Object{Type: "request", KeyIDs: keyIDs}).
		WithContext(Context{URL: url, ContentID: contentID, Reason: reason(opErr)}))
}

// LogAPIRequest logs a request served by the REST API.
func LogAPIRequest(method, path, remote string, status int) error {
	return MustLog(NewEvent(EventAPIRequest, ResultOf(status < 400)).
		WithActor(Actor{Type: "service", ID: "cpix-api", Host: remote}).
		WithObject(Object{Type: "request", Path: path}).
		WithContext(Context{Method: method, Status: status}))
}
