// Package session runs scans: it owns the per-scan aggregate, the
// resolve/scan/persist pipeline and the background job manager.
package session

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JadenB9/mode/internal/ports"
	"github.com/JadenB9/mode/internal/scanner"
	"github.com/JadenB9/mode/internal/target"
)

// Session is the state of one scan, from the moment it is accepted until its
// results are consumed. Only the engine's progress callback mutates it.
type Session struct {
	ID        uuid.UUID
	ScanType  ports.ScanType
	Target    string
	Ports     []uint16
	Options   scanner.Options
	CreatedAt time.Time

	completed atomic.Int64
}

// New creates a session for an already validated target and port set.
func New(scanType ports.ScanType, tgt string, portSet []uint16, opts scanner.Options) *Session {
	return &Session{
		ID:        uuid.New(),
		ScanType:  scanType,
		Target:    tgt,
		Ports:     portSet,
		Options:   opts,
		CreatedAt: time.Now(),
	}
}

// Prepare validates tgt, resolves the port set and creates a session.
// portExpr is only read for ports.CustomRange.
func Prepare(scanType ports.ScanType, tgt, portExpr string, opts scanner.Options) (*Session, error) {
	if err := target.Validate(tgt); err != nil {
		return nil, err
	}
	portSet, err := ports.Resolve(scanType, portExpr)
	if err != nil {
		return nil, err
	}
	return New(scanType, tgt, portSet, opts), nil
}

// Progress returns (attempts completed, total ports).
func (s *Session) Progress() (completed, total int) {
	return int(s.completed.Load()), len(s.Ports)
}

func (s *Session) setCompleted(n int) {
	s.completed.Store(int64(n))
}
