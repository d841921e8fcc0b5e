package app

import (
	"slices"
	"sync"
	"time"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

type Entry struct {
	Time    time.Time
	Level   Level
	Message string
}

// ActivityLog is an append-only, in-memory record of what happened during
// this process. It is never persisted.
type ActivityLog struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

func NewActivityLog() *ActivityLog {
	return &ActivityLog{now: time.Now}
}

func (l *ActivityLog) Append(level Level, msg string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{Time: l.now(), Level: level, Message: msg}
	l.entries = append(l.entries, e)
	return e
}

func (l *ActivityLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

func (l *ActivityLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
