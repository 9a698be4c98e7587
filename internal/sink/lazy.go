package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/neo/personasim/internal/record"
)

// Lazy defers opening a sink until the first insert, so a fallback file only
// exists if something actually fell back to it.
type Lazy struct {
	name string
	open func() (Sink, error)

	mu   sync.Mutex
	sink Sink
}

// NewLazy wraps open, which is called at most once successfully.
func NewLazy(name string, open func() (Sink, error)) *Lazy {
	return &Lazy{name: name, open: open}
}

func (l *Lazy) get() (Sink, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sink != nil {
		return l.sink, nil
	}
	s, err := l.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s sink: %w", l.name, err)
	}
	l.sink = s
	return s, nil
}

func (l *Lazy) Insert(ctx context.Context, rec record.IterationRecord) error {
	s, err := l.get()
	if err != nil {
		return err
	}
	return s.Insert(ctx, rec)
}

func (l *Lazy) Name() string { return l.name }

// Opened reports whether the underlying sink has been created
func (l *Lazy) Opened() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink != nil
}

func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sink == nil {
		return nil
	}
	return l.sink.Close()
}
