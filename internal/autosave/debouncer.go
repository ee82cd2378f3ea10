// Package autosave delays note saves until edits pause. Each note has at
// most one pending draft; a new draft replaces the old one and restarts
// the timer.
package autosave

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned by Schedule after Close.
var ErrClosed = errors.New("autosave: debouncer closed")

// SaveFunc persists the content of a note.
type SaveFunc func(ctx context.Context, notePath, content string) error

type draft struct {
	content string
	timer   *time.Timer
	gen     uint64
}

// Debouncer coalesces drafts per note path.
type Debouncer struct {
	delay  time.Duration
	save   SaveFunc
	logger *slog.Logger

	// saveMu serializes saves so an older draft never lands after a newer one.
	saveMu sync.Mutex

	mu      sync.Mutex
	pending map[string]*draft
	gen     uint64
	closed  bool
	onSaved func(notePath string, err error)
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithLogger sets the logger for failed background saves.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Debouncer) {
		d.logger = logger
	}
}

// WithSaveHook registers a callback invoked after every save attempt.
func WithSaveHook(fn func(notePath string, err error)) Option {
	return func(d *Debouncer) {
		d.onSaved = fn
	}
}

// New creates a Debouncer. A delay of zero or less saves on the next timer
// tick, i.e. almost immediately but still asynchronously.
func New(delay time.Duration, save SaveFunc, opts ...Option) *Debouncer {
	d := &Debouncer{
		delay:   max(delay, 0),
		save:    save,
		logger:  slog.Default(),
		pending: make(map[string]*draft),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Schedule records content as the latest draft of notePath and (re)starts
// its timer.
func (d *Debouncer) Schedule(notePath, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	d.gen++
	gen := d.gen
	if p, ok := d.pending[notePath]; ok {
		p.timer.Stop()
	}
	d.pending[notePath] = &draft{
		content: content,
		gen:     gen,
		timer: time.AfterFunc(d.delay, func() {
			d.fire(notePath, gen)
		}),
	}
	return nil
}

// Pending returns the draft waiting for notePath, if any.
func (d *Debouncer) Pending(notePath string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[notePath]
	if !ok {
		return "", false
	}
	return p.content, true
}

// Len returns the number of pending drafts.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush saves the pending draft of notePath right away. It is a no-op when
// nothing is pending.
func (d *Debouncer) Flush(ctx context.Context, notePath string) error {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()

	d.mu.Lock()
	p, ok := d.take(notePath)
	d.mu.Unlock()
	if !ok {
		return nil
	}
	return d.run(ctx, notePath, p.content)
}

// FlushAll saves every pending draft and returns the joined errors.
func (d *Debouncer) FlushAll(ctx context.Context) error {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()

	d.mu.Lock()
	drafts := make(map[string]*draft, len(d.pending))
	for notePath := range d.pending {
		p, _ := d.take(notePath)
		drafts[notePath] = p
	}
	d.mu.Unlock()

	var errs []error
	for notePath, p := range drafts {
		if err := d.run(ctx, notePath, p.content); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Cancel drops the pending draft of notePath without saving it. It also
// waits for a save that is already running, so a write made after Cancel
// returns cannot be overwritten by an older draft.
func (d *Debouncer) Cancel(notePath string) bool {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.take(notePath)
	return ok
}

// Close rejects further drafts and flushes the pending ones.
func (d *Debouncer) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return d.FlushAll(ctx)
}

// take removes the draft of notePath and stops its timer. d.mu must be held.
func (d *Debouncer) take(notePath string) (*draft, bool) {
	p, ok := d.pending[notePath]
	if !ok {
		return nil, false
	}
	p.timer.Stop()
	delete(d.pending, notePath)
	return p, true
}

func (d *Debouncer) fire(notePath string, gen uint64) {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()

	d.mu.Lock()
	p, ok := d.pending[notePath]
	if !ok || p.gen != gen {
		// Flushed, cancelled or superseded meanwhile.
		d.mu.Unlock()
		return
	}
	delete(d.pending, notePath)
	d.mu.Unlock()

	if err := d.run(context.Background(), notePath, p.content); err != nil {
		d.logger.Error("autosave failed",
			slog.String("path", notePath),
			slog.String("error", err.Error()),
		)
	}
}

func (d *Debouncer) run(ctx context.Context, notePath, content string) error {
	err := d.save(ctx, notePath, content)
	if d.onSaved != nil {
		d.onSaved(notePath, err)
	}
	return err
}
