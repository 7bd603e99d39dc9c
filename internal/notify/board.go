package notify

import (
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ID identifies one toast that is updated in place across an operation.
type ID string

type Kind string

const (
	KindLoading Kind = "loading"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notifier is the user-facing status surface.
type Notifier interface {
	Loading(msg string) ID
	UpdateLoading(id ID, msg string)
	Success(id ID, msg string)
	Error(id ID, msg string)
	Dismiss(id ID)
	// Warn shows a standalone error toast not tied to any operation.
	Warn(msg string) ID
}

type Toast struct {
	ID        ID        `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Dismissed bool      `json:"dismissed"`
}

// Display durations for finished toasts; loading toasts stay until updated.
const (
	SuccessDuration = 2 * time.Second
	ErrorDuration   = 4 * time.Second
)

// Board keeps toasts in memory for the HTTP surface and logs every change.
type Board struct {
	mu     sync.Mutex
	seq    uint64
	toasts map[ID]*Toast
	order  []ID
	log    zerolog.Logger
	now    func() time.Time
}

func NewBoard(log zerolog.Logger) *Board {
	return &Board{
		toasts: make(map[ID]*Toast),
		log:    log.With().Str("component", "notify").Logger(),
		now:    time.Now,
	}
}

func (b *Board) Loading(msg string) ID {
	return b.create(KindLoading, msg)
}

func (b *Board) Warn(msg string) ID {
	return b.create(KindError, msg)
}

func (b *Board) UpdateLoading(id ID, msg string) {
	b.update(id, KindLoading, msg)
}

func (b *Board) Success(id ID, msg string) {
	b.update(id, KindSuccess, msg)
}

func (b *Board) Error(id ID, msg string) {
	b.update(id, KindError, msg)
}

func (b *Board) Dismiss(id ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.toasts[id]
	if !ok || t.Dismissed {
		return
	}
	t.Dismissed = true
	t.UpdatedAt = b.now()
	b.log.Debug().Str("toast", string(id)).Msg("dismissed")
}

// Get returns the toast with id, including dismissed ones.
func (b *Board) Get(id ID) (Toast, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.toasts[id]
	if !ok {
		return Toast{}, false
	}
	return *t, true
}

// List returns visible toasts, oldest first. Finished toasts disappear after
// their display duration and are pruned.
func (b *Board) List() []Toast {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	out := make([]Toast, 0, len(b.order))
	kept := b.order[:0]
	for _, id := range b.order {
		t := b.toasts[id]
		if t.Dismissed || expired(t, now) {
			delete(b.toasts, id)
			continue
		}
		kept = append(kept, id)
		out = append(out, *t)
	}
	b.order = kept
	return out
}

func expired(t *Toast, now time.Time) bool {
	switch t.Kind {
	case KindSuccess:
		return now.Sub(t.UpdatedAt) > SuccessDuration
	case KindError:
		return now.Sub(t.UpdatedAt) > ErrorDuration
	}
	return false
}

func (b *Board) create(kind Kind, msg string) ID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	id := ID(strconv.FormatUint(b.seq, 10))
	now := b.now()
	b.toasts[id] = &Toast{ID: id, Kind: kind, Message: msg, CreatedAt: now, UpdatedAt: now}
	b.order = append(b.order, id)
	b.logToast(kind, id, msg)
	return id
}

// update rewrites a toast in place. Unknown ids are recreated so a late
// update after pruning is still shown.
func (b *Board) update(id ID, kind Kind, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	t, ok := b.toasts[id]
	if !ok {
		t = &Toast{ID: id, CreatedAt: now}
		b.toasts[id] = t
		b.order = append(b.order, id)
	}
	t.Kind = kind
	t.Message = msg
	t.UpdatedAt = now
	t.Dismissed = false
	b.logToast(kind, id, msg)
}

func (b *Board) logToast(kind Kind, id ID, msg string) {
	ev := b.log.Info()
	if kind == KindError {
		ev = b.log.Warn()
	}
	ev.Str("toast", string(id)).Str("kind", string(kind)).Msg(msg)
}
