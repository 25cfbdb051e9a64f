package focus

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sadopc/nexus/internal/model"
)

type Phase int

const (
	Idle Phase = iota
	Running
	Paused
	Completed
)

var phaseNames = map[Phase]string{
	Idle:      "IDLE",
	Running:   "RUNNING",
	Paused:    "PAUSED",
	Completed: "COMPLETED",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "UNKNOWN"
}

var ErrBusy = errors.New("timer is not idle")

// Recorder persists completed sessions remotely.
type Recorder interface {
	RecordPomodoro(ctx context.Context, d time.Duration) (model.PomodoroSession, error)
	ListPomodoros(ctx context.Context) ([]model.PomodoroSession, error)
}

// Journal keeps a local record of completed sessions. A session is journaled
// unsynced before the remote record is attempted; SetRemoteID marks it synced.
type Journal interface {
	RecordCompletion(d time.Duration, remoteID string, at time.Time) (int64, error)
	SetRemoteID(id int64, remoteID string) error
}

// Snapshot is the observable timer state. Remaining and Total are seconds.
type Snapshot struct {
	Phase     Phase
	Remaining int
	Total     int
	Completed int
	Seq       uint64
}

// Progress is the elapsed fraction of the current session in [0, 1].
func (s Snapshot) Progress() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Total-s.Remaining) / float64(s.Total)
}

const defaultRecordTimeout = 10 * time.Second

// Timer is a single countdown. Reaching zero records exactly one completed
// session; pausing or resetting never does.
type Timer struct {
	sched         Scheduler
	rec           Recorder
	journal       Journal
	log           *log.Logger
	notify        func(Snapshot)
	now           func() time.Time
	recordTimeout time.Duration

	mu        sync.Mutex
	phase     Phase
	total     int
	remaining int
	completed int
	unacked   int // local completions the recorder has not confirmed
	seeded    bool
	cancel    func()
	gen       uint64
	seq       uint64
}

type Option func(*Timer)

func WithRecorder(r Recorder) Option { return func(t *Timer) { t.rec = r } }

func WithJournal(j Journal) Option { return func(t *Timer) { t.journal = j } }

func WithScheduler(s Scheduler) Option { return func(t *Timer) { t.sched = s } }

func WithLogger(l *log.Logger) Option {
	return func(t *Timer) {
		if l != nil {
			t.log = l
		}
	}
}

// WithNotify registers a callback for every state change. It runs without
// the timer lock held, on whichever goroutine caused the change.
func WithNotify(fn func(Snapshot)) Option { return func(t *Timer) { t.notify = fn } }

func New(total time.Duration, opts ...Option) *Timer {
	secs := int(total / time.Second)
	if secs <= 0 {
		secs = int(model.DefaultFocusDuration / time.Second)
	}
	t := &Timer{
		sched:         TickerScheduler(),
		log:           log.New(io.Discard),
		now:           time.Now,
		recordTimeout: defaultRecordTimeout,
		phase:         Idle,
		total:         secs,
		remaining:     secs,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Timer) snapshotLocked() Snapshot {
	t.seq++
	return Snapshot{
		Phase:     t.phase,
		Remaining: t.remaining,
		Total:     t.total,
		Completed: t.completed,
		Seq:       t.seq,
	}
}

func (t *Timer) emit(s Snapshot) {
	if t.notify != nil {
		t.notify(s)
	}
}

// Start begins or resumes the countdown. It reports false when the timer was
// already running; a second tick stream is never armed.
func (t *Timer) Start() bool {
	t.mu.Lock()
	if t.phase == Running {
		t.mu.Unlock()
		return false
	}
	t.phase = Running
	t.gen++
	gen := t.gen
	t.cancel = t.sched.Every(time.Second, func() { t.tick(gen) })
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.log.Debug("focus started", "remaining", snap.Remaining)
	t.emit(snap)
	return true
}

// Pause halts a running countdown. It reports false when nothing was running.
func (t *Timer) Pause() bool {
	t.mu.Lock()
	if t.phase != Running {
		t.mu.Unlock()
		return false
	}
	t.stopLocked()
	t.phase = Paused
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.log.Debug("focus paused", "remaining", snap.Remaining)
	t.emit(snap)
	return true
}

// Toggle pauses a running timer and starts any other.
func (t *Timer) Toggle() {
	if !t.Pause() {
		t.Start()
	}
}

// Reset returns to idle with a full session and records nothing.
func (t *Timer) Reset() {
	t.mu.Lock()
	t.stopLocked()
	t.phase = Idle
	t.remaining = t.total
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.emit(snap)
}

// Close stops ticking without touching the phase.
func (t *Timer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// stopLocked cancels the tick stream. Bumping gen makes any tick already
// queued by the scheduler a no-op.
func (t *Timer) stopLocked() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.gen++
}

// SetTotal changes the session length. Only an idle timer accepts it.
func (t *Timer) SetTotal(d time.Duration) error {
	secs := int(d / time.Second)
	if secs <= 0 {
		return errors.New("focus length must be at least one second")
	}
	t.mu.Lock()
	if t.phase != Idle {
		t.mu.Unlock()
		return ErrBusy
	}
	t.total = secs
	t.remaining = secs
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.emit(snap)
	return nil
}

func (t *Timer) tick(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.phase != Running {
		t.mu.Unlock()
		return
	}
	t.remaining--
	if t.remaining > 0 {
		snap := t.snapshotLocked()
		t.mu.Unlock()
		t.emit(snap)
		return
	}

	t.stopLocked()
	t.remaining = 0
	t.phase = Completed
	t.completed++
	if t.rec != nil {
		t.unacked++
	}
	done := t.snapshotLocked()
	total := time.Duration(t.total) * time.Second
	t.phase = Idle
	t.remaining = t.total
	idle := t.snapshotLocked()
	t.mu.Unlock()

	t.log.Info("focus session completed", "duration", total, "count", done.Completed)
	// Journal first so observers of the completed snapshot can read the row.
	id, journaled := t.journalCompletion(total)
	t.emit(done)
	t.record(total, id, journaled)
	t.emit(idle)
}

func (t *Timer) journalCompletion(d time.Duration) (int64, bool) {
	if t.journal == nil {
		return 0, false
	}
	id, err := t.journal.RecordCompletion(d, "", t.now())
	if err != nil {
		t.log.Warn("journal focus session", "err", err)
		return 0, false
	}
	return id, true
}

// record is the remote side effect of a completion. Failures are logged,
// never surfaced: a lost record must not keep the timer from going idle.
func (t *Timer) record(d time.Duration, id int64, journaled bool) {
	if t.rec == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.recordTimeout)
	session, err := t.rec.RecordPomodoro(ctx, d)
	cancel()
	if err != nil {
		t.log.Warn("record focus session", "err", model.RecordError(err))
		return
	}

	t.mu.Lock()
	t.unacked--
	t.mu.Unlock()

	if journaled {
		if err := t.journal.SetRemoteID(id, session.ID); err != nil {
			t.log.Warn("mark focus session synced", "err", err)
		}
	}
}

// Seed sets the completed count from the remote history plus the local
// completions the recorder never confirmed. Only the first successful seed
// applies; a failure leaves the count alone.
func (t *Timer) Seed(ctx context.Context) error {
	if t.rec == nil {
		return nil
	}
	history, err := t.rec.ListPomodoros(ctx)
	if err != nil {
		t.log.Warn("seed focus count", "err", err)
		return model.FetchError(err)
	}

	t.mu.Lock()
	if t.seeded {
		t.mu.Unlock()
		return nil
	}
	t.seeded = true
	t.completed = max(t.completed, len(history)+t.unacked)
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.emit(snap)
	return nil
}
