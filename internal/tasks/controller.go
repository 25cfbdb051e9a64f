package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sadopc/nexus/internal/model"
)

// Remote is the authoritative task store.
type Remote interface {
	ListTasks(ctx context.Context, filter model.Filter) ([]model.Task, error)
	CreateTask(ctx context.Context, d model.Draft) (model.Task, error)
	UpdateTask(ctx context.Context, id string, p model.Patch) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ReorderTasks(ctx context.Context, ids []string) error
}

// Cache keeps the last confirmed sequence across restarts.
type Cache interface {
	SaveTasks(filter model.Filter, tasks []model.Task) error
	LoadTasks() (model.Filter, []model.Task, error)
}

const defaultWriteTimeout = 15 * time.Second

// Snapshot is an immutable view of the controller state.
type Snapshot struct {
	Tasks   []model.Task
	Filter  model.Filter
	Version uint64 // newest stamp issued
	Seq     uint64 // increases with every snapshot, for dropping out-of-order notifications
	Pending int    // remote writes not yet answered
	Stale   bool   // local state may differ from the server
	Err     error  // last write failure since the last successful load
}

// Controller owns the client-visible task order. Local mutations apply
// immediately; remote writes run in the background and never block the next
// local operation.
type Controller struct {
	remote       Remote
	cache        Cache
	log          *log.Logger
	notify       func(Snapshot)
	writeTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	filter    model.Filter
	tasks     []model.Task
	confirmed []model.Task

	version    uint64            // last stamp issued
	applied    uint64            // newest stamp reflected in tasks
	base       uint64            // stamp of the last applied load
	orderStamp uint64            // stamp of the newest confirmed order
	taskStamp  map[string]uint64 // newest local stamp per task

	pending     int
	diverged    bool
	unconfirmed bool
	lastErr     error
	seq         uint64

	reorders reorderQueue
}

type Option func(*Controller)

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithNotify registers a callback that receives a snapshot after every state
// change. It is called without the controller lock held, possibly from a
// background goroutine.
func WithNotify(fn func(Snapshot)) Option {
	return func(c *Controller) { c.notify = fn }
}

func WithCache(cache Cache) Option {
	return func(c *Controller) { c.cache = cache }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

func New(remote Remote, opts ...Option) *Controller {
	c := &Controller{
		remote:       remote,
		log:          log.New(io.Discard),
		writeTimeout: defaultWriteTimeout,
		filter:       model.FilterAll,
		taskStamp:    make(map[string]uint64),
	}
	for _, o := range opts {
		o(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.prime()
	return c
}

// prime shows the cached sequence until the first load confirms it.
func (c *Controller) prime() {
	if c.cache == nil {
		return
	}
	filter, cached, err := c.cache.LoadTasks()
	if err != nil {
		c.log.Warn("load cached tasks", "err", err)
		return
	}
	if id := model.DuplicateID(cached); id != "" {
		c.log.Warn("ignoring cached tasks with duplicate id", "id", id)
		return
	}
	c.filter = filter
	c.tasks = cached
	c.confirmed = slices.Clone(cached)
	c.unconfirmed = len(cached) > 0
}

// Close cancels outstanding writes and waits for them to finish.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) Tasks() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.tasks)
}

// Confirmed returns the last sequence the server acknowledged.
func (c *Controller) Confirmed() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.confirmed)
}

func (c *Controller) Filter() model.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

func (c *Controller) snapshotLocked() Snapshot {
	c.seq++
	return Snapshot{
		Tasks:   slices.Clone(c.tasks),
		Filter:  c.filter,
		Version: c.version,
		Seq:     c.seq,
		Pending: c.pending,
		Stale:   c.pending > 0 || c.diverged || c.unconfirmed,
		Err:     c.lastErr,
	}
}

func (c *Controller) emit(s Snapshot) {
	if c.notify != nil {
		c.notify(s)
	}
}

func (c *Controller) stamp() uint64 {
	c.version++
	return c.version
}

// Load replaces the local sequence with the server's. On failure the previous
// sequence is kept.
func (c *Controller) Load(ctx context.Context, filter model.Filter) error {
	c.mu.Lock()
	stamp := c.stamp()
	c.mu.Unlock()

	fetched, err := c.remote.ListTasks(ctx, filter)
	if err != nil {
		c.log.Warn("load tasks", "filter", filter, "err", err)
		return model.FetchError(err)
	}
	if id := model.DuplicateID(fetched); id != "" {
		return model.InvariantError("server returned duplicate task id %s", id)
	}

	c.mu.Lock()
	if applied := c.applied; applied > stamp {
		c.mu.Unlock()
		c.log.Debug("discarding stale load", "stamp", stamp, "applied", applied)
		return fmt.Errorf("load tasks: %w", model.ErrSuperseded)
	}
	c.filter = filter
	c.tasks = fetched
	c.confirmed = slices.Clone(fetched)
	c.applied = stamp
	c.base = stamp
	c.orderStamp = stamp
	clear(c.taskStamp)
	c.diverged = false
	c.unconfirmed = false
	c.lastErr = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if c.cache != nil {
		if err := c.cache.SaveTasks(filter, fetched); err != nil {
			c.log.Warn("cache tasks", "err", err)
		}
	}
	c.emit(snap)
	return nil
}

// Reconcile abandons the in-flight reorder, drops any queued one and reloads
// the current filter from the server.
func (c *Controller) Reconcile(ctx context.Context) error {
	c.mu.Lock()
	dropped := c.reorders.abandon()
	c.pending -= len(dropped)
	filter := c.filter
	c.mu.Unlock()

	for _, p := range dropped {
		p.resolve(model.ErrSuperseded)
	}
	return c.Load(ctx, filter)
}

// Add creates a task and appends the server's copy. Nothing changes locally
// when creation fails.
func (c *Controller) Add(ctx context.Context, d model.Draft) (model.Task, error) {
	draft, err := d.Normalize()
	if err != nil {
		return model.Task{}, model.CreateError(d, err)
	}
	created, err := c.remote.CreateTask(ctx, draft)
	if err != nil {
		c.log.Warn("create task", "title", draft.Title, "err", err)
		return model.Task{}, model.CreateError(draft, err)
	}

	c.mu.Lock()
	if indexOf(c.tasks, created.ID) >= 0 {
		c.mu.Unlock()
		return model.Task{}, model.InvariantError("created task id %s already listed", created.ID)
	}
	stamp := c.stamp()
	c.applied = stamp
	c.tasks = append(slices.Clone(c.tasks), created)
	c.confirmed = append(slices.Clone(c.confirmed), created)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
	return created, nil
}

// ToggleStatus flips a task between active and completed locally and then
// persists it. A failed write is not rolled back; it marks the list stale.
func (c *Controller) ToggleStatus(id string) (*Pending, error) {
	c.mu.Lock()
	i := indexOf(c.tasks, id)
	if i < 0 {
		c.mu.Unlock()
		return nil, model.UpdateError(id, model.ErrNotFound)
	}
	status := c.tasks[i].Status.Flip()
	c.tasks = slices.Clone(c.tasks)
	c.tasks[i].Status = status
	stamp := c.stamp()
	c.applied = stamp
	c.taskStamp[id] = stamp
	c.pending++
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)

	p := newPending(stamp)
	c.write(p, func(err error) error { return model.UpdateError(id, err) }, func(ctx context.Context) error {
		updated, err := c.remote.UpdateTask(ctx, id, model.Patch{Status: &status})
		if err != nil {
			return err
		}
		c.confirmTask(stamp, updated)
		return nil
	})
	return p, nil
}

// Remove drops a task locally and then deletes it remotely. A failed delete
// is not rolled back; it marks the list stale.
func (c *Controller) Remove(id string) (*Pending, error) {
	c.mu.Lock()
	i := indexOf(c.tasks, id)
	if i < 0 {
		c.mu.Unlock()
		return nil, model.DeleteError(id, model.ErrNotFound)
	}
	c.tasks = slices.Delete(slices.Clone(c.tasks), i, i+1)
	stamp := c.stamp()
	c.applied = stamp
	c.taskStamp[id] = stamp
	c.pending++
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)

	p := newPending(stamp)
	c.write(p, func(err error) error { return model.DeleteError(id, err) }, func(ctx context.Context) error {
		if err := c.remote.DeleteTask(ctx, id); err != nil {
			return err
		}
		c.mu.Lock()
		if stamp > c.base {
			if j := indexOf(c.confirmed, id); j >= 0 {
				c.confirmed = slices.Delete(slices.Clone(c.confirmed), j, j+1)
			}
		}
		c.mu.Unlock()
		return nil
	})
	return p, nil
}

// confirmTask records the server's copy of an updated task. The visible copy
// is only replaced when no newer local change touched the same task.
func (c *Controller) confirmTask(stamp uint64, t model.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stamp <= c.base {
		return
	}
	if j := indexOf(c.confirmed, t.ID); j >= 0 {
		c.confirmed = slices.Clone(c.confirmed)
		c.confirmed[j] = t
	}
	if c.taskStamp[t.ID] != stamp {
		c.log.Debug("discarding stale task response", "id", t.ID, "stamp", stamp)
		return
	}
	if i := indexOf(c.tasks, t.ID); i >= 0 {
		c.tasks = slices.Clone(c.tasks)
		c.tasks[i] = t
	}
}

// write runs a remote mutation in the background and resolves p with its
// outcome.
func (c *Controller) write(p *Pending, kind func(error) error, do func(ctx context.Context) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(c.ctx, c.writeTimeout)
		err := do(ctx)
		cancel()
		if err != nil {
			err = kind(err)
			c.log.Warn("task write failed", "stamp", p.Version(), "err", err)
		}

		c.mu.Lock()
		c.pending--
		if err != nil {
			c.diverged = true
			c.lastErr = err
		}
		snap := c.snapshotLocked()
		c.mu.Unlock()

		c.emit(snap)
		p.resolve(err)
	}()
}

func indexOf(tasks []model.Task, id string) int {
	return slices.IndexFunc(tasks, func(t model.Task) bool { return t.ID == id })
}

// IsSuperseded reports whether err only means a newer change replaced the
// request. Callers usually ignore such errors.
func IsSuperseded(err error) bool {
	return errors.Is(err, model.ErrSuperseded)
}
