package tasks

import (
	"context"
	"slices"

	"github.com/sadopc/nexus/internal/model"
)

// Reorder moves the task sourceID into the slot held by targetID, shifting
// everything in between by one. Unknown ids and dropping a task onto itself
// are no-ops and return a nil Pending.
func (c *Controller) Reorder(sourceID, targetID string) (*Pending, error) {
	return c.moveWith(func(tasks []model.Task) (int, int, bool) {
		from, to := indexOf(tasks, sourceID), indexOf(tasks, targetID)
		return from, to, from >= 0 && to >= 0
	})
}

// Move is the index form of Reorder. A target past the end is clamped to the
// last index; a source out of range is a no-op.
func (c *Controller) Move(from, to int) (*Pending, error) {
	return c.moveWith(func(tasks []model.Task) (int, int, bool) {
		if from < 0 || from >= len(tasks) {
			return 0, 0, false
		}
		return from, max(0, min(to, len(tasks)-1)), true
	})
}

// moveWith applies a single-element move optimistically and submits the
// resulting order as a batch reorder.
func (c *Controller) moveWith(locate func([]model.Task) (from, to int, ok bool)) (*Pending, error) {
	c.mu.Lock()
	if id := model.DuplicateID(c.tasks); id != "" {
		c.mu.Unlock()
		return nil, model.InvariantError("duplicate task id %s in list", id)
	}
	from, to, ok := locate(c.tasks)
	if !ok || from == to {
		c.mu.Unlock()
		return nil, nil
	}

	c.tasks = move(c.tasks, from, to)
	stamp := c.stamp()
	c.applied = stamp
	c.pending++
	p := newPending(stamp)
	job := &reorderJob{ids: model.IDs(c.tasks), stamp: stamp, pending: p}
	start, superseded := c.reorders.push(job)
	if start {
		c.startReorderLocked(job)
	}
	if superseded != nil {
		c.pending--
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if superseded != nil {
		superseded.resolve(model.ErrSuperseded)
	}
	c.emit(snap)
	return p, nil
}

// move removes the element at from and reinserts it at to.
func move(tasks []model.Task, from, to int) []model.Task {
	t := tasks[from]
	out := slices.Delete(slices.Clone(tasks), from, from+1)
	return slices.Insert(out, to, t)
}

type reorderJob struct {
	ids       []string
	stamp     uint64
	pending   *Pending
	cancel    context.CancelFunc
	abandoned bool
}

// reorderQueue keeps at most one batch reorder in flight and at most one
// waiting. A newer order replaces the waiting one, so the last order sent is
// always the latest intent.
type reorderQueue struct {
	inflight *reorderJob
	queued   *reorderJob
}

// push queues job behind the in-flight reorder and returns the Pending of the
// job it replaced. start is true when nothing was in flight and the caller
// must send job now.
func (q *reorderQueue) push(job *reorderJob) (start bool, replaced *Pending) {
	if q.inflight == nil {
		q.inflight = job
		return true, nil
	}
	if q.queued != nil {
		replaced = q.queued.pending
	}
	q.queued = job
	return false, replaced
}

// next promotes the queued job once the in-flight one finished.
func (q *reorderQueue) next(done *reorderJob) *reorderJob {
	if q.inflight != done {
		return nil
	}
	q.inflight = q.queued
	q.queued = nil
	return q.inflight
}

// abandon cancels the in-flight reorder and drops the queued one, returning
// the Pending handles that will never be sent.
func (q *reorderQueue) abandon() []*Pending {
	var dropped []*Pending
	if q.inflight != nil {
		q.inflight.abandoned = true
		if q.inflight.cancel != nil {
			q.inflight.cancel()
		}
	}
	if q.queued != nil {
		dropped = append(dropped, q.queued.pending)
		q.queued = nil
	}
	return dropped
}

func (c *Controller) startReorderLocked(job *reorderJob) {
	ctx, cancel := context.WithTimeout(c.ctx, c.writeTimeout)
	job.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.remote.ReorderTasks(ctx, job.ids)
		cancel()
		c.finishReorder(job, err)
	}()
}

func (c *Controller) finishReorder(job *reorderJob, err error) {
	c.mu.Lock()
	c.pending--
	switch {
	case err == nil:
		if job.stamp > c.orderStamp {
			c.orderStamp = job.stamp
			c.confirmed = orderBy(c.confirmed, job.ids)
		} else {
			c.log.Debug("discarding stale reorder confirmation", "stamp", job.stamp, "confirmed", c.orderStamp)
		}
	case job.abandoned:
		err = model.ErrSuperseded
	default:
		err = model.ReorderError(err)
		c.diverged = true
		c.lastErr = err
		c.log.Warn("reorder failed", "stamp", job.stamp, "err", err)
	}
	if next := c.reorders.next(job); next != nil {
		c.startReorderLocked(next)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
	job.pending.resolve(err)
}

// orderBy arranges tasks in the order of ids. Tasks missing from ids keep
// their relative order at the end.
func orderBy(tasks []model.Task, ids []string) []model.Task {
	byID := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	out := make([]model.Task, 0, len(tasks))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
			delete(byID, id)
		}
	}
	for _, t := range tasks {
		if _, ok := byID[t.ID]; ok {
			out = append(out, t)
		}
	}
	return out
}
