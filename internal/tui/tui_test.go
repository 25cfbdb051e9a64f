package tui

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/sadopc/nexus/internal/focus"
	"github.com/sadopc/nexus/internal/model"
	"github.com/sadopc/nexus/internal/store"
	"github.com/sadopc/nexus/internal/tasks"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// memRemote is a minimal in-memory backend.
type memRemote struct {
	mu    sync.Mutex
	tasks []model.Task
}

func newMemRemote(titles ...string) *memRemote {
	r := &memRemote{}
	for i, title := range titles {
		r.tasks = append(r.tasks, model.Task{
			ID:       title,
			Title:    title,
			Category: model.DefaultCategory,
			Priority: model.PriorityMedium,
			Status:   model.StatusActive,
			Order:    i,
		})
	}
	return r
}

func (r *memRemote) ListTasks(_ context.Context, filter model.Filter) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Task
	for _, t := range r.tasks {
		if filter.Match(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memRemote) CreateTask(_ context.Context, d model.Draft) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := model.Task{ID: d.Title, Title: d.Title, Category: d.Category, Priority: d.Priority, Status: model.StatusActive, Order: len(r.tasks)}
	r.tasks = append(r.tasks, t)
	return t, nil
}

func (r *memRemote) UpdateTask(_ context.Context, id string, p model.Patch) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.tasks {
		if t.ID == id {
			r.tasks[i] = p.Apply(t)
			return r.tasks[i], nil
		}
	}
	return model.Task{}, errors.New("not found")
}

func (r *memRemote) DeleteTask(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.tasks {
		if t.ID == id {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (r *memRemote) ReorderTasks(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	for i := range r.tasks {
		if p, ok := pos[r.tasks[i].ID]; ok {
			r.tasks[i].Order = p
		}
	}
	return nil
}

// idleScheduler never fires; tests drive the timer through its methods.
type idleScheduler struct{}

func (idleScheduler) Every(time.Duration, func()) func() { return func() {} }

type testDeps struct {
	Deps
	remote *memRemote
}

func newTestDeps(t *testing.T, titles ...string) testDeps {
	t.Helper()
	s := newTestStore(t)
	r := newMemRemote(titles...)
	b := NewBridge()
	ctl := tasks.New(r, tasks.WithNotify(b.Tasks))
	t.Cleanup(ctl.Close)
	tm := focus.New(25*time.Minute, focus.WithScheduler(idleScheduler{}), focus.WithJournal(s), focus.WithNotify(b.Focus))
	t.Cleanup(tm.Close)
	return testDeps{
		Deps:   Deps{Ctx: context.Background(), Store: s, Tasks: ctl, Timer: tm, Bridge: b},
		remote: r,
	}
}

func newTestApp(t *testing.T, titles ...string) (App, testDeps) {
	t.Helper()
	d := newTestDeps(t, titles...)
	app := NewApp(d.Deps)
	app.width = 120
	app.height = 40
	return app, d
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var space = tea.KeyMsg{Type: tea.KeySpace}

func loadedTaskList(t *testing.T, d testDeps) taskListModel {
	t.Helper()
	if err := d.Tasks.Load(context.Background(), model.FilterAll); err != nil {
		t.Fatalf("load: %v", err)
	}
	m := newTaskListModel(context.Background(), d.Tasks)
	m.setSize(120, 40)
	m.refresh()
	return m
}

func taskTitles(ts []model.Task) string {
	var out []string
	for _, t := range ts {
		out = append(out, t.Title)
	}
	return strings.Join(out, ",")
}

// ============================================================
// Task list
// ============================================================

func TestTaskListCursor(t *testing.T) {
	m := loadedTaskList(t, newTestDeps(t, "a", "b", "c"))

	if m.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", m.cursor)
	}
	m, _ = m.update(runes("j"))
	m, _ = m.update(runes("j"))
	m, _ = m.update(runes("j"))
	if m.cursor != 2 {
		t.Fatalf("cursor = %d, want 2 (clamped)", m.cursor)
	}
	m, _ = m.update(runes("k"))
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}
}

func TestTaskListToggle(t *testing.T) {
	d := newTestDeps(t, "a", "b")
	m := loadedTaskList(t, d)

	m, cmd := m.update(space)
	if !m.snap.Tasks[0].Completed() {
		t.Fatal("toggle should apply locally before the write returns")
	}
	if cmd == nil {
		t.Fatal("toggle should wait on the remote write")
	}
	if msg := cmd(); msg != nil {
		t.Fatalf("successful write should report nothing, got %#v", msg)
	}
	if got, _ := d.remote.ListTasks(context.Background(), model.FilterCompleted); len(got) != 1 {
		t.Fatalf("remote completed = %d, want 1", len(got))
	}
}

func TestTaskListDelete(t *testing.T) {
	d := newTestDeps(t, "a", "b", "c")
	m := loadedTaskList(t, d)
	m, _ = m.update(runes("j"))

	m, cmd := m.update(runes("d"))
	if got := taskTitles(m.snap.Tasks); got != "a,c" {
		t.Fatalf("tasks = %s, want a,c", got)
	}
	if cmd != nil {
		cmd()
	}
}

func TestTaskListMoveKeepsSelection(t *testing.T) {
	d := newTestDeps(t, "a", "b", "c")
	m := loadedTaskList(t, d)

	m, cmd := m.update(runes("J"))
	if got := taskTitles(m.snap.Tasks); got != "b,a,c" {
		t.Fatalf("tasks = %s, want b,a,c", got)
	}
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1 (follows the moved task)", m.cursor)
	}
	if cmd != nil {
		cmd()
	}

	m, _ = m.update(runes("K"))
	if got := taskTitles(m.snap.Tasks); got != "a,b,c" {
		t.Fatalf("tasks = %s, want a,b,c", got)
	}
	if m.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", m.cursor)
	}
}

func TestTaskListMoveAtEdge(t *testing.T) {
	m := loadedTaskList(t, newTestDeps(t, "a", "b"))

	m, cmd := m.update(runes("K"))
	if cmd != nil {
		t.Fatal("moving the first task up should do nothing")
	}
	if got := taskTitles(m.snap.Tasks); got != "a,b" {
		t.Fatalf("tasks = %s, want a,b", got)
	}
}

func TestTaskListIgnoresOlderSnapshot(t *testing.T) {
	m := loadedTaskList(t, newTestDeps(t, "a", "b"))

	old := tasks.Snapshot{Seq: 0}
	m, _ = m.update(tasksSnapshotMsg{snap: old})
	if len(m.snap.Tasks) != 2 {
		t.Fatal("an older snapshot must not replace a newer one")
	}

	newer := tasks.Snapshot{Seq: m.snap.Seq + 1, Filter: model.FilterAll}
	m, _ = m.update(tasksSnapshotMsg{snap: newer})
	if len(m.snap.Tasks) != 0 {
		t.Fatal("a newer snapshot should replace the list")
	}
}

func TestTaskListFilterCycles(t *testing.T) {
	d := newTestDeps(t, "a", "b")
	m := loadedTaskList(t, d)

	m, cmd := m.update(runes("f"))
	if !m.loading {
		t.Fatal("filter change should mark the list loading")
	}
	m, _ = m.update(cmd())
	if m.loading {
		t.Fatal("loading should clear after the load finishes")
	}
	if m.snap.Filter != model.FilterAll.Next() {
		t.Fatalf("filter = %s, want %s", m.snap.Filter, model.FilterAll.Next())
	}
}

func TestTaskListFormOpensAndCancels(t *testing.T) {
	m := loadedTaskList(t, newTestDeps(t))

	m, _ = m.update(runes("n"))
	if !m.formActive {
		t.Fatal("n should open the new task form")
	}
	if !strings.Contains(m.view(), "New Task") {
		t.Fatal("form view should be shown")
	}
	m, _ = m.update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.formActive {
		t.Fatal("esc should close the form")
	}
}

func TestTaskListSnapshotWhileFormOpen(t *testing.T) {
	m := loadedTaskList(t, newTestDeps(t, "a"))
	m, _ = m.update(runes("n"))

	newer := tasks.Snapshot{Seq: m.snap.Seq + 1, Filter: model.FilterAll}
	m, _ = m.update(tasksSnapshotMsg{snap: newer})
	if m.snap.Seq != newer.Seq {
		t.Fatal("snapshots must be applied while the form is open")
	}
}

func TestTaskListTruncatesWideTitles(t *testing.T) {
	long := strings.Repeat("日本語のタスク", 20)
	m := loadedTaskList(t, newTestDeps(t, long, "short"))

	out := m.renderRows(120)
	if !utf8.ValidString(out) {
		t.Fatal("truncation must not split a multibyte character")
	}
	if strings.Contains(out, long) {
		t.Fatal("a title wider than the row should be truncated")
	}
	if !strings.Contains(out, "…") {
		t.Fatal("a truncated title should end with an ellipsis")
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "日本語") && ansi.StringWidth(line) > 120 {
			t.Fatalf("row is %d cells wide, want at most 120", ansi.StringWidth(line))
		}
	}
	if !strings.Contains(out, "short") {
		t.Fatal("short titles render unchanged")
	}
}

func TestTaskListEmptyView(t *testing.T) {
	m := loadedTaskList(t, newTestDeps(t))
	if !strings.Contains(m.view(), "No tasks") {
		t.Fatal("empty list should say so")
	}
}

func TestValidateDue(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"", false},
		{"2026-03-14", false},
		{" 2026-03-14 ", false},
		{"14/03/2026", true},
		{"tomorrow", true},
	}
	for _, tt := range tests {
		if err := validateDue(tt.in); (err != nil) != tt.wantErr {
			t.Errorf("validateDue(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestValidateTitle(t *testing.T) {
	if validateTitle("  ") == nil {
		t.Fatal("blank title should be rejected")
	}
	if validateTitle("Read") != nil {
		t.Fatal("non-blank title should pass")
	}
}

// ============================================================
// Focus view
// ============================================================

func TestFocusStartPauseReset(t *testing.T) {
	d := newTestDeps(t)
	f := newFocusModel(context.Background(), d.Timer, d.Store)

	if f.running() || f.paused() {
		t.Fatal("focus should start idle")
	}
	f, _ = f.update(runes("s"))
	if !f.running() {
		t.Fatal("s should start the timer")
	}
	f, _ = f.update(space)
	if !f.paused() {
		t.Fatal("space should pause a running timer")
	}
	f, _ = f.update(space)
	if !f.running() {
		t.Fatal("space should resume a paused timer")
	}
	f, _ = f.update(runes("x"))
	if f.snap.Phase != focus.Idle {
		t.Fatalf("phase = %s, want idle", f.snap.Phase)
	}
	if f.snap.Remaining != 1500 {
		t.Fatalf("remaining = %d, want 1500", f.snap.Remaining)
	}
}

func TestFocusResetAppliesSetting(t *testing.T) {
	d := newTestDeps(t)
	if err := d.Store.SetSetting(store.SettingPomodoroWork, "600"); err != nil {
		t.Fatal(err)
	}
	f := newFocusModel(context.Background(), d.Timer, d.Store)
	f, _ = f.update(runes("s"))
	f, _ = f.update(runes("x"))
	if f.snap.Total != 600 {
		t.Fatalf("total = %d, want 600", f.snap.Total)
	}
}

func TestFocusCompletionPostsStatus(t *testing.T) {
	d := newTestDeps(t)
	f := newFocusModel(context.Background(), d.Timer, d.Store)

	running := focus.Snapshot{Phase: focus.Running, Remaining: 1, Total: 1500, Seq: f.snap.Seq + 1}
	f, cmd := f.update(focusSnapshotMsg{snap: running})
	if cmd != nil {
		t.Fatal("a tick should not post anything")
	}

	idle := focus.Snapshot{Phase: focus.Idle, Remaining: 1500, Total: 1500, Completed: 1, Seq: running.Seq + 1}
	f, cmd = f.update(focusSnapshotMsg{snap: idle})
	if cmd == nil {
		t.Fatal("completion should post a status")
	}
	if f.snap.Completed != 1 {
		t.Fatalf("completed = %d, want 1", f.snap.Completed)
	}
}

func TestFocusIgnoresOlderSnapshot(t *testing.T) {
	d := newTestDeps(t)
	f := newFocusModel(context.Background(), d.Timer, d.Store)
	f, _ = f.update(runes("s"))

	f, _ = f.update(focusSnapshotMsg{snap: focus.Snapshot{Phase: focus.Idle}})
	if !f.running() {
		t.Fatal("an older snapshot must not replace a newer one")
	}
}

func TestFocusTodayCount(t *testing.T) {
	d := newTestDeps(t)
	now := time.Now().UTC()
	for i := 0; i < 2; i++ {
		if _, err := d.Store.RecordCompletion(25*time.Minute, "", now); err != nil {
			t.Fatal(err)
		}
	}
	f := newFocusModel(context.Background(), d.Timer, d.Store)
	f.setSize(120, 40)

	f, _ = f.update(f.refreshToday()())
	if f.today != 2 {
		t.Fatalf("today = %d, want 2", f.today)
	}
	if !strings.Contains(f.view(), "2/4 today") {
		t.Fatal("view should show progress against the daily goal")
	}
}

func TestFocusSeedWithoutRecorder(t *testing.T) {
	d := newTestDeps(t)
	f := newFocusModel(context.Background(), d.Timer, d.Store)
	if _, ok := f.seed()().(focusSeededMsg); !ok {
		t.Fatal("seeding without a recorder should succeed quietly")
	}
}

// ============================================================
// Stats view
// ============================================================

func TestStatsRefresh(t *testing.T) {
	d := newTestDeps(t)
	now := time.Now().UTC()
	if _, err := d.Store.RecordCompletion(25*time.Minute, "p1", now); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Store.RecordCompletion(30*time.Minute, "", now); err != nil {
		t.Fatal(err)
	}

	r := newStatsModel(d.Store)
	r.setSize(120, 40)
	r, _ = r.update(r.refresh()())

	sessions, secs := r.totals()
	if sessions != 2 {
		t.Fatalf("sessions = %d, want 2", sessions)
	}
	if secs != 55*60 {
		t.Fatalf("seconds = %d, want %d", secs, 55*60)
	}
	if !strings.Contains(r.view(), now.Format("2006-01-02")) {
		t.Fatal("table should list today")
	}
}

func TestStatsEmpty(t *testing.T) {
	d := newTestDeps(t)
	r := newStatsModel(d.Store)
	r.setSize(120, 40)
	r, _ = r.update(r.refresh()())
	if !strings.Contains(r.view(), "No focus sessions") {
		t.Fatal("empty period should say so")
	}
}

func TestStatsDateRange(t *testing.T) {
	d := newTestDeps(t)
	r := newStatsModel(d.Store)

	from, to := r.dateRange()
	if to.Sub(from) != 7*24*time.Hour {
		t.Fatalf("daily span = %v, want 7 days", to.Sub(from))
	}
	if now := time.Now().UTC(); now.Before(from) || !now.Before(to) {
		t.Fatal("daily range should include today")
	}

	r.mode = statsWeekly
	from, _ = r.dateRange()
	if from.Weekday() != time.Monday {
		t.Fatalf("week starts on %s, want Monday", from.Weekday())
	}

	r.offset = 1
	prev, _ := r.dateRange()
	if from.Sub(prev) != 7*24*time.Hour {
		t.Fatal("offset should step back one week")
	}
}

func TestStatsNavigation(t *testing.T) {
	d := newTestDeps(t)
	r := newStatsModel(d.Store)

	r, _ = r.update(runes("h"))
	if r.offset != 1 {
		t.Fatalf("offset = %d, want 1", r.offset)
	}
	r, _ = r.update(runes("l"))
	r, _ = r.update(runes("l"))
	if r.offset != 0 {
		t.Fatalf("offset = %d, want 0 (never in the future)", r.offset)
	}
	r, _ = r.update(tea.KeyMsg{Type: tea.KeyEnter})
	if r.mode != statsWeekly {
		t.Fatal("enter should switch to weekly")
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsSaveAppliesToIdleTimer(t *testing.T) {
	d := newTestDeps(t)
	s := newSettingsModel(d.Store, d.Timer)
	*s.focusMinutes = "30"
	*s.dailyGoal = "6"

	if cmd := s.saveSettings(); cmd == nil {
		t.Fatal("save should report back")
	}
	if v, _ := d.Store.GetSetting(store.SettingPomodoroWork); v != "1800" {
		t.Fatalf("pomodoro_work = %q, want 1800", v)
	}
	if v, _ := d.Store.GetSetting(store.SettingDailyGoal); v != "6" {
		t.Fatalf("daily_goal = %q, want 6", v)
	}
	if got := d.Timer.Snapshot().Total; got != 1800 {
		t.Fatalf("timer total = %d, want 1800", got)
	}
}

func TestSettingsSaveWhileRunningKeepsLength(t *testing.T) {
	d := newTestDeps(t)
	d.Timer.Start()
	s := newSettingsModel(d.Store, d.Timer)
	*s.focusMinutes = "50"
	*s.dailyGoal = "4"

	s.saveSettings()
	if got := d.Timer.Snapshot().Total; got != 1500 {
		t.Fatalf("running timer total = %d, want 1500", got)
	}
	if v, _ := d.Store.GetSetting(store.SettingPomodoroWork); v != "3000" {
		t.Fatalf("pomodoro_work = %q, want 3000", v)
	}
}

func TestSecsToMin(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1500", "25"},
		{"300", "5"},
		{"0", "0"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		if got := secsToMin(tt.in); got != tt.want {
			t.Errorf("secsToMin(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMinToSecs(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"25", "1500"},
		{"5", "300"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		if got := minToSecs(tt.in); got != tt.want {
			t.Errorf("minToSecs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSettingValue(t *testing.T) {
	tests := []struct {
		key, val, want string
	}{
		{store.SettingPomodoroWork, "1500", "25 min"},
		{store.SettingDailyGoal, "4", "4 sessions"},
		{store.SettingTaskFilter, "active", "active"},
	}
	for _, tt := range tests {
		if got := formatSettingValue(tt.key, tt.val); got != tt.want {
			t.Errorf("formatSettingValue(%q, %q) = %q, want %q", tt.key, tt.val, got, tt.want)
		}
	}
}

func TestPositiveInt(t *testing.T) {
	for _, in := range []string{"0", "-3", "x", ""} {
		if positiveInt(in) == nil {
			t.Errorf("positiveInt(%q) should fail", in)
		}
	}
	if positiveInt("25") != nil {
		t.Error("positiveInt(25) should pass")
	}
}

// ============================================================
// Bridge
// ============================================================

func TestMailboxKeepsNewest(t *testing.T) {
	m := newMailbox[int](nil)
	m.put(1)
	m.put(2)
	m.put(3)
	if got := <-m.ch; got != 3 {
		t.Fatalf("got %d, want 3", got)
	}
	select {
	case v := <-m.ch:
		t.Fatalf("mailbox should be empty, got %d", v)
	default:
	}
}

func TestMailboxKeepsHigherSeq(t *testing.T) {
	b := NewBridge()
	b.Tasks(tasks.Snapshot{Seq: 6})
	b.Tasks(tasks.Snapshot{Seq: 5})
	msg := b.waitTasks()().(tasksSnapshotMsg)
	if msg.snap.Seq != 6 {
		t.Fatalf("tasks seq = %d, want 6", msg.snap.Seq)
	}

	b.Focus(focus.Snapshot{Seq: 6, Completed: 1})
	b.Focus(focus.Snapshot{Seq: 5})
	fmsg := b.waitFocus()().(focusSnapshotMsg)
	if fmsg.snap.Seq != 6 || fmsg.snap.Completed != 1 {
		t.Fatalf("focus snapshot = %+v, want seq 6", fmsg.snap)
	}

	b.Focus(focus.Snapshot{Seq: 7})
	b.Focus(focus.Snapshot{Seq: 8})
	if fmsg = b.waitFocus()().(focusSnapshotMsg); fmsg.snap.Seq != 8 {
		t.Fatalf("focus seq = %d, want 8", fmsg.snap.Seq)
	}
}

func TestMailboxConcurrentPutsKeepMax(t *testing.T) {
	b := NewBridge()
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(seq uint64) {
			defer wg.Done()
			b.Tasks(tasks.Snapshot{Seq: seq})
		}(uint64(i))
	}
	wg.Wait()
	if msg := b.waitTasks()().(tasksSnapshotMsg); msg.snap.Seq != 50 {
		t.Fatalf("seq = %d, want 50", msg.snap.Seq)
	}
}

func TestBridgeDeliversSnapshots(t *testing.T) {
	b := NewBridge()
	b.Tasks(tasks.Snapshot{Seq: 7})
	msg, ok := b.waitTasks()().(tasksSnapshotMsg)
	if !ok || msg.snap.Seq != 7 {
		t.Fatalf("got %#v, want tasks snapshot 7", msg)
	}

	b.Focus(focus.Snapshot{Seq: 3})
	fmsg, ok := b.waitFocus()().(focusSnapshotMsg)
	if !ok || fmsg.snap.Seq != 3 {
		t.Fatalf("got %#v, want focus snapshot 3", fmsg)
	}

	b.Unauthorized()
	b.Unauthorized()
	if _, ok := b.waitUnauthorized()().(unauthorizedMsg); !ok {
		t.Fatal("expected unauthorizedMsg")
	}
}

// ============================================================
// Helpers
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{time.Second, "00:00:01"},
		{time.Minute, "00:01:00"},
		{time.Hour, "01:00:00"},
		{time.Hour + time.Minute + time.Second, "01:01:01"},
		{25 * time.Hour, "25:00:00"},
	}
	for _, tt := range tests {
		got := formatDuration(tt.d)
		if got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := formatSeconds(3661); got != "01:01:01" {
		t.Fatalf("formatSeconds(3661) = %q", got)
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		secs int
		want string
	}{
		{1500, "25:00"},
		{59, "00:59"},
		{0, "00:00"},
		{-5, "00:00"},
		{6000, "100:00"},
	}
	for _, tt := range tests {
		if got := formatClock(tt.secs); got != tt.want {
			t.Errorf("formatClock(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestErrorStatus(t *testing.T) {
	msg := errorStatus("Load failed", errors.New("boom"))
	if !msg.isError || msg.text != "Load failed: boom" {
		t.Fatalf("got %#v", msg)
	}
}

func TestViewNames(t *testing.T) {
	if len(viewNames) != 4 {
		t.Fatalf("expected 4 view names, got %d", len(viewNames))
	}
	if viewNames[viewTasks] != "Tasks" || viewNames[viewSettings] != "Settings" {
		t.Fatal("view names out of order")
	}
}

// ============================================================
// App model
// ============================================================

func TestNewApp(t *testing.T) {
	app, _ := newTestApp(t)

	if app.activeView != viewTasks {
		t.Fatal("default view should be tasks")
	}
	if app.showHelp {
		t.Fatal("help should be hidden by default")
	}
	if app.exportPicking {
		t.Fatal("export picker should be hidden by default")
	}
	if app.isFormActive() {
		t.Fatal("no forms should be active initially")
	}
}

func TestAppViewStates(t *testing.T) {
	app, _ := newTestApp(t, "a", "b")

	for _, v := range []viewState{viewTasks, viewFocus, viewStats, viewSettings} {
		app.activeView = v
		if app.View() == "" {
			t.Fatalf("view %d rendered empty", v)
		}
	}
}

func TestAppTabSwitching(t *testing.T) {
	app, _ := newTestApp(t)

	next, _ := app.Update(runes("2"))
	app = next.(App)
	if app.activeView != viewFocus {
		t.Fatalf("view = %d, want focus", app.activeView)
	}
	next, _ = app.Update(tea.KeyMsg{Type: tea.KeyTab})
	app = next.(App)
	if app.activeView != viewStats {
		t.Fatalf("view = %d, want stats", app.activeView)
	}
	next, _ = app.Update(runes("4"))
	next, _ = next.(App).Update(tea.KeyMsg{Type: tea.KeyTab})
	if next.(App).activeView != viewTasks {
		t.Fatal("tab should wrap around to tasks")
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	app, _ := newTestApp(t)

	header := app.renderHeader()
	if !strings.Contains(header, "nexus") {
		t.Fatal("header missing title")
	}
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
}

func TestAppLoadingState(t *testing.T) {
	d := newTestDeps(t)
	app := NewApp(d.Deps)
	// Width 0 means not yet sized
	if output := app.View(); output != "Loading..." {
		t.Fatalf("expected 'Loading...', got %q", output)
	}
}

func TestAppStatusMessage(t *testing.T) {
	app, _ := newTestApp(t)

	next, _ := app.Update(statusMsg{text: "test status"})
	if !strings.Contains(next.(App).renderFooter(), "test status") {
		t.Fatal("footer should contain status message")
	}
}

func TestAppFooterShowsRunningTimer(t *testing.T) {
	app, d := newTestApp(t)
	d.Timer.Start()

	next, cmd := app.Update(focusSnapshotMsg{snap: d.Timer.Snapshot()})
	if cmd == nil {
		t.Fatal("focus snapshots should re-arm the bridge wait")
	}
	if !strings.Contains(next.(App).renderFooter(), "25:00") {
		t.Fatal("footer should show the running countdown")
	}
}

func TestAppRoutesSnapshotsToHiddenViews(t *testing.T) {
	app, d := newTestApp(t, "a")
	app.activeView = viewStats

	if err := d.Tasks.Load(context.Background(), model.FilterAll); err != nil {
		t.Fatal(err)
	}
	next, _ := app.Update(tasksSnapshotMsg{snap: d.Tasks.Snapshot()})
	if got := len(next.(App).tasks.snap.Tasks); got != 1 {
		t.Fatalf("task list has %d tasks, want 1", got)
	}
}

func TestAppUnauthorized(t *testing.T) {
	app, _ := newTestApp(t)

	next, cmd := app.Update(unauthorizedMsg{})
	app = next.(App)
	if cmd == nil {
		t.Fatal("unauthorized should re-arm its wait")
	}
	if !app.signedOut || !app.statusErr {
		t.Fatal("app should be signed out with an error status")
	}
	if !strings.Contains(app.renderHeader(), "signed out") {
		t.Fatal("header should show the signed-out state")
	}

	next, _ = app.Update(errorStatus("Update failed", errors.New("401")))
	if !strings.Contains(next.(App).status, "Session expired") {
		t.Fatal("later failures should not hide the signed-out status")
	}
}

func TestAppFormCapturesKeys(t *testing.T) {
	app, _ := newTestApp(t)

	next, _ := app.Update(runes("n"))
	app = next.(App)
	if !app.isFormActive() {
		t.Fatal("n should open the task form")
	}
	next, _ = app.Update(runes("2"))
	if next.(App).activeView != viewTasks {
		t.Fatal("typing into the form must not switch views")
	}
}

func TestAppExportPicker(t *testing.T) {
	app, _ := newTestApp(t)

	next, _ := app.Update(runes("e"))
	app = next.(App)
	if !app.exportPicking {
		t.Fatal("e should open the export picker")
	}
	for i := 0; i < 5; i++ {
		next, _ = app.Update(runes("j"))
		app = next.(App)
	}
	if app.exportCursor != len(exportFormats)-1 {
		t.Fatalf("cursor = %d, want %d", app.exportCursor, len(exportFormats)-1)
	}
	next, _ = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if next.(App).exportPicking {
		t.Fatal("esc should close the picker")
	}
}

func TestAppExportFiles(t *testing.T) {
	app, d := newTestApp(t, "a", "b")
	app.exportDir = t.TempDir()
	if err := d.Tasks.Load(context.Background(), model.FilterAll); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Store.RecordCompletion(25*time.Minute, "p1", time.Now()); err != nil {
		t.Fatal(err)
	}

	for _, f := range []exportFormat{exportTasksCSV, exportTasksJSON, exportSessionsCSV} {
		msg := app.doExport(f)()
		done, ok := msg.(exportDoneMsg)
		if !ok {
			t.Fatalf("format %d: got %#v", f, msg)
		}
		info, err := os.Stat(done.path)
		if err != nil {
			t.Fatalf("format %d: %v", f, err)
		}
		if info.Size() == 0 {
			t.Fatalf("format %d: empty file", f)
		}
	}
}

// ============================================================
// Key bindings
// ============================================================

func TestKeyMapShortHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help should have bindings")
	}
	for v := range viewNames {
		if len(viewKeys{keyMap: keys, view: viewState(v)}.ShortHelp()) == 0 {
			t.Fatalf("view %d has no short help", v)
		}
	}
}

func TestKeyMapFullHelp(t *testing.T) {
	groups := keys.FullHelp()
	if len(groups) == 0 {
		t.Fatal("full help should have groups")
	}
	for i, g := range groups {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}

// ============================================================
// Styles (smoke test, just verify they don't panic)
// ============================================================

func TestStylesRender(t *testing.T) {
	styles := []struct {
		name string
		fn   func() string
	}{
		{"activeTab", func() string { return activeTabStyle.Render("test") }},
		{"inactiveTab", func() string { return inactiveTabStyle.Render("test") }},
		{"panel", func() string { return panelStyle.Render("test") }},
		{"activePanel", func() string { return activePanelStyle.Render("test") }},
		{"timer", func() string { return timerStyle.Render("test") }},
		{"timerRunning", func() string { return timerRunningStyle.Render("test") }},
		{"timerPaused", func() string { return timerPausedStyle.Render("test") }},
		{"title", func() string { return titleStyle.Render("test") }},
		{"accent", func() string { return accentStyle.Render("test") }},
		{"success", func() string { return successStyle.Render("test") }},
		{"warning", func() string { return warningStyle.Render("test") }},
		{"error", func() string { return errorStyle.Render("test") }},
		{"muted", func() string { return mutedStyle.Render("test") }},
		{"highlight", func() string { return highlightStyle.Render("test") }},
		{"header", func() string { return headerStyle.Render("test") }},
		{"footer", func() string { return footerStyle.Render("test") }},
		{"selectedItem", func() string { return selectedItemStyle.Render("test") }},
		{"normalItem", func() string { return normalItemStyle.Render("test") }},
		{"doneItem", func() string { return doneItemStyle.Render("test") }},
		{"priorityHigh", func() string { return priorityStyle(model.PriorityHigh).Render("test") }},
	}

	for _, s := range styles {
		if s.fn() == "" {
			t.Fatalf("style %q rendered empty", s.name)
		}
	}
}
