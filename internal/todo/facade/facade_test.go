package facade

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devbydijah/todolist/internal/todo/db"
	"github.com/devbydijah/todolist/internal/todo/mirror"
	"github.com/devbydijah/todolist/internal/todo/schema"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

type recorder struct {
	mu      sync.Mutex
	saved   []int64
	removed []int64
}

func (r *recorder) OnSaved(todo schema.Todo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, todo.ID)
}

func (r *recorder) OnRemoved(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, id)
}

func setupFacade(t *testing.T, opts ...Option) (*Facade, *db.Memory, *mirror.Cache) {
	t.Helper()
	store := db.NewMemory()
	cache := mirror.New(filepath.Join(t.TempDir(), "mirror.json"))
	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	return New(store, cache, opts...), store, cache
}

// assertMirrored checks that the mirror equals the projection of the store.
func assertMirrored(t *testing.T, store db.Store, cache *mirror.Cache) {
	t.Helper()
	all, err := store.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll() failed: %v", err)
	}
	snap, err := cache.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if diff := cmp.Diff(schema.Project(all), snap); diff != "" {
		t.Errorf("mirror diverged from store (-store +mirror):\n%s", diff)
	}
}

func TestSave_CreateThenUpdateSameRecord(t *testing.T) {
	f, store, cache := setupFacade(t)
	ctx := context.Background()

	created, err := f.Save(ctx, schema.Todo{Title: "A"})
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	assertMirrored(t, store, cache)

	if _, err := f.Save(ctx, schema.Todo{ID: created.ID, Title: "A", Completed: true}); err != nil {
		t.Fatalf("Save() update failed: %v", err)
	}
	assertMirrored(t, store, cache)

	all, _ := store.GetAll(ctx)
	want := []schema.Todo{{ID: created.ID, Title: "A", Completed: true}}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("store mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_RejectsBlankTitle(t *testing.T) {
	f, store, cache := setupFacade(t)
	_, err := f.Save(context.Background(), schema.Todo{Title: "  "})
	if !errors.Is(err, schema.ErrValidation) {
		t.Fatalf("Save() = %v, want validation error", err)
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
	assertMirrored(t, store, cache)
}

func TestSave_StoreFailureLeavesMirrorUntouched(t *testing.T) {
	f, store, cache := setupFacade(t)
	ctx := context.Background()
	if _, err := f.Save(ctx, schema.Todo{Title: "first"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	before, _ := cache.ReadAll()

	cause := errors.New("disk full")
	store.FailNext(cause)
	_, err := f.Save(ctx, schema.Todo{Title: "second"})
	if !errors.Is(err, cause) {
		t.Fatalf("Save() = %v, want the store error", err)
	}
	var se *schema.StorageError
	if !errors.As(err, &se) {
		t.Errorf("Save() error %T is not a StorageError", err)
	}

	after, _ := cache.ReadAll()
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("mirror changed after failed write (-before +after):\n%s", diff)
	}
}

func TestRemove_AbsentIsNoop(t *testing.T) {
	f, store, cache := setupFacade(t)
	ctx := context.Background()
	saved, _ := f.Save(ctx, schema.Todo{Title: "keep"})

	if err := f.Remove(ctx, saved.ID+100); err != nil {
		t.Fatalf("Remove() absent = %v, want nil", err)
	}
	all, _ := store.GetAll(ctx)
	if len(all) != 1 || all[0].ID != saved.ID {
		t.Errorf("store content changed: %+v", all)
	}
	assertMirrored(t, store, cache)
}

func TestRemove_DeletesFromBoth(t *testing.T) {
	f, store, cache := setupFacade(t)
	ctx := context.Background()
	a, _ := f.Save(ctx, schema.Todo{Title: "a"})
	_, _ = f.Save(ctx, schema.Todo{Title: "b"})

	if err := f.Remove(ctx, a.ID); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	assertMirrored(t, store, cache)
	snap, _ := f.Snapshot()
	if len(snap) != 1 {
		t.Errorf("Snapshot() = %v, want one record", snap)
	}
}

func TestLoadAll_RestoresFromSnapshot(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	seeded := mirror.New(filepath.Join(dir, "mirror.json"))
	if err := seeded.RebuildFrom([]schema.Todo{{ID: 2, Title: "from mirror", Description: "lost"}}); err != nil {
		t.Fatalf("RebuildFrom() failed: %v", err)
	}

	store := db.NewMemory()
	cache := mirror.New(filepath.Join(dir, "mirror.json"))
	f := New(store, cache)

	todos, err := f.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	want := []schema.Todo{{ID: 2, Title: "from mirror"}}
	if diff := cmp.Diff(want, todos); diff != "" {
		t.Errorf("LoadAll() mismatch (-want +got):\n%s", diff)
	}
	assertMirrored(t, store, cache)
}

func TestUpdate_ClearsSynced(t *testing.T) {
	f, store, cache := setupFacade(t)
	ctx := context.Background()
	saved, _ := f.Save(ctx, schema.Todo{Title: "old", Description: "d", Synced: true})

	title := "new"
	got, err := f.Update(ctx, saved.ID, schema.Patch{Title: &title})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	want := schema.Todo{ID: saved.ID, Title: "new", Description: "d"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Update() mismatch (-want +got):\n%s", diff)
	}
	assertMirrored(t, store, cache)
}

func TestUpdate_RejectsBlankTitle(t *testing.T) {
	f, _, _ := setupFacade(t)
	ctx := context.Background()
	saved, _ := f.Save(ctx, schema.Todo{Title: "old"})

	blank := "   "
	if _, err := f.Update(ctx, saved.ID, schema.Patch{Title: &blank}); !errors.Is(err, schema.ErrValidation) {
		t.Fatalf("Update() = %v, want validation error", err)
	}
	got, _ := f.Get(ctx, saved.ID)
	if got.Title != "old" {
		t.Errorf("Title = %q, want unchanged", got.Title)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	f, _, _ := setupFacade(t)
	done := true
	if _, err := f.Update(context.Background(), 42, schema.Patch{Completed: &done}); !errors.Is(err, schema.ErrNotFound) {
		t.Fatalf("Update() = %v, want ErrNotFound", err)
	}
}

func TestToggle(t *testing.T) {
	f, store, cache := setupFacade(t)
	ctx := context.Background()
	saved, _ := f.Save(ctx, schema.Todo{Title: "flip", Synced: true})

	got, err := f.Toggle(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Toggle() failed: %v", err)
	}
	if !got.Completed || got.Synced {
		t.Errorf("Toggle() = %+v, want completed and pending", got)
	}
	got, _ = f.Toggle(ctx, saved.ID)
	if got.Completed {
		t.Error("second Toggle() did not flip back")
	}
	assertMirrored(t, store, cache)
}

func TestListener_NotifiedAfterMutations(t *testing.T) {
	rec := &recorder{}
	f, _, _ := setupFacade(t, WithListener(rec))
	ctx := context.Background()

	saved, _ := f.Save(ctx, schema.Todo{Title: "a"})
	_ = f.Remove(ctx, saved.ID)
	_, _ = f.Save(ctx, schema.Todo{Title: ""})

	if diff := cmp.Diff([]int64{saved.ID}, rec.saved); diff != "" {
		t.Errorf("saved notifications mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{saved.ID}, rec.removed); diff != "" {
		t.Errorf("removed notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestFacade_ConcurrentSavesKeepMirrorConsistent(t *testing.T) {
	f, store, cache := setupFacade(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.Save(ctx, schema.Todo{Title: "concurrent"})
		}()
	}
	wg.Wait()

	if n, _ := store.Count(ctx); n != 20 {
		t.Errorf("Count() = %d, want 20", n)
	}
	assertMirrored(t, store, cache)
}

func TestMarkSynced(t *testing.T) {
	f, store, _ := setupFacade(t)
	ctx := context.Background()
	saved, err := f.Save(ctx, schema.Todo{Title: "push me", Description: "d"})
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	stored, ok, err := f.MarkSynced(ctx, saved)
	if err != nil || !ok || !stored.Synced {
		t.Fatalf("MarkSynced() = %+v, %t, %v; want synced", stored, ok, err)
	}
	if got, _ := store.Get(ctx, saved.ID); !got.Synced {
		t.Error("store record not synced")
	}
}

func TestMarkSynced_ChangedSincePush(t *testing.T) {
	f, store, _ := setupFacade(t)
	ctx := context.Background()
	pushed, _ := f.Save(ctx, schema.Todo{Title: "before"})
	if _, err := f.Toggle(ctx, pushed.ID); err != nil {
		t.Fatalf("Toggle() failed: %v", err)
	}

	_, ok, err := f.MarkSynced(ctx, pushed)
	if err != nil || ok {
		t.Fatalf("MarkSynced() = %t, %v; want not marked", ok, err)
	}
	got, _ := store.Get(ctx, pushed.ID)
	if got.Synced || !got.Completed {
		t.Errorf("record = %+v, want completed and pending", got)
	}

	if _, ok, err := f.MarkSynced(ctx, schema.Todo{ID: 99, Title: "gone"}); err != nil || ok {
		t.Errorf("MarkSynced(absent) = %t, %v; want false, nil", ok, err)
	}
}

// pausingStore holds the first armed GetAll after it has read the store, so a
// rebuild is caught between listing and rewriting the snapshot.
type pausingStore struct {
	db.Store
	armed   atomic.Bool
	paused  chan struct{}
	release chan struct{}
}

func (s *pausingStore) GetAll(ctx context.Context) ([]schema.Todo, error) {
	todos, err := s.Store.GetAll(ctx)
	if s.armed.CompareAndSwap(true, false) {
		close(s.paused)
		<-s.release
	}
	return todos, err
}

func openSharedSQLite(t *testing.T, path string) db.Store {
	t.Helper()
	store, err := db.Open(context.Background(), db.Config{Driver: db.DriverSQLite, Path: path})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestFacade_SessionsSharingSnapshotDoNotLoseEdits(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "todos.db")
	snapPath := filepath.Join(dir, "mirror.json")
	ctx := context.Background()

	daemonStore := &pausingStore{
		Store:   openSharedSQLite(t, dbPath),
		paused:  make(chan struct{}),
		release: make(chan struct{}),
	}
	daemonSide := New(daemonStore, mirror.New(snapPath), WithLogger(zap.NewNop()))
	cliSide := New(openSharedSQLite(t, dbPath), mirror.New(snapPath), WithLogger(zap.NewNop()))

	mine, err := cliSide.Save(ctx, schema.Todo{Title: "mine"})
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	daemonStore.armed.Store(true)
	daemonDone := make(chan error, 1)
	go func() {
		_, err := daemonSide.Save(ctx, schema.Todo{Title: "pulled", Synced: true})
		daemonDone <- err
	}()
	<-daemonStore.paused

	toggleDone := make(chan error, 1)
	go func() {
		_, err := cliSide.Toggle(ctx, mine.ID)
		toggleDone <- err
	}()

	select {
	case err := <-toggleDone:
		close(daemonStore.release)
		t.Fatalf("Toggle() finished while another session was mid-rebuild (err=%v)", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(daemonStore.release)
	if err := <-daemonDone; err != nil {
		t.Fatalf("daemon Save() failed: %v", err)
	}
	if err := <-toggleDone; err != nil {
		t.Fatalf("Toggle() failed: %v", err)
	}

	todos, err := cliSide.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	var got schema.Todo
	for _, todo := range todos {
		if todo.ID == mine.ID {
			got = todo
		}
	}
	if !got.Completed || got.Synced {
		t.Errorf("after list: %+v, want the toggle kept and pending", got)
	}
	if len(todos) != 2 {
		t.Errorf("LoadAll() returned %d todos, want 2", len(todos))
	}

	snap, err := cliSide.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}
	if diff := cmp.Diff(schema.Project(todos), snap); diff != "" {
		t.Errorf("mirror diverged (-store +mirror):\n%s", diff)
	}
}
