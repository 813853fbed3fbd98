package draft_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formsession/pkg/draft"
	"github.com/goliatone/go-formsession/pkg/section"
)

// countingStore wraps a Store and counts successful writes.
type countingStore struct {
	draft.Store
	mu     sync.Mutex
	writes int
}

func (c *countingStore) SetItem(key, value string) error {
	if err := c.Store.SetItem(key, value); err != nil {
		return err
	}
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return nil
}

func (c *countingStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingLogger) Printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func sampleRecord(name string) draft.Record {
	return draft.Record{
		TemplateName:  name,
		Status:        "draft",
		FormType:      section.TypeSingle,
		Sections:      []section.Section{section.DefaultFirst()},
		ActiveSection: "section_1",
	}
}

func TestSaver_CoalescesRapidSavesIntoOneWrite(t *testing.T) {
	store := &countingStore{Store: draft.NewMemoryStore()}
	s := draft.NewSaver(store, draft.WithDebounce(30*time.Millisecond))

	s.Save(sampleRecord("one"))
	s.Save(sampleRecord("two"))
	s.Save(sampleRecord("three"))

	time.Sleep(200 * time.Millisecond)

	if got := store.count(); got != 1 {
		t.Fatalf("expected exactly one write, got %d", got)
	}

	rec, ok, err := s.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if rec.TemplateName != "three" {
		t.Fatalf("expected latest record to win, got %q", rec.TemplateName)
	}
	if rec.SavedAt.IsZero() {
		t.Fatal("saved record must carry a timestamp")
	}
}

func TestSaver_NoWriteBeforeDebounceElapses(t *testing.T) {
	store := &countingStore{Store: draft.NewMemoryStore()}
	s := draft.NewSaver(store, draft.WithDebounce(time.Hour))

	s.Save(sampleRecord("pending"))

	if got := store.count(); got != 0 {
		t.Fatalf("write fired before debounce elapsed: %d", got)
	}
}

func TestSaver_FlushBypassesTimer(t *testing.T) {
	store := &countingStore{Store: draft.NewMemoryStore()}
	s := draft.NewSaver(store, draft.WithDebounce(time.Hour))

	s.Save(sampleRecord("unload"))
	s.Flush()

	if got := store.count(); got != 1 {
		t.Fatalf("expected immediate write on flush, got %d", got)
	}

	// A second flush with nothing pending is a no-op.
	s.Flush()
	if got := store.count(); got != 1 {
		t.Fatalf("empty flush must not write, got %d", got)
	}
}

func TestSaver_RestoringSuppressesSaves(t *testing.T) {
	store := &countingStore{Store: draft.NewMemoryStore()}
	s := draft.NewSaver(store, draft.WithDebounce(10*time.Millisecond))

	s.BeginRestore()
	s.Save(sampleRecord("stale"))
	s.Flush()

	if got := store.count(); got != 0 {
		t.Fatalf("saves during restore must be ignored, got %d writes", got)
	}

	s.EndRestore()
	s.Save(sampleRecord("fresh"))
	s.Flush()

	rec, ok, err := s.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if rec.TemplateName != "fresh" {
		t.Fatalf("expected post-restore save, got %q", rec.TemplateName)
	}
}

func TestSaver_ClearDropsStoredAndPending(t *testing.T) {
	mem := draft.NewMemoryStore()
	s := draft.NewSaver(mem, draft.WithDebounce(20*time.Millisecond))

	s.Save(sampleRecord("first"))
	s.Flush()
	s.Save(sampleRecord("second"))

	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok, _ := s.Load(); ok {
		t.Fatal("cleared draft must not resurface")
	}
	if mem.Len() != 0 {
		t.Fatalf("store should be empty, has %d keys", mem.Len())
	}
}

func TestSaver_WriteFailuresAreSwallowedAndLogged(t *testing.T) {
	mem := draft.NewMemoryStore()
	mem.FailWrites = true
	logger := &recordingLogger{}
	s := draft.NewSaver(mem, draft.WithDebounce(time.Minute), draft.WithLogger(logger))

	s.Save(sampleRecord("doomed"))
	s.Flush()

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.lines) != 1 || !strings.Contains(logger.lines[0], "write failed") {
		t.Fatalf("expected one logged failure, got %v", logger.lines)
	}
}

func TestSaver_LoadRoundTrip(t *testing.T) {
	s := draft.NewSaver(draft.NewMemoryStore(), draft.WithDebounce(time.Minute))

	want := sampleRecord("roundtrip")
	want.CustomerID = 7
	want.SheetURL = "https://sheets.example.com/t/1"
	want.Description = "intake flow"
	s.Save(want)
	s.Flush()

	got, ok, err := s.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	ignore := cmp.FilterPath(func(p cmp.Path) bool {
		return p.String() == "SavedAt"
	}, cmp.Ignore())
	if diff := cmp.Diff(want, got, ignore); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestSaver_LoadMissingAndCorrupt(t *testing.T) {
	mem := draft.NewMemoryStore()
	s := draft.NewSaver(mem)

	if _, ok, err := s.Load(); ok || err != nil {
		t.Fatalf("missing record: ok=%v err=%v", ok, err)
	}

	if err := mem.SetItem(draft.DefaultKey, "{corrupt"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := s.Load(); err == nil {
		t.Fatal("corrupt record should surface a load error")
	}
}

func TestSaver_CloseFlushesAndStops(t *testing.T) {
	store := &countingStore{Store: draft.NewMemoryStore()}
	s := draft.NewSaver(store, draft.WithDebounce(time.Hour))

	s.Save(sampleRecord("final"))
	s.Close()

	if got := store.count(); got != 1 {
		t.Fatalf("close must flush the pending record, got %d writes", got)
	}

	s.Save(sampleRecord("after close"))
	s.Flush()
	if got := store.count(); got != 1 {
		t.Fatalf("saves after close must be ignored, got %d writes", got)
	}
}
