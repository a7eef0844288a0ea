package progress

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escalopa/kid-reader-bot/internal/domain"
	"github.com/escalopa/kid-reader-bot/internal/engine"
)

var errDenied = errors.New("access denied")

type fakeMedium struct {
	mu       sync.Mutex
	data     map[string][]byte
	denied   bool
	failRead bool
	writes   int
}

func newFakeMedium() *fakeMedium {
	return &fakeMedium{data: map[string][]byte{}}
}

func (f *fakeMedium) Probe(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denied {
		return errDenied
	}
	return nil
}

func (f *fakeMedium) Read(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRead {
		return nil, errDenied
	}
	v, ok := f.data[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeMedium) Write(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denied {
		return errDenied
	}
	f.writes++
	f.data[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeMedium) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestStore(m domain.Medium) *Store {
	return NewStore(m, "", WithClock(func() time.Time { return fixedNow }))
}

func TestStore_LoadMissing(t *testing.T) {
	store := newTestStore(newFakeMedium())
	assert.Nil(t, store.Load(context.Background(), "magic-wand"))
	assert.Empty(t, store.LoadAll(context.Background()))
}

func TestStore_SaveStampsLastReadAt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeMedium())

	record := domain.NewReadingProgress("magic-wand")
	record.LastReadAt = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	store.Save(ctx, record)

	loaded := store.Load(ctx, "magic-wand")
	require.NotNil(t, loaded)
	assert.Equal(t, fixedNow, loaded.LastReadAt)
	assert.Equal(t, fixedNow, record.LastReadAt)
}

func TestStore_SaveReplacesSingleEntry(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeMedium())

	a := domain.NewReadingProgress("a")
	a.CurrentPageIndex = 1
	store.Save(ctx, a)
	store.Save(ctx, domain.NewReadingProgress("b"))

	a.CurrentPageIndex = 2
	store.Save(ctx, a)

	all := store.LoadAll(ctx)
	require.Len(t, all, 2)
	assert.Equal(t, 2, all["a"].CurrentPageIndex)
	assert.Equal(t, "b", all["b"].StoryID)
}

func TestStore_PersistedFormat(t *testing.T) {
	ctx := context.Background()
	m := newFakeMedium()
	store := newTestStore(m)

	record := domain.NewReadingProgress("brave-cat")
	record.CurrentPageIndex = 1
	record.CurrentWordIndex = 3
	record.MarkPageCompleted(0)
	record.WordProgress[0] = domain.PageProgress{0: 100, 1: 100}
	record.WordProgress[1] = domain.PageProgress{2: 40}
	store.Save(ctx, record)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(m.data[DefaultKey], &raw))

	entry := raw["brave-cat"]
	require.NotNil(t, entry)
	assert.Equal(t, "brave-cat", entry["storyId"])
	assert.EqualValues(t, 1, entry["currentPageIndex"])
	assert.EqualValues(t, 3, entry["currentWordIndex"])
	assert.Equal(t, []any{float64(0)}, entry["completedPages"])
	assert.Equal(t, map[string]any{
		"0": map[string]any{"0": float64(100), "1": float64(100)},
		"1": map[string]any{"2": float64(40)},
	}, entry["wordProgress"])
	assert.Equal(t, "2026-03-14T09:30:00Z", entry["lastReadAt"])
}

func TestStore_ReadsForeignWrittenCollection(t *testing.T) {
	m := newFakeMedium()
	m.data[DefaultKey] = []byte(`{
	  "magic-wand": {
	    "storyId": "magic-wand",
	    "currentPageIndex": 0,
	    "currentWordIndex": 2,
	    "completedPages": [2, 0],
	    "wordProgress": {"0": {"0": 100, "1": 55}},
	    "lastReadAt": "2025-08-01T10:00:00.000Z"
	  },
	  "ghost": null
	}`)
	store := newTestStore(m)

	all := store.LoadAll(context.Background())
	require.Len(t, all, 1)
	got := all["magic-wand"]
	assert.Equal(t, []int{0, 2}, got.CompletedPages)
	assert.Equal(t, 55, got.WordProgress.Get(0, 1))
	assert.Equal(t, 2, got.CurrentWordIndex)
}

func TestStore_CorruptRecordIsAbsent(t *testing.T) {
	ctx := context.Background()
	m := newFakeMedium()
	m.data[DefaultKey] = []byte(`{not json`)
	store := newTestStore(m)

	assert.Nil(t, store.Load(ctx, "magic-wand"))
	assert.Empty(t, store.LoadAll(ctx))

	store.Save(ctx, domain.NewReadingProgress("magic-wand"))
	assert.NotNil(t, store.Load(ctx, "magic-wand"))
}

func TestStore_UnavailableMedium(t *testing.T) {
	ctx := context.Background()
	m := newFakeMedium()
	m.denied = true
	store := newTestStore(m)

	assert.False(t, store.IsAvailable(ctx))
	store.Save(ctx, domain.NewReadingProgress("magic-wand"))
	store.Clear(ctx, "magic-wand")
	store.ClearAll(ctx)

	assert.Nil(t, store.Load(ctx, "magic-wand"))
	assert.Empty(t, store.LoadAll(ctx))
	assert.Zero(t, m.writes)

	m.denied = false
	assert.Nil(t, store.Load(ctx, "magic-wand"))
}

func TestStore_NilMedium(t *testing.T) {
	store := NewStore(nil, "")
	assert.False(t, store.IsAvailable(context.Background()))
	assert.Nil(t, store.Load(context.Background(), "x"))
}

func TestStore_ReadFailureDegrades(t *testing.T) {
	m := newFakeMedium()
	m.failRead = true
	store := newTestStore(m)

	assert.Nil(t, store.Load(context.Background(), "x"))
	assert.Empty(t, store.LoadAll(context.Background()))
}

func TestStore_SaveSkipsOnReadFailure(t *testing.T) {
	ctx := context.Background()
	m := newFakeMedium()
	store := newTestStore(m)
	store.Save(ctx, domain.NewReadingProgress("a"))
	writes := m.writes

	m.failRead = true
	store.Save(ctx, domain.NewReadingProgress("b"))
	store.Clear(ctx, "a")
	assert.Equal(t, writes, m.writes)

	m.failRead = false
	all := store.LoadAll(ctx)
	assert.Len(t, all, 1)
	assert.Contains(t, all, "a")
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeMedium())
	store.Save(ctx, domain.NewReadingProgress("a"))
	store.Save(ctx, domain.NewReadingProgress("b"))

	store.Clear(ctx, "a")
	store.Clear(ctx, "missing")

	all := store.LoadAll(ctx)
	assert.Len(t, all, 1)
	assert.Contains(t, all, "b")

	store.ClearAll(ctx)
	assert.Empty(t, store.LoadAll(ctx))
}

func TestStore_KeysAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := newFakeMedium()
	alice := NewStore(m, LearnerKey("", "alice"))
	bob := NewStore(m, LearnerKey("", "bob"))

	alice.Save(ctx, domain.NewReadingProgress("a"))

	assert.NotNil(t, alice.Load(ctx, "a"))
	assert.Nil(t, bob.Load(ctx, "a"))
	assert.Equal(t, "kid-reader-progress:alice", alice.Key())
}

func TestStore_RoundTripFromEngineSnapshots(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeMedium())

	record := domain.NewReadingProgress("brave-cat")
	pages := []int{3, 2}
	for page, words := range pages {
		e := engine.New(words, nil)
		for i := 0; i < words; i++ {
			require.NoError(t, e.SetWordProgress(i, 100))
		}
		snap := e.Snapshot()
		record.WordProgress[page] = snap.WordProgress
		record.CurrentPageIndex = page
		record.CurrentWordIndex = snap.Active
		if e.IsPageComplete() {
			record.MarkPageCompleted(page)
		}
	}
	store.Save(ctx, record)

	first := store.Load(ctx, "brave-cat")
	require.NotNil(t, first)
	store.Save(ctx, first)
	second := store.Load(ctx, "brave-cat")

	assert.Equal(t, record, first)
	assert.Equal(t, first, second)
}

func TestStore_ConcurrentSavesKeepEveryStory(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeMedium())

	var wg sync.WaitGroup
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			store.Save(ctx, domain.NewReadingProgress(id))
		}(id)
	}
	wg.Wait()

	assert.Len(t, store.LoadAll(ctx), len(ids))
}

func TestDecode_Empty(t *testing.T) {
	all, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, all)

	all, err = Decode([]byte("null"))
	require.NoError(t, err)
	assert.NotNil(t, all)

	_, err = Decode([]byte("[1,2]"))
	assert.ErrorIs(t, err, ErrCorrupt)
}
