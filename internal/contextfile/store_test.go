package contextfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingPublisher captures change notifications for assertions.
type recordingPublisher struct {
	mu  sync.Mutex
	ops []string
}

func (p *recordingPublisher) PublishChange(_ context.Context, op, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, op+":"+name)
}

func (p *recordingPublisher) recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.ops))
	copy(out, p.ops)
	return out
}

func newTestStore(t *testing.T) (Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "context")
	store, err := NewStore(&Config{Dir: dir, Project: "testproj"}, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, dir
}

func TestNewStore(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		_, err := NewStore(nil, nil, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config is required")
	})

	t.Run("with empty dir", func(t *testing.T) {
		_, err := NewStore(&Config{}, nil, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage directory is required")
	})

	t.Run("with nil logger", func(t *testing.T) {
		store, err := NewStore(&Config{Dir: t.TempDir()}, nil, nil)
		require.NoError(t, err)
		require.NotNil(t, store)
		store.Close()
	})

	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b", "context")
		store, err := NewStore(&Config{Dir: dir}, nil, zap.NewNop())
		require.NoError(t, err)
		defer store.Close()

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestStore_WriteReadRoundTrip(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "architecture.md", "# Architecture\n\nDetails here.", ""))

	cf, err := store.Read(ctx, "architecture.md")
	require.NoError(t, err)
	assert.Equal(t, "architecture.md", cf.Name)
	assert.Equal(t, KindText, cf.Kind)
	assert.Equal(t, "# Architecture\n\nDetails here.", cf.Content)

	// Contents land on disk under the verbatim name.
	data, err := os.ReadFile(filepath.Join(dir, "architecture.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Architecture\n\nDetails here.", string(data))
}

func TestStore_ListOrder(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"notes.txt", "a.md", "context (1).md", "b.md"} {
		require.NoError(t, store.Write(ctx, name, "x", ""))
	}

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md", "context (1).md", "notes.txt"}, names)

	// Order is stable across calls.
	again, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, names, again)
}

func TestStore_OverwriteLastWriteWins(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "notes.md", "first", ""))
	require.NoError(t, store.Write(ctx, "notes.md", "second", ""))

	cf, err := store.Read(ctx, "notes.md")
	require.NoError(t, err)
	assert.Equal(t, "second", cf.Content)

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.md"}, names)
}

func TestStore_ReadMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Read(context.Background(), "nope.md")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "doomed.txt", "bye", ""))
	require.NoError(t, store.Delete(ctx, "doomed.txt"))

	_, err := store.Read(ctx, "doomed.txt")
	require.ErrorIs(t, err, ErrNotFound)

	// A second delete reports the absence.
	err = store.Delete(ctx, "doomed.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_EmptyContent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "empty.md", "", ""))

	cf, err := store.Read(ctx, "empty.md")
	require.NoError(t, err)
	assert.Equal(t, "", cf.Content)

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"empty.md"}, names)
}

func TestStore_ImageRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	raw := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0xff}
	encoded := EncodeDataURL("image/png", raw)

	require.NoError(t, store.Write(ctx, "diagram.png", encoded, KindImage))

	cf, err := store.Read(ctx, "diagram.png")
	require.NoError(t, err)
	assert.Equal(t, KindImage, cf.Kind)
	assert.Equal(t, encoded, cf.Content)

	mimeType, decoded, err := DecodeDataURL(cf.Content)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, raw, decoded)
}

func TestStore_OpaqueNames(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	names := []string{
		"context (1).md",
		"design-v2_final.md",
		"meeting notes 2026-01-15.txt",
		"no_extension",
	}
	for _, name := range names {
		require.NoError(t, store.Write(ctx, name, "content of "+name, ""))
	}

	for _, name := range names {
		cf, err := store.Read(ctx, name)
		require.NoError(t, err, "name %q", name)
		assert.Equal(t, name, cf.Name)
		assert.Equal(t, "content of "+name, cf.Content)
	}
}

func TestStore_Reset(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "a.md", "x", ""))
	require.NoError(t, store.Write(ctx, "b.md", "y", ""))

	require.NoError(t, store.Reset(ctx))

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	// The store stays usable after a reset.
	require.NoError(t, store.Write(ctx, "fresh.md", "new", ""))
	names, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh.md"}, names)
}

func TestStore_InvalidNames(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"", ".", "..", "a/b.md", "a\\b.md", tempPrefix + "x"} {
		err := store.Write(ctx, name, "x", "")
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}

	_, err := store.Read(ctx, "../escape")
	assert.ErrorIs(t, err, ErrInvalidName)

	err = store.Delete(ctx, "a/b")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestStore_SizeLimit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "context")
	store, err := NewStore(&Config{Dir: dir, MaxContentSize: 8}, nil, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "small.txt", "12345678", ""))

	err = store.Write(ctx, "big.txt", "123456789", "")
	require.ErrorIs(t, err, ErrContentTooLarge)
}

func TestStore_Closed(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err := store.List(ctx)
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = store.Read(ctx, "a.md")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, store.Write(ctx, "a.md", "x", ""), ErrStoreClosed)
	assert.ErrorIs(t, store.Delete(ctx, "a.md"), ErrStoreClosed)
	assert.ErrorIs(t, store.Reset(ctx), ErrStoreClosed)
}

func TestStore_PublishesChanges(t *testing.T) {
	pub := &recordingPublisher{}
	dir := filepath.Join(t.TempDir(), "context")
	store, err := NewStore(&Config{Dir: dir, Project: "p"}, pub, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "a.md", "x", ""))
	require.NoError(t, store.Delete(ctx, "a.md"))
	require.NoError(t, store.Reset(ctx))

	assert.Equal(t, []string{"write:a.md", "delete:a.md", "reset:"}, pub.recorded())
}

func TestStore_NoPublishOnFailure(t *testing.T) {
	pub := &recordingPublisher{}
	dir := filepath.Join(t.TempDir(), "context")
	store, err := NewStore(&Config{Dir: dir}, pub, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.ErrorIs(t, store.Delete(ctx, "missing.md"), ErrNotFound)
	require.ErrorIs(t, store.Write(ctx, "bad/name", "x", ""), ErrInvalidName)

	assert.Empty(t, pub.recorded())
}

func TestStore_ListSkipsNonEntries(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "real.md", "x", ""))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, tempPrefix+"123"), []byte("partial"), 0644))

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"real.md"}, names)
}

func TestStore_Dir(t *testing.T) {
	store, dir := newTestStore(t)
	assert.Equal(t, dir, store.Dir())
}
