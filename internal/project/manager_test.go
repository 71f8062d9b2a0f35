package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxstore/internal/contextfile"
)

// recordingPublisher captures change notifications for assertions.
type recordingPublisher struct {
	mu  sync.Mutex
	ops []string
}

func (p *recordingPublisher) PublishChange(ctx context.Context, op, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, op+":"+name)
}

func (p *recordingPublisher) recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ops...)
}

func newTestManager(t *testing.T) (Manager, string) {
	t.Helper()
	root := t.TempDir()
	mgr, err := NewManager(&Config{Root: root}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return mgr, root
}

func TestNewManager(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     &Config{Root: filepath.Join(t.TempDir(), "store")},
			wantErr: false,
		},
		{
			name:    "nil config",
			cfg:     nil,
			wantErr: true,
		},
		{
			name:    "empty root",
			cfg:     &Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, err := NewManager(tt.cfg, nil, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Errorf("NewManager() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				defer mgr.Close()
				if _, err := os.Stat(tt.cfg.Root); err != nil {
					t.Errorf("NewManager() should create the storage root: %v", err)
				}
			}
		})
	}
}

func TestManager_Create(t *testing.T) {
	ctx := context.Background()
	mgr, root := newTestManager(t)

	tests := []struct {
		name     string
		params   CreateParams
		wantName string
		wantErr  bool
	}{
		{
			name:     "explicit name",
			params:   CreateParams{Name: "demo", Path: "/home/user/demo"},
			wantName: "demo",
			wantErr:  false,
		},
		{
			name:     "name defaults to path base",
			params:   CreateParams{Path: "/home/user/ctx-notes"},
			wantName: "ctx-notes",
			wantErr:  false,
		},
		{
			name:    "empty path",
			params:  CreateParams{Name: "demo"},
			wantErr: true,
		},
		{
			name:    "traversal path",
			params:  CreateParams{Name: "demo", Path: "/home/user/../../etc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project, err := mgr.Create(ctx, tt.params)
			if (err != nil) != tt.wantErr {
				t.Errorf("Manager.Create() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if project.Name != tt.wantName {
					t.Errorf("project.Name = %v, want %v", project.Name, tt.wantName)
				}
				if _, err := uuid.Parse(project.ID); err != nil {
					t.Errorf("project.ID should be valid UUID: %v", err)
				}
				if !strings.HasPrefix(project.ContextDir, root) {
					t.Errorf("project.ContextDir = %v, want under %v", project.ContextDir, root)
				}
			}
		})
	}

	if _, err := os.Stat(filepath.Join(root, registryFileName)); err != nil {
		t.Errorf("registry file should exist after create: %v", err)
	}
}

func TestManager_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	if _, err := mgr.Create(ctx, CreateParams{Name: "project1", Path: "/home/user/test"}); err != nil {
		t.Fatalf("Failed to create first project: %v", err)
	}

	_, err := mgr.Create(ctx, CreateParams{Name: "project2", Path: "/home/user/test"})
	if !errors.Is(err, ErrProjectExists) {
		t.Errorf("Manager.Create() error = %v, want ErrProjectExists", err)
	}
}

func TestManager_CustomContextDir(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	custom := filepath.Join(t.TempDir(), "my-context")
	project, err := mgr.Create(ctx, CreateParams{Name: "demo", Path: "/home/user/demo", ContextDir: custom})
	if err != nil {
		t.Fatalf("Manager.Create() error = %v", err)
	}
	if project.ContextDir != custom {
		t.Errorf("project.ContextDir = %v, want %v", project.ContextDir, custom)
	}

	// Open the store so the custom dir exists on disk.
	if _, err := mgr.StoreFor(ctx, project.ID); err != nil {
		t.Fatalf("Manager.StoreFor() error = %v", err)
	}

	// Deleting the project must not remove a directory outside the root.
	if err := mgr.Delete(ctx, project.ID); err != nil {
		t.Fatalf("Manager.Delete() error = %v", err)
	}
	if _, err := os.Stat(custom); err != nil {
		t.Errorf("custom context dir should survive delete: %v", err)
	}
}

func TestManager_Get(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	created, err := mgr.Create(ctx, CreateParams{Name: "test-project", Path: "/home/user/test"})
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{
			name:    "existing project",
			id:      created.ID,
			wantErr: false,
		},
		{
			name:    "non-existent project",
			id:      "non-existent-id",
			wantErr: true,
		},
		{
			name:    "empty ID",
			id:      "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project, err := mgr.Get(ctx, tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("Manager.Get() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if !errors.Is(err, ErrProjectNotFound) {
					t.Errorf("Manager.Get() error = %v, want ErrProjectNotFound", err)
				}
				return
			}
			if project.ID != created.ID {
				t.Errorf("project.ID = %v, want %v", project.ID, created.ID)
			}
		})
	}
}

func TestManager_GetByPath(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	created, err := mgr.Create(ctx, CreateParams{Name: "test-project", Path: "/home/user/test"})
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{
			name:    "existing path",
			path:    "/home/user/test",
			wantErr: false,
		},
		{
			name:    "unnormalized path",
			path:    "/home/user/test/",
			wantErr: false,
		},
		{
			name:    "non-existent path",
			path:    "/home/user/nonexistent",
			wantErr: true,
		},
		{
			name:    "empty path",
			path:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project, err := mgr.GetByPath(ctx, tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("Manager.GetByPath() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if project.ID != created.ID {
					t.Errorf("project.ID = %v, want %v", project.ID, created.ID)
				}
			}
		})
	}
}

func TestManager_List(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	projects, err := mgr.List(ctx)
	if err != nil {
		t.Fatalf("Manager.List() error = %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("Manager.List() returned %d projects, want 0", len(projects))
	}

	for _, name := range []string{"charlie", "alpha", "bravo"} {
		if _, err := mgr.Create(ctx, CreateParams{Name: name, Path: "/home/user/" + name}); err != nil {
			t.Fatalf("Failed to create project %s: %v", name, err)
		}
	}

	projects, err = mgr.List(ctx)
	if err != nil {
		t.Fatalf("Manager.List() error = %v", err)
	}
	if len(projects) != 3 {
		t.Fatalf("Manager.List() returned %d projects, want 3", len(projects))
	}

	want := []string{"alpha", "bravo", "charlie"}
	for i, proj := range projects {
		if proj.Name != want[i] {
			t.Errorf("projects[%d].Name = %v, want %v", i, proj.Name, want[i])
		}
	}
}

func TestManager_Delete(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	created, err := mgr.Create(ctx, CreateParams{Name: "test-project", Path: "/home/user/test"})
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	// Open the store and write a file so the context dir exists.
	store, err := mgr.StoreFor(ctx, created.ID)
	if err != nil {
		t.Fatalf("Manager.StoreFor() error = %v", err)
	}
	if err := store.Write(ctx, "notes.md", "# notes", ""); err != nil {
		t.Fatalf("store.Write() error = %v", err)
	}

	if err := mgr.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Manager.Delete() error = %v", err)
	}

	if _, err := mgr.Get(ctx, created.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("Manager.Get() after delete error = %v, want ErrProjectNotFound", err)
	}
	if _, err := os.Stat(created.ContextDir); !os.IsNotExist(err) {
		t.Errorf("context dir should be removed after delete, stat error = %v", err)
	}

	if err := mgr.Delete(ctx, created.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("Manager.Delete() again error = %v, want ErrProjectNotFound", err)
	}
}

func TestManager_DeleteCleansUpPath(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	path := "/home/user/test"
	created, err := mgr.Create(ctx, CreateParams{Name: "test-project", Path: path})
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	if err := mgr.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	if _, err := mgr.GetByPath(ctx, path); err == nil {
		t.Error("GetByPath() should fail after delete")
	}

	if _, err := mgr.Create(ctx, CreateParams{Name: "new-project", Path: path}); err != nil {
		t.Errorf("Create() should succeed after delete: %v", err)
	}
}

func TestManager_Persistence(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	mgr, err := NewManager(&Config{Root: root}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	first, err := mgr.Create(ctx, CreateParams{Name: "first", Path: "/home/user/first"})
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	if _, err := mgr.Create(ctx, CreateParams{Name: "second", Path: "/home/user/second"}); err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("Manager.Close() error = %v", err)
	}

	reloaded, err := NewManager(&Config{Root: root}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager() reload error = %v", err)
	}
	defer reloaded.Close()

	projects, err := reloaded.List(ctx)
	if err != nil {
		t.Fatalf("Manager.List() error = %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("Manager.List() after reload returned %d projects, want 2", len(projects))
	}

	got, err := reloaded.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Manager.Get() after reload error = %v", err)
	}
	if got.Name != first.Name || got.Path != first.Path || got.ContextDir != first.ContextDir {
		t.Errorf("reloaded project = %+v, want %+v", got, first)
	}

	if _, err := reloaded.GetByPath(ctx, "/home/user/second"); err != nil {
		t.Errorf("Manager.GetByPath() after reload error = %v", err)
	}
}

func TestManager_StoreFor(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	created, err := mgr.Create(ctx, CreateParams{Name: "test-project", Path: "/home/user/test"})
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	store, err := mgr.StoreFor(ctx, created.ID)
	if err != nil {
		t.Fatalf("Manager.StoreFor() error = %v", err)
	}

	if err := store.Write(ctx, "readme.md", "# hello", ""); err != nil {
		t.Fatalf("store.Write() error = %v", err)
	}
	file, err := store.Read(ctx, "readme.md")
	if err != nil {
		t.Fatalf("store.Read() error = %v", err)
	}
	if file.Content != "# hello" {
		t.Errorf("file.Content = %q, want %q", file.Content, "# hello")
	}

	again, err := mgr.StoreFor(ctx, created.ID)
	if err != nil {
		t.Fatalf("Manager.StoreFor() second call error = %v", err)
	}
	if again != store {
		t.Error("Manager.StoreFor() should return the cached store")
	}

	if _, err := mgr.StoreFor(ctx, "non-existent-id"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("Manager.StoreFor() error = %v, want ErrProjectNotFound", err)
	}
}

func TestManager_StoreForPublisher(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	pub := &recordingPublisher{}
	var factoryID string
	factory := func(projectID string) contextfile.ChangePublisher {
		factoryID = projectID
		return pub
	}

	mgr, err := NewManager(&Config{Root: root}, factory, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer mgr.Close()

	created, err := mgr.Create(ctx, CreateParams{Name: "test-project", Path: "/home/user/test"})
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	store, err := mgr.StoreFor(ctx, created.ID)
	if err != nil {
		t.Fatalf("Manager.StoreFor() error = %v", err)
	}
	if factoryID != created.ID {
		t.Errorf("publisher factory called with %q, want %q", factoryID, created.ID)
	}

	if err := store.Write(ctx, "a.md", "alpha", ""); err != nil {
		t.Fatalf("store.Write() error = %v", err)
	}
	ops := pub.recorded()
	if len(ops) != 1 || ops[0] != "write:a.md" {
		t.Errorf("publisher recorded %v, want [write:a.md]", ops)
	}
}

func TestManager_Closed(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	created, err := mgr.Create(ctx, CreateParams{Name: "test-project", Path: "/home/user/test"})
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	if err := mgr.Close(); err != nil {
		t.Fatalf("Manager.Close() error = %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Errorf("Manager.Close() should be idempotent: %v", err)
	}

	if _, err := mgr.Create(ctx, CreateParams{Name: "late", Path: "/home/user/late"}); err == nil {
		t.Error("Manager.Create() should fail after close")
	}
	if _, err := mgr.StoreFor(ctx, created.ID); err == nil {
		t.Error("Manager.StoreFor() should fail after close")
	}
	if err := mgr.Delete(ctx, created.ID); err == nil {
		t.Error("Manager.Delete() should fail after close")
	}
}

func TestManager_ConcurrentOperations(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	created, err := mgr.Create(ctx, CreateParams{Name: "test-project", Path: "/home/user/test"})
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := mgr.Get(ctx, created.ID)
			if err != nil {
				t.Errorf("Concurrent Get() failed: %v", err)
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
