package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxstore/internal/contextfile"
	"github.com/fyrsmithlabs/ctxstore/internal/sanitize"
)

// registryFileName is the TOML file under the storage root that holds
// all registered projects.
const registryFileName = "projects.toml"

// Manager provides CRUD operations for projects and access to their
// context stores.
type Manager interface {
	// Create registers a new project. When params.Name is empty the name
	// is derived from the path's base name; when params.ContextDir is
	// empty the context directory is placed under the storage root.
	Create(ctx context.Context, params CreateParams) (*Project, error)

	// Get retrieves a project by ID.
	Get(ctx context.Context, id string) (*Project, error)

	// GetByPath retrieves a project by its workspace path.
	GetByPath(ctx context.Context, path string) (*Project, error)

	// List returns all registered projects ordered by name.
	List(ctx context.Context) ([]*Project, error)

	// Delete removes a project, closes its store, and removes its context
	// directory if it lives under the storage root.
	Delete(ctx context.Context, id string) error

	// StoreFor returns the project's context store, creating it on first use.
	StoreFor(ctx context.Context, id string) (contextfile.Store, error)

	// Close closes all open context stores.
	Close() error
}

// CreateParams are the inputs for registering a project.
type CreateParams struct {
	// Name is the display name. Optional, defaults to the path's base name.
	Name string `json:"name"`

	// Path is the workspace path. Required.
	Path string `json:"path"`

	// ContextDir overrides the directory holding the project's context
	// files. Optional, defaults to a directory under the storage root.
	ContextDir string `json:"context_dir"`
}

// Config holds project manager configuration.
type Config struct {
	// Root is the storage root holding the registry and context directories.
	Root string

	// MaxContentSize caps the size of a single context file in bytes.
	// Zero means no limit.
	MaxContentSize int64
}

// PublisherFactory builds the change publisher wired into a project's
// context store. A nil factory or a nil result disables publishing.
type PublisherFactory func(projectID string) contextfile.ChangePublisher

// registryFile is the on-disk TOML layout of the project registry.
type registryFile struct {
	Projects []Project `toml:"projects"`
}

// manager implements Manager with an in-memory index persisted to TOML.
type manager struct {
	cfg          *Config
	publisherFor PublisherFactory
	logger       *zap.Logger

	mu       sync.RWMutex
	projects map[string]*Project
	byPath   map[string]*Project
	stores   map[string]contextfile.Store
	closed   bool
}

// NewManager creates a project manager rooted at cfg.Root. The registry
// is loaded from disk if present.
func NewManager(cfg *Config, publisherFor PublisherFactory, logger *zap.Logger) (Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	rootedCfg := *cfg
	rootedCfg.Root = root

	m := &manager{
		cfg:          &rootedCfg,
		publisherFor: publisherFor,
		logger:       logger,
		projects:     make(map[string]*Project),
		byPath:       make(map[string]*Project),
		stores:       make(map[string]contextfile.Store),
	}

	if err := m.load(); err != nil {
		return nil, err
	}

	logger.Info("project manager initialized",
		zap.String("root", root),
		zap.Int("projects", len(m.projects)))

	return m, nil
}

func (m *manager) Create(ctx context.Context, params CreateParams) (*Project, error) {
	absPath, err := sanitize.ValidateProjectPath(params.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProjectPath, err)
	}

	name := params.Name
	if name == "" {
		name, err = sanitize.SafeBasename(absPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProjectPath, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("manager is closed")
	}

	if existing, ok := m.byPath[absPath]; ok {
		return nil, fmt.Errorf("%w: %s is registered as %s", ErrProjectExists, absPath, existing.ID)
	}

	proj, err := NewProject(name, absPath)
	if err != nil {
		return nil, err
	}

	if params.ContextDir != "" {
		dir, err := sanitize.ValidateProjectPath(params.ContextDir)
		if err != nil {
			return nil, fmt.Errorf("invalid context dir: %w", err)
		}
		proj.ContextDir = dir
	} else {
		dirName, err := ContextDirName(proj.Name, proj.ID)
		if err != nil {
			return nil, err
		}
		proj.ContextDir = filepath.Join(m.cfg.Root, dirName)
	}

	m.projects[proj.ID] = proj
	m.byPath[proj.Path] = proj
	if err := m.saveLocked(); err != nil {
		delete(m.projects, proj.ID)
		delete(m.byPath, proj.Path)
		return nil, err
	}

	m.logger.Info("project registered",
		zap.String("project_id", proj.ID),
		zap.String("name", proj.Name),
		zap.String("path", proj.Path),
		zap.String("context_dir", proj.ContextDir))

	return proj, nil
}

func (m *manager) Get(ctx context.Context, id string) (*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	proj, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return proj, nil
}

func (m *manager) GetByPath(ctx context.Context, path string) (*Project, error) {
	absPath, err := sanitize.ValidateProjectPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProjectPath, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	proj, ok := m.byPath[absPath]
	if !ok {
		return nil, fmt.Errorf("%w: no project for path %s", ErrProjectNotFound, absPath)
	}
	return proj, nil
}

func (m *manager) List(ctx context.Context) ([]*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	projects := make([]*Project, 0, len(m.projects))
	for _, proj := range m.projects {
		projects = append(projects, proj)
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Name != projects[j].Name {
			return projects[i].Name < projects[j].Name
		}
		return projects[i].ID < projects[j].ID
	})
	return projects, nil
}

func (m *manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("manager is closed")
	}

	proj, ok := m.projects[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}

	if store, ok := m.stores[id]; ok {
		if err := store.Close(); err != nil {
			m.logger.Warn("failed to close context store",
				zap.String("project_id", id),
				zap.Error(err))
		}
		delete(m.stores, id)
	}

	delete(m.projects, id)
	delete(m.byPath, proj.Path)
	if err := m.saveLocked(); err != nil {
		m.projects[id] = proj
		m.byPath[proj.Path] = proj
		return err
	}

	// Only directories the manager created are removed. A user-supplied
	// context dir outside the storage root is left in place.
	if m.ownsContextDir(proj.ContextDir) {
		if err := os.RemoveAll(proj.ContextDir); err != nil {
			m.logger.Warn("failed to remove context dir",
				zap.String("project_id", id),
				zap.String("context_dir", proj.ContextDir),
				zap.Error(err))
		}
	}

	m.logger.Info("project deleted",
		zap.String("project_id", id),
		zap.String("name", proj.Name))

	return nil
}

func (m *manager) StoreFor(ctx context.Context, id string) (contextfile.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("manager is closed")
	}

	if store, ok := m.stores[id]; ok {
		return store, nil
	}

	proj, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}

	var pub contextfile.ChangePublisher
	if m.publisherFor != nil {
		pub = m.publisherFor(proj.ID)
	}

	store, err := contextfile.NewStore(&contextfile.Config{
		Dir:            proj.ContextDir,
		Project:        proj.Name,
		MaxContentSize: m.cfg.MaxContentSize,
	}, pub, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open context store: %w", err)
	}

	m.stores[id] = store
	return store, nil
}

func (m *manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for id, store := range m.stores {
		if err := store.Close(); err != nil {
			m.logger.Warn("failed to close context store",
				zap.String("project_id", id),
				zap.Error(err))
		}
	}
	m.stores = nil

	m.logger.Info("project manager closed")
	return nil
}

// registryPath returns the location of the TOML registry file.
func (m *manager) registryPath() string {
	return filepath.Join(m.cfg.Root, registryFileName)
}

// load reads the registry from disk. A missing file is an empty registry.
// Entries that fail validation are skipped so one corrupt record cannot
// block startup.
func (m *manager) load() error {
	var reg registryFile
	if _, err := toml.DecodeFile(m.registryPath(), &reg); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read project registry: %w", err)
	}

	for i := range reg.Projects {
		proj := reg.Projects[i]
		if err := proj.Validate(); err != nil {
			m.logger.Warn("skipping invalid registry entry",
				zap.String("project_id", proj.ID),
				zap.Error(err))
			continue
		}
		m.projects[proj.ID] = &proj
		m.byPath[proj.Path] = &proj
	}
	return nil
}

// saveLocked writes the registry atomically. Callers must hold mu.
func (m *manager) saveLocked() error {
	reg := registryFile{Projects: make([]Project, 0, len(m.projects))}
	for _, proj := range m.projects {
		reg.Projects = append(reg.Projects, *proj)
	}
	sort.Slice(reg.Projects, func(i, j int) bool {
		return reg.Projects[i].ID < reg.Projects[j].ID
	})

	tmp, err := os.CreateTemp(m.cfg.Root, ".projects-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create registry temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(reg); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode project registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close registry temp file: %w", err)
	}
	if err := os.Rename(tmpPath, m.registryPath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace project registry: %w", err)
	}
	return nil
}

// ownsContextDir reports whether dir lives under the storage root.
func (m *manager) ownsContextDir(dir string) bool {
	rel, err := filepath.Rel(m.cfg.Root, dir)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
