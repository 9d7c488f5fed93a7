// Package datasource locates the cascade project directory and opens its
// database.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/daviddao/cascadance/internal/store"
)

const (
	// HomeEnv overrides project discovery.
	HomeEnv = "CASCADANCE_HOME"

	defaultDir = ".cascadance"
	dbName     = "cascade.db"
	tagsName   = "tags.yaml"
)

// ErrNoProject is returned when no project directory is found.
var ErrNoProject = errors.New("no cascade project found")

// Project is a project directory and the files it holds.
type Project struct {
	Home string
}

// DBPath is the SQLite database path.
func (p Project) DBPath() string { return filepath.Join(p.Home, dbName) }

// TagsPath is the tag library path.
func (p Project) TagsPath() string { return filepath.Join(p.Home, tagsName) }

// Discover finds the project directory.
// Priority: CASCADANCE_HOME env var > .cascadance in CWD > walk up parents.
func Discover() (Project, error) {
	if env := os.Getenv(HomeEnv); env != "" {
		info, err := os.Stat(env)
		if err != nil {
			return Project{}, fmt.Errorf("%s=%q: %w", HomeEnv, env, err)
		}
		if !info.IsDir() {
			return Project{}, fmt.Errorf("%s=%q: not a directory", HomeEnv, env)
		}
		return Project{Home: env}, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return Project{}, fmt.Errorf("get working directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, defaultDir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return Project{Home: candidate}, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return Project{}, fmt.Errorf("%w (looked for %s)", ErrNoProject, defaultDir)
}

// Init creates a project directory under dir.
func Init(dir string) (Project, error) {
	home, err := filepath.Abs(filepath.Join(dir, defaultDir))
	if err != nil {
		return Project{}, fmt.Errorf("resolve project path: %w", err)
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return Project{}, fmt.Errorf("create %s: %w", home, err)
	}
	return Project{Home: home}, nil
}

// Open discovers the project, creating one in the working directory when
// none exists, and opens its store.
func Open() (*store.Store, Project, error) {
	p, err := Discover()
	if errors.Is(err, ErrNoProject) {
		p, err = Init(".")
	}
	if err != nil {
		return nil, Project{}, err
	}
	s, err := store.Open(p.DBPath())
	if err != nil {
		return nil, Project{}, fmt.Errorf("open %s: %w", p.DBPath(), err)
	}
	return s, p, nil
}
