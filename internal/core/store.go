package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ConfigExt is the extension of saved configuration files.
const ConfigExt = ".csv"

var (
	validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
	slugStrip = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// ConfigStore keeps category/test configurations as CSV files in one
// directory. Names map one-to-one to files: name "panel_a" is
// <dir>/panel_a.csv.
type ConfigStore struct {
	dir string
}

// NewConfigStore returns a store rooted at dir. The directory is created on
// first save.
func NewConfigStore(dir string) *ConfigStore {
	return &ConfigStore{dir: dir}
}

// Dir returns the store directory.
func (s *ConfigStore) Dir() string {
	return s.dir
}

// Slug turns a free-form name into a storable one: runs of characters other
// than letters, digits, '-' and '_' become '_', and a trailing ".csv" is
// dropped. An empty result gets a generated name.
func Slug(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, ConfigExt)
	name = slugStrip.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_-")
	if name == "" {
		return GeneratedName()
	}
	return name
}

// GeneratedName returns generated_config_<8 hex chars>.
func GeneratedName() string {
	return "generated_config_" + uuid.New().String()[:8]
}

// Path returns the file for name. Names that could escape the directory are
// rejected with ErrInvalidName.
func (s *ConfigStore) Path(name string) (string, error) {
	name = strings.TrimSuffix(name, ConfigExt)
	if !validName.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name+ConfigExt), nil
}

// Save writes m under the slug of name and returns the stored name. The file
// is written to a temporary name and renamed into place.
func (s *ConfigStore) Save(name string, m *Mapping) (string, error) {
	if m == nil || m.Len() == 0 {
		return "", ErrEmptyMapping
	}
	name = Slug(name)
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteMapping(tmp, m); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("save config: %w", err)
	}
	return name, nil
}

// Load reads a saved configuration.
func (s *ConfigStore) Load(name string) (*Mapping, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	m, err := ReadMapping(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}
	return m, nil
}

// List returns the saved configuration names in ascending order. A missing
// directory lists as empty.
func (s *ConfigStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ConfigExt) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ConfigExt)
		if validName.MatchString(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
