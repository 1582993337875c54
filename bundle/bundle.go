package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iedon/docpage-go/docpage"
)

// Ext is appended to a page's relative path to name its bundle file.
const Ext = ".json"

// ErrInvalidBundle is returned when a bundle file is malformed.
var ErrInvalidBundle = errors.New("invalid page bundle")

// Bundle is the serialized form of a page module.
type Bundle struct {
	Name     string           `json:"name"`
	Metadata docpage.Metadata `json:"metadata"`
	Fragment []string         `json:"fragment"`
}

// FromModule captures a module for serialization.
func FromModule(m *docpage.Module) Bundle {
	return Bundle{
		Name:     m.Name(),
		Metadata: m.Metadata(),
		Fragment: m.Fragment().Segments(),
	}
}

// Module materializes the bundle into a page module.
func (b Bundle) Module(opts ...docpage.RendererOption) *docpage.Module {
	return docpage.NewModule(b.Metadata, docpage.NewFragment(b.Fragment...), opts...)
}

// Decode parses and validates a bundle.
func Decode(data []byte) (Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return Bundle{}, errors.Join(ErrInvalidBundle, err)
	}
	if err := b.validate(); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

func (b *Bundle) validate() error {
	if strings.TrimSpace(b.Metadata.RelativePath) == "" {
		return errors.Join(ErrInvalidBundle, errors.New("missing relativePath"))
	}
	if b.Name == "" {
		b.Name = b.Metadata.RelativePath
	}
	if b.Name != b.Metadata.RelativePath {
		return errors.Join(ErrInvalidBundle, fmt.Errorf("name %q does not match relativePath %q", b.Name, b.Metadata.RelativePath))
	}
	return nil
}

// FileName returns the bundle path for a relative page path.
func FileName(relPath string) string {
	return path.Clean(filepath.ToSlash(relPath)) + Ext
}

// Write stores the bundle under dir.
func Write(dir string, b Bundle) error {
	if err := b.validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bundle %s: %w", b.Name, err)
	}
	target := filepath.Join(dir, filepath.FromSlash(FileName(b.Name)))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o644)
}

// Load reads a single bundle file.
func Load(file string) (Bundle, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Bundle{}, err
	}
	b, err := Decode(data)
	if err != nil {
		return Bundle{}, fmt.Errorf("%s: %w", file, err)
	}
	return b, nil
}

// LoadDir reads every bundle below dir, sorted by name.
func LoadDir(dir string) ([]Bundle, error) {
	bundles := make([]Bundle, 0, 32)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsBundleFile(p) {
			return nil
		}
		b, err := Load(p)
		if err != nil {
			return err
		}
		bundles = append(bundles, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(bundles, func(i, j int) bool {
		return bundles[i].Name < bundles[j].Name
	})
	return bundles, nil
}

// IsBundleFile reports whether p looks like a page bundle.
func IsBundleFile(p string) bool {
	base := filepath.Base(p)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.HasSuffix(strings.ToLower(base), ".md"+Ext)
}
