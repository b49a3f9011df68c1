package flow

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"time"

	"github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"
)

//go:embed flows/*.yaml
var defaultFlows embed.FS

// LoadDefinitions decodes one or more YAML documents into validated definitions.
func LoadDefinitions(r io.Reader) ([]Definition, error) {
	dec := yaml.NewDecoder(r)
	var defs []Definition
	for {
		var def Definition
		err := dec.Decode(&def)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode flow definition: %w", err)
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// DefaultDefinitions returns the built-in flow catalog.
func DefaultDefinitions() ([]Definition, error) {
	return loadFS(defaultFlows, "flows")
}

func loadFS(fsys fs.FS, dir string) ([]Definition, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read flow directory: %w", err)
	}

	var defs []Definition
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		loaded, err := LoadDefinitions(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", entry.Name(), err)
		}
		defs = append(defs, loaded...)
	}
	return defs, nil
}

// CachedCatalog caches catalog reads for a fixed TTL. Definitions change only on deploy.
type CachedCatalog struct {
	next  Catalog
	cache *cache.Cache
}

// NewCachedCatalog wraps next with a TTL cache.
func NewCachedCatalog(next Catalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{next: next, cache: cache.New(ttl, 2*ttl)}
}

func (c *CachedCatalog) GetFlow(ctx context.Context, id string) (*Definition, error) {
	key := "flow:" + id
	if v, ok := c.cache.Get(key); ok {
		def := v.(Definition)
		return &def, nil
	}

	def, err := c.next.GetFlow(ctx, id)
	if err != nil || def == nil {
		return def, err
	}
	c.cache.SetDefault(key, *def)
	return def, nil
}

func (c *CachedCatalog) ActiveFlowsByCategory(ctx context.Context, category string) ([]Definition, error) {
	key := "category:" + category
	if v, ok := c.cache.Get(key); ok {
		return v.([]Definition), nil
	}

	defs, err := c.next.ActiveFlowsByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, defs)
	slog.Debug("Cached flows for category", "category", category, "count", len(defs))
	return defs, nil
}

// Flush drops every cached entry.
func (c *CachedCatalog) Flush() {
	c.cache.Flush()
}
