// ABOUTME: Tool catalog mapping tool identifiers to thinking-step labels and detail lines.
// ABOUTME: Loaded from the embedded labels.yaml, optionally overridden by a YAML file on disk.

// Package tools holds the static lookup used to describe tool calls to the
// user, and the tool definitions advertised to the model.
package tools

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed labels.yaml
var defaultCatalog []byte

// DefaultFallback is used when a catalog does not define its own fallback label.
const DefaultFallback = "Invoked {name}"

// Entry describes one known tool.
type Entry struct {
	Name        string         `yaml:"name" json:"name"`
	Label       string         `yaml:"label" json:"label"`
	Description string         `yaml:"description" json:"description"`
	Parameters  map[string]any `yaml:"parameters" json:"args_schema,omitempty"`
}

// DetailRule renders one args field as a detail line.
type DetailRule struct {
	Field  string `yaml:"field"`
	Prefix string `yaml:"prefix"`
}

type catalogFile struct {
	Fallback string       `yaml:"fallback"`
	Details  []DetailRule `yaml:"details"`
	Tools    []Entry      `yaml:"tools"`
}

// Catalog is safe for concurrent use; Reload swaps its contents atomically.
type Catalog struct {
	mu       sync.RWMutex
	path     string
	fallback string
	details  []DetailRule
	entries  map[string]Entry
	order    []string
}

// Default returns the catalog built from the embedded labels.yaml.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("tools: embedded catalog: %v", err))
	}
	return c
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := c.apply(data, nil); err != nil {
		return nil, err
	}
	return c, nil
}

// Load returns the embedded catalog overlaid with the YAML file at path. Tools
// in the file replace same-named embedded entries; a non-empty fallback or
// details list in the file replaces the embedded one. An empty path yields the
// embedded catalog.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	c.path = path
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Path returns the override file the catalog was loaded from, if any.
func (c *Catalog) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}

// Reload re-reads the override file. On error the current contents are kept.
func (c *Catalog) Reload() error {
	path := c.Path()
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read tool catalog %s: %w", path, err)
	}
	base, err := Parse(defaultCatalog)
	if err != nil {
		return err
	}
	if err := c.apply(data, base); err != nil {
		return fmt.Errorf("tool catalog %s: %w", path, err)
	}
	return nil
}

// apply decodes data on top of base (or on its own when base is nil) and
// swaps the result into c.
func (c *Catalog) apply(data []byte, base *Catalog) error {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse tool catalog: %w", err)
	}

	fallback := DefaultFallback
	var details []DetailRule
	entries := make(map[string]Entry)
	var order []string
	if base != nil {
		fallback = base.fallback
		details = base.details
		for _, name := range base.order {
			entries[name] = base.entries[name]
			order = append(order, name)
		}
	}
	if f.Fallback != "" {
		fallback = f.Fallback
	}
	if len(f.Details) > 0 {
		details = f.Details
	}
	for _, e := range f.Tools {
		if e.Name == "" {
			return fmt.Errorf("tool entry without a name")
		}
		if _, exists := entries[e.Name]; !exists {
			order = append(order, e.Name)
		}
		entries[e.Name] = e
	}

	c.mu.Lock()
	c.fallback = fallback
	c.details = details
	c.entries = entries
	c.order = order
	c.mu.Unlock()
	return nil
}

// Label returns the display label for a tool, or the fallback label with the
// tool name substituted for unknown tools.
func (c *Catalog) Label(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[name]; ok && e.Label != "" {
		return e.Label
	}
	return strings.ReplaceAll(c.fallback, "{name}", name)
}

// Detail returns a best-effort detail line from tool-call arguments: the first
// detail rule whose field holds a non-empty value wins. Array values are
// joined with commas. It returns "" when no rule applies.
func (c *Catalog) Detail(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rule := range c.details {
		if v := valueText(args[rule.Field]); v != "" {
			return rule.Prefix + v
		}
	}
	return ""
}

// Step returns both the label and the detail line for a tool call.
func (c *Catalog) Step(name string, args map[string]any) (label, detail string) {
	return c.Label(name), c.Detail(args)
}

// Names returns the known tool names in catalog order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Entries returns the known tools in catalog order.
func (c *Catalog) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.entries[name])
	}
	return out
}

// Len returns the number of known tools.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func valueText(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case bool:
		if !v {
			return ""
		}
		return "true"
	case float64:
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := valueText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(v, ",")
	default:
		return fmt.Sprint(v)
	}
}
