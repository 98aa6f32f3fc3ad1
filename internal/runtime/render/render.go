// Package render fills Jinja-style templates with normalized profile fields.
package render

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"gopkg.in/yaml.v3"

	errspkg "github.com/drblury/avroflow/internal/runtime/errors"
)

// Renderer produces a document from the template file in dir.
type Renderer interface {
	Render(dir, file string, data map[string]any) (string, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(dir, file string, data map[string]any) (string, error)

func (f RendererFunc) Render(dir, file string, data map[string]any) (string, error) {
	return f(dir, file, data)
}

// Options tunes the template environment.
type Options struct {
	// TrimBlocks removes the first newline after a block tag.
	TrimBlocks bool
	// LStripBlocks strips whitespace before a block tag on its line.
	LStripBlocks bool
	// ValidateYAML checks that .yaml/.yml templates render to well-formed YAML.
	ValidateYAML bool
}

// DefaultOptions mirrors the environment profile templates are written for.
func DefaultOptions() Options {
	return Options{TrimBlocks: true, LStripBlocks: true, ValidateYAML: true}
}

// TemplateRenderer caches one template set per directory.
type TemplateRenderer struct {
	opts Options

	mu   sync.Mutex
	sets map[string]*pongo2.TemplateSet
}

// pongo2 only exposes autoescaping as a package-wide switch.
var disableAutoescape sync.Once

// New returns a TemplateRenderer using opts. Values are rendered verbatim:
// HTML autoescaping is turned off for every pongo2 template in the process.
func New(opts Options) *TemplateRenderer {
	disableAutoescape.Do(func() { pongo2.SetAutoescape(false) })
	return &TemplateRenderer{
		opts: opts,
		sets: make(map[string]*pongo2.TemplateSet),
	}
}

// Render executes dir/file with data as the template context.
func (r *TemplateRenderer) Render(dir, file string, data map[string]any) (string, error) {
	set, err := r.templateSet(dir)
	if err != nil {
		return "", &errspkg.RenderError{Template: file, Err: err}
	}

	tpl, err := set.FromFile(file)
	if err != nil {
		return "", &errspkg.RenderError{Template: file, Err: err}
	}

	out, err := tpl.Execute(pongo2.Context(data))
	if err != nil {
		return "", &errspkg.RenderError{Template: file, Err: err}
	}

	if r.opts.ValidateYAML && isYAML(file) {
		var doc any
		if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
			return "", &errspkg.RenderError{Template: file, Err: fmt.Errorf("rendered document is not valid yaml: %w", err)}
		}
	}
	return out, nil
}

// Invalidate drops cached templates for dir so the next Render re-reads them.
func (r *TemplateRenderer) Invalidate(dir string) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sets, abs)
}

func (r *TemplateRenderer) templateSet(dir string) (*pongo2.TemplateSet, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.sets[abs]; ok {
		return set, nil
	}

	loader, err := pongo2.NewLocalFileSystemLoader(abs)
	if err != nil {
		return nil, fmt.Errorf("template directory %s: %w", dir, err)
	}
	set := pongo2.NewSet("avroflow:"+abs, loader)
	set.Options.TrimBlocks = r.opts.TrimBlocks
	set.Options.LStripBlocks = r.opts.LStripBlocks

	r.sets[abs] = set
	return set, nil
}

func isYAML(file string) bool {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
