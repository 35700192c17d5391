// Package registry provides the format router: a registry of subconverter
// descriptors with lookup by format name, alias, or file extension.
//
// The registry is a value with an immutable built-in set, an add overlay,
// and a deregistration list that suppresses built-ins without mutating
// them. All resolution functions are pure: they never touch the
// filesystem. Callers that need to route a directory path or sniff file
// content read the bytes themselves and pass them in.
package registry

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/CallumVress/ScoreWeave/core/errors"
	"github.com/CallumVress/ScoreWeave/core/score"
)

// Converter is the contract every format handler implements. A handler
// instance is single-use per document: ParseFile or ParseData runs the
// translation, then Score/Scores yields the result.
type Converter interface {
	// ParseFile translates the document at path. For multi-work input,
	// number selects one work (1-indexed); zero means all.
	ParseFile(path string, number int) error

	// ParseData translates raw document bytes.
	ParseData(data []byte, number int) error

	// Score returns the translated score. For multi-work input with no
	// number requested it returns the first work.
	Score() *score.Score

	// Scores returns every translated work.
	Scores() []*score.Score
}

// Descriptor is the immutable registration record of one subconverter:
// format-name aliases plus input/output extensions. New constructs a fresh
// handler instance; a nil New declares a known format with no installed
// handler.
type Descriptor struct {
	// Name is the canonical format name (lowercase).
	Name string

	// Aliases are alternative names the format answers to.
	Aliases []string

	// InputExtensions are extensions the format can be read from,
	// including the leading dot.
	InputExtensions []string

	// OutputExtensions are extensions the format writes, used as a last
	// resolution tier for ambiguous hints.
	OutputExtensions []string

	// Directory marks the legacy multi-file format that claims directory
	// sources. A directory path always routes here, never sniffed.
	Directory bool

	// New constructs a handler instance. Nil means no handler installed.
	New func() Converter
}

// matchesName reports whether the descriptor answers to the given
// lowercase name.
func (d *Descriptor) matchesName(name string) bool {
	if strings.EqualFold(d.Name, name) {
		return true
	}
	for _, a := range d.Aliases {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

func extListContains(exts []string, ext string) bool {
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// Registry routes format hints to descriptors. The zero value is unusable;
// construct with New. All lookups take a read lock so a single Registry can
// be shared across goroutines.
type Registry struct {
	mu         sync.RWMutex
	builtins   []Descriptor
	added      []Descriptor
	suppressed map[string]bool
}

// New constructs a registry over an immutable built-in descriptor set.
func New(builtins ...Descriptor) *Registry {
	return &Registry{
		builtins:   builtins,
		suppressed: make(map[string]bool),
	}
}

// Register adds a descriptor to the overlay. Built-ins keep resolution
// priority: registration order is observable, first match wins.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, d)
	delete(r.suppressed, strings.ToLower(d.Name))
}

// Deregister suppresses a format by canonical name without mutating the
// built-in set. The format stays known: resolving it yields the
// descriptor, dispatching it yields HandlerDisabledError.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suppressed[strings.ToLower(name)] = true
}

// DeregisterAll suppresses every currently known format.
func (r *Registry) DeregisterAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.builtins {
		r.suppressed[strings.ToLower(d.Name)] = true
	}
	for _, d := range r.added {
		r.suppressed[strings.ToLower(d.Name)] = true
	}
}

// Restore lifts a suppression set by Deregister.
func (r *Registry) Restore(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.suppressed, strings.ToLower(name))
}

// all returns descriptors in resolution priority order. Caller holds the
// read lock.
func (r *Registry) all() []Descriptor {
	out := make([]Descriptor, 0, len(r.builtins)+len(r.added))
	out = append(out, r.builtins...)
	out = append(out, r.added...)
	return out
}

// Formats lists the canonical names of every known format in priority
// order, including suppressed ones.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for _, d := range r.all() {
		names = append(names, d.Name)
	}
	return names
}

// Resolve maps a hint to a descriptor. Resolution order for ambiguous
// hints: exact format-name/alias match, then input extension, then output
// extension; first match wins. Lookups are case-insensitive; extension
// hints may carry or omit the leading dot. An unresolvable hint yields an
// UnknownFormatError; suppression does not hide a format from Resolve.
func (r *Registry) Resolve(hint string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := strings.ToLower(strings.TrimSpace(hint))
	if h == "" {
		return nil, errors.NewUnknownFormat(hint)
	}
	descriptors := r.all()

	for i := range descriptors {
		if descriptors[i].matchesName(h) {
			return &descriptors[i], nil
		}
	}

	ext := h
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for i := range descriptors {
		if extListContains(descriptors[i].InputExtensions, ext) {
			return &descriptors[i], nil
		}
	}
	for i := range descriptors {
		if extListContains(descriptors[i].OutputExtensions, ext) {
			return &descriptors[i], nil
		}
	}

	return nil, errors.NewUnknownFormat(hint)
}

// FromExtension resolves a path by its extension alone. It is pure string
// work; directory routing is the caller's job since it needs a stat.
func (r *Registry) FromExtension(path string) (*Descriptor, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil, errors.NewUnknownFormat(path)
	}
	d, err := r.Resolve(ext)
	if err != nil {
		return nil, errors.NewUnknownFormat(path)
	}
	return d, nil
}

// DirectoryFormat returns the descriptor claiming directory sources.
func (r *Registry) DirectoryFormat() (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptors := r.all()
	for i := range descriptors {
		if descriptors[i].Directory {
			return &descriptors[i], nil
		}
	}
	return nil, errors.NewUnknownFormat("directory")
}

// headerPattern matches the inline "format-name:" header convention at the
// start of raw text input.
var headerPattern = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9_-]*)\s*:`)

// FromHeader recognizes an explicit "name:" prefix in raw text. When the
// prefix names a known format the descriptor and the remaining text are
// returned; otherwise the descriptor is nil and the text comes back
// untouched.
func (r *Registry) FromHeader(text string) (*Descriptor, string) {
	m := headerPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, text
	}
	d, err := r.Resolve(m[1])
	if err != nil {
		return nil, text
	}
	rest := text[len(m[0]):]
	return d, strings.TrimLeft(rest, " \t")
}

// Dispatch resolves a format name and constructs its handler. A suppressed
// or handler-less format yields HandlerDisabledError - a different failure
// than an unknown format, and callers must distinguish the two.
func (r *Registry) Dispatch(format string) (Converter, error) {
	d, err := r.Resolve(format)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	suppressed := r.suppressed[strings.ToLower(d.Name)]
	r.mu.RUnlock()

	if suppressed || d.New == nil {
		return nil, errors.NewHandlerDisabled(d.Name)
	}
	return d.New(), nil
}

// Sniff guesses a format from document content. It recognizes the MusicXML
// root elements and the tinynotation meter-then-notes shape. Returns nil
// when nothing matches - sniffing is a heuristic, not a resolution.
func (r *Registry) Sniff(data []byte) *Descriptor {
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	text := string(head)

	if strings.Contains(text, "<score-partwise") ||
		strings.Contains(text, "<score-timewise") ||
		strings.Contains(text, "<opus") {
		if d, err := r.Resolve("musicxml"); err == nil {
			return d
		}
	}

	if tinyPattern.MatchString(strings.TrimSpace(text)) {
		if d, err := r.Resolve("tinynotation"); err == nil {
			return d
		}
	}

	return nil
}

// tinyPattern matches a leading meter token followed by note letters,
// e.g. "4/4 c4 d e f".
var tinyPattern = regexp.MustCompile(`^\d+/\d+\s+[a-grA-GR]`)
