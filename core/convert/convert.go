// Package convert orchestrates the translation pipeline: format routing,
// archive resolution, the document cache, and the per-format handlers.
//
// A Pipeline owns one registry and one cache and is safe for concurrent
// use; each Parse call dispatches a fresh single-use handler instance.
package convert

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/CallumVress/ScoreWeave/core/archive"
	"github.com/CallumVress/ScoreWeave/core/cache"
	"github.com/CallumVress/ScoreWeave/core/errors"
	"github.com/CallumVress/ScoreWeave/core/musicxml"
	"github.com/CallumVress/ScoreWeave/core/registry"
	"github.com/CallumVress/ScoreWeave/core/score"
	"github.com/CallumVress/ScoreWeave/core/tinynotation"
	"github.com/CallumVress/ScoreWeave/internal/logging"
)

// Options controls one Parse call.
type Options struct {
	// Format is an explicit format hint: a name, alias, or extension.
	// Empty means route by extension, then by content.
	Format string

	// Number selects one work of a multi-work document (1-indexed).
	// Zero means the first.
	Number int

	// ForceSource bypasses cached artifacts and re-translates the
	// original input. The fresh result still overwrites the cache.
	ForceSource bool

	// AllowDownload permits fetching URL sources. Off by default: a URL
	// source without it fails with DownloadDisabledError.
	AllowDownload bool
}

// Pipeline wires the router, the two cache layers, and the handlers.
type Pipeline struct {
	reg  *registry.Registry
	disk *cache.Cache
	mem  *cache.ScoreCache
}

// New builds a pipeline with the built-in format set and a document cache
// rooted at cacheDir. An empty cacheDir disables the disk layer.
func New(cacheDir string) (*Pipeline, error) {
	p := &Pipeline{
		reg: DefaultRegistry(),
		mem: cache.NewDefaultScoreCache(),
	}
	if cacheDir != "" {
		disk, err := cache.New(cacheDir, musicxml.EngineVersion)
		if err != nil {
			return nil, err
		}
		p.disk = disk
	}
	return p, nil
}

// Registry exposes the pipeline's format router for registration and
// suppression.
func (p *Pipeline) Registry() *registry.Registry { return p.reg }

// Cache exposes the disk cache layer, nil when disabled.
func (p *Pipeline) Cache() *cache.Cache { return p.disk }

// DefaultRegistry assembles the built-in descriptor set. The legacy
// dialect names are declared without handlers: they resolve, and
// dispatching them reports the handler as disabled rather than the format
// as unknown.
func DefaultRegistry() *registry.Registry {
	return registry.New(
		registry.Descriptor{
			Name:            "musicxml",
			Aliases:         []string{"xml", "mxl"},
			InputExtensions: []string{".xml", ".musicxml", ".mxl"},
			New:             func() registry.Converter { return musicxml.New() },
		},
		registry.Descriptor{
			Name:            "tinynotation",
			Aliases:         []string{"tiny"},
			InputExtensions: []string{".tntxt"},
			New:             func() registry.Converter { return tinynotation.New() },
		},
		registry.Descriptor{
			Name:            "abc",
			InputExtensions: []string{".abc"},
		},
		registry.Descriptor{
			Name:            "humdrum",
			Aliases:         []string{"kern"},
			InputExtensions: []string{".krn"},
		},
		registry.Descriptor{
			Name:            "musedata",
			InputExtensions: []string{".md", ".musedata"},
			Directory:       true,
		},
		registry.Descriptor{
			Name:            "romantext",
			Aliases:         []string{"rntxt"},
			InputExtensions: []string{".rntxt"},
		},
	)
}

// Parse resolves a source reference and translates it. The reference is a
// URL when it carries an http scheme, a file or directory path when one
// exists at that location, and raw document text otherwise.
func (p *Pipeline) Parse(src string, opts Options) (*score.Score, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return p.ParseURL(src, opts)
	}
	if _, err := os.Stat(src); err == nil {
		return p.ParseFile(src, opts)
	}
	return p.ParseData([]byte(src), opts)
}

// ParseFile translates the document at path, consulting the cache layers.
func (p *Pipeline) ParseFile(path string, opts Options) (*score.Score, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewIO("stat", path, err)
	}
	if info.IsDir() {
		return p.parseDirectory(path, opts)
	}

	d, err := p.routeFile(path, opts.Format)
	if err != nil {
		return nil, err
	}

	// Only the disk cache serves file sources; raw text has no mtime to
	// check freshness against.
	if p.disk != nil {
		return p.parseFileCached(path, d, opts)
	}

	h, err := p.reg.Dispatch(d.Name)
	if err != nil {
		return nil, err
	}
	if err := h.ParseFile(path, opts.Number); err != nil {
		return nil, err
	}
	return p.selectWork(h, d.Name)
}

// parseFileCached runs the freshness protocol: a fresh artifact is loaded
// instead of re-translating, a corrupt or missing one falls back to the
// source, and the fresh translation is written back when asked to.
func (p *Pipeline) parseFileCached(path string, d *registry.Descriptor, opts Options) (*score.Score, error) {
	decision, err := p.disk.Status(path, opts.Number, opts.ForceSource)
	if err != nil {
		return nil, err
	}

	// A source that already is an artifact is loaded as one, never handed
	// to a translation handler and never re-cached. If it is corrupt there
	// is no original input to fall back to.
	if decision.SourceIsArtifact {
		return p.disk.Load(path)
	}

	if opts.ForceSource && decision.CachePath != "" {
		decision.ShouldWrite = true
	}

	if !opts.ForceSource && decision.PathToLoad != path {
		s, err := p.disk.Load(decision.PathToLoad)
		if err == nil {
			return s, nil
		}
		// A corrupt artifact is a miss: fall through and re-translate.
		decision.ShouldWrite = true
	}

	h, err := p.reg.Dispatch(d.Name)
	if err != nil {
		return nil, err
	}
	if err := h.ParseFile(path, opts.Number); err != nil {
		return nil, err
	}
	s, err := p.selectWork(h, d.Name)
	if err != nil {
		return nil, err
	}

	if decision.ShouldWrite && decision.CachePath != "" {
		if err := p.disk.Store(decision.CachePath, s); err != nil {
			logging.CacheEvent("write failed", path, decision.CachePath, "error", err.Error())
		}
	}
	return s, nil
}

// ParseData translates raw document bytes. An explicit hint wins; then an
// inline "name:" header; then content sniffing. The in-memory layer keyed
// by content fingerprint serves repeat parses.
func (p *Pipeline) ParseData(data []byte, opts Options) (*score.Score, error) {
	d, body, err := p.routeData(data, opts.Format)
	if err != nil {
		return nil, err
	}

	fp := cache.Fingerprint(body)
	if !opts.ForceSource {
		if s, ok := p.mem.Get(fp); ok {
			return s, nil
		}
	}

	h, err := p.reg.Dispatch(d.Name)
	if err != nil {
		return nil, err
	}
	if err := h.ParseData(body, opts.Number); err != nil {
		return nil, err
	}
	s, err := p.selectWork(h, d.Name)
	if err != nil {
		return nil, err
	}
	// The cached graph is frozen; the caller keeps the live one.
	if frozen, err := s.Clone(); err == nil {
		p.mem.Put(fp, frozen)
	}
	return s, nil
}

// ParseURL fetches a remote document and translates the response body.
// Fetching requires the download preference to be on.
func (p *Pipeline) ParseURL(url string, opts Options) (*score.Score, error) {
	if !opts.AllowDownload {
		return nil, errors.NewDownloadDisabled(url, "false")
	}
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, errors.NewIO("fetch", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewIO("fetch", url, fmt.Errorf("status %s", resp.Status))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewIO("fetch", url, err)
	}
	if opts.Format == "" {
		if d, err := p.reg.FromExtension(url); err == nil {
			opts.Format = d.Name
		}
	}
	return p.ParseData(data, opts)
}

// parseDirectory routes a directory source to the format claiming
// directories. Directories are never sniffed.
func (p *Pipeline) parseDirectory(path string, opts Options) (*score.Score, error) {
	d, err := p.reg.DirectoryFormat()
	if err != nil {
		return nil, err
	}
	h, err := p.reg.Dispatch(d.Name)
	if err != nil {
		return nil, err
	}
	if err := h.ParseFile(path, opts.Number); err != nil {
		return nil, err
	}
	return p.selectWork(h, d.Name)
}

// routeFile picks a descriptor for a file source: explicit hint, then
// archive signature, then extension, then content sniffing.
func (p *Pipeline) routeFile(path, hint string) (*registry.Descriptor, error) {
	if hint != "" {
		return p.reg.Resolve(hint)
	}
	if archive.IsArchive(path) {
		return p.reg.Resolve("musicxml")
	}
	if d, err := p.reg.FromExtension(path); err == nil {
		return d, nil
	}
	head, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	if d := p.reg.Sniff(head); d != nil {
		return d, nil
	}
	return nil, errors.NewUnknownFormat(path)
}

// routeData picks a descriptor for raw bytes: explicit hint, container
// signature, inline header, then sniffing.
func (p *Pipeline) routeData(data []byte, hint string) (*registry.Descriptor, []byte, error) {
	if hint != "" {
		d, err := p.reg.Resolve(hint)
		return d, data, err
	}
	if archive.HasMagic(data) {
		d, err := p.reg.Resolve("musicxml")
		return d, data, err
	}
	if d, rest := p.reg.FromHeader(string(data)); d != nil {
		return d, []byte(rest), nil
	}
	if d := p.reg.Sniff(data); d != nil {
		return d, data, nil
	}
	return nil, data, errors.NewUnknownFormat(firstLine(data))
}

// selectWork returns the requested work from a finished handler.
func (p *Pipeline) selectWork(h registry.Converter, format string) (*score.Score, error) {
	s := h.Score()
	if s == nil {
		return nil, errors.NewParse(format, "", "handler produced no score")
	}
	if s.Metadata.SourceFormat == "" {
		s.Metadata.SourceFormat = format
	}
	return s, nil
}

func firstLine(data []byte) string {
	s := string(data)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return strings.TrimSpace(s)
}
