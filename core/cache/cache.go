// Package cache provides the document cache: translated score graphs
// stored on disk keyed by a content fingerprint of the source and the
// engine version, plus an in-memory LRU layer for already-decoded graphs.
//
// The cache is a pure optimization. Corruption is treated as a miss (the
// stale artifact is deleted and the source re-translated), a version
// mismatch is a soft warning, and concurrent writers to one key may race
// with the last writer winning - a discarded result is still valid.
package cache

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/CallumVress/ScoreWeave/core/errors"
	"github.com/CallumVress/ScoreWeave/core/score"
	"github.com/CallumVress/ScoreWeave/internal/logging"
)

// ArtifactExt is the cache artifact extension.
const ArtifactExt = ".swz"

// xzMagic is the xz stream signature; cache artifacts are recognized by
// format, never by extension.
var xzMagic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

// ErrCorrupt marks a cache artifact that failed structural decode. Callers
// treat it as a miss, never as a translation failure.
var ErrCorrupt = fmt.Errorf("corrupt cache artifact")

// Decision is the outcome of a freshness check.
type Decision struct {
	// PathToLoad is the file the caller should read: the cache artifact
	// when fresh, else the source itself.
	PathToLoad string

	// ShouldWrite tells the caller to write a fresh artifact after
	// translating the source.
	ShouldWrite bool

	// CachePath is the artifact path for this source, empty when the
	// source must never be re-cached.
	CachePath string

	// SourceIsArtifact marks a source that already is a cache artifact.
	// The caller must load it as one instead of handing its bytes to a
	// translation handler.
	SourceIsArtifact bool
}

// Cache is a document cache rooted at one directory.
type Cache struct {
	root    string
	version string
	runtime string
}

// New creates a document cache in root. Artifact names carry the engine
// version so entries never collide across incompatible versions.
func New(root, engineVersion string) (*Cache, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.NewIO("create cache directory", root, err)
	}
	return &Cache{
		root:    root,
		version: engineVersion,
		runtime: sanitize(runtime.Version()),
	}, nil
}

// Root returns the cache directory.
func (c *Cache) Root() string { return c.root }

// Fingerprint computes the content fingerprint of source bytes.
func Fingerprint(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ArtifactPath derives the deterministic artifact path for a source
// fingerprint and optional sub-document number (0 = whole document). The
// name folds in engine version and runtime identifier so entries never
// collide across incompatible versions or sub-documents of a multi-work
// file.
func (c *Cache) ArtifactPath(fingerprint string, number int) string {
	name := fmt.Sprintf("sw-%s-%s-%s", sanitize(c.version), c.runtime, fingerprint)
	if number > 0 {
		name += fmt.Sprintf("-n%d", number)
	}
	return filepath.Join(c.root, name+ArtifactExt)
}

// IsArtifact reports whether the file at path is a cache artifact, decided
// by stream format rather than extension.
func IsArtifact(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	sig := make([]byte, len(xzMagic))
	if _, err := io.ReadFull(f, sig); err != nil {
		return false
	}
	return bytes.Equal(sig, xzMagic)
}

// Status checks source freshness against the cache. sourceOnly refuses
// sources that already are cache artifacts, since those cannot satisfy a
// request for original input.
func (c *Cache) Status(sourcePath string, number int, sourceOnly bool) (Decision, error) {
	srcInfo, err := os.Stat(sourcePath)
	if err != nil {
		return Decision{}, errors.NewIO("stat", sourcePath, err)
	}

	// A source that is itself a cache artifact is never re-cached.
	if IsArtifact(sourcePath) {
		if sourceOnly {
			return Decision{}, errors.NewUnsupported("source", "path is a cache artifact and original source was requested")
		}
		return Decision{PathToLoad: sourcePath, SourceIsArtifact: true}, nil
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return Decision{}, errors.NewIO("read", sourcePath, err)
	}
	artifact := c.ArtifactPath(Fingerprint(data), number)

	if info, err := os.Stat(artifact); err == nil && !info.ModTime().Before(srcInfo.ModTime()) {
		logging.CacheEvent("hit", sourcePath, artifact)
		return Decision{PathToLoad: artifact, CachePath: artifact}, nil
	}

	logging.CacheEvent("miss", sourcePath, artifact)
	return Decision{PathToLoad: sourcePath, ShouldWrite: true, CachePath: artifact}, nil
}

// envelope is the serialized artifact: the graph tagged with the engine
// version that produced it.
type envelope struct {
	EngineVersion string       `json:"engine_version"`
	Score         *score.Score `json:"score"`
}

// Store serializes a translated graph to the artifact path: JSON inside an
// xz stream, written atomically via temp file and rename. The
// check-then-write is not atomic across processes; the last writer wins.
func (c *Cache) Store(artifactPath string, s *score.Score) error {
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		return errors.Wrap(err, "create xz writer")
	}
	if err := json.NewEncoder(xw).Encode(envelope{EngineVersion: c.version, Score: s}); err != nil {
		return errors.Wrap(err, "encode score graph")
	}
	if err := xw.Close(); err != nil {
		return errors.Wrap(err, "close xz stream")
	}

	dir := filepath.Dir(artifactPath)
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return errors.NewIO("create temp file", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.NewIO("write", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.NewIO("close", tmpPath, err)
	}
	if err := os.Rename(tmpPath, artifactPath); err != nil {
		os.Remove(tmpPath)
		return errors.NewIO("rename", artifactPath, err)
	}

	logging.CacheEvent("write", "", artifactPath)
	return nil
}

// Load decodes an artifact back into a working graph. A version mismatch
// is logged and the artifact still used; a structural decode failure
// deletes the stale artifact and returns ErrCorrupt so the caller falls
// back to the source.
func (c *Cache) Load(artifactPath string) (*score.Score, error) {
	f, err := os.Open(artifactPath)
	if err != nil {
		return nil, errors.NewIO("open", artifactPath, err)
	}
	defer f.Close()

	xr, err := xz.NewReader(f)
	if err != nil {
		return nil, c.corrupt(artifactPath, err)
	}

	var env envelope
	if err := json.NewDecoder(xr).Decode(&env); err != nil {
		return nil, c.corrupt(artifactPath, err)
	}
	if env.Score == nil {
		return nil, c.corrupt(artifactPath, fmt.Errorf("artifact has no score payload"))
	}

	if env.EngineVersion != c.version {
		logging.CacheVersionMismatch(artifactPath, env.EngineVersion, c.version)
	}

	env.Score.Relink()
	logging.CacheEvent("load", "", artifactPath)
	return env.Score, nil
}

// corrupt deletes a structurally broken artifact and reports ErrCorrupt.
func (c *Cache) corrupt(artifactPath string, cause error) error {
	logging.CacheEvent("corrupt", "", artifactPath, "error", cause.Error())
	os.Remove(artifactPath)
	return fmt.Errorf("%w: %s: %v", ErrCorrupt, artifactPath, cause)
}

// Clear removes every artifact in the cache directory.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return errors.NewIO("read cache directory", c.root, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ArtifactExt) {
			continue
		}
		if err := os.Remove(filepath.Join(c.root, e.Name())); err != nil {
			return errors.NewIO("remove", e.Name(), err)
		}
	}
	return nil
}

// sanitize makes a version string safe inside an artifact file name.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.':
			return r
		}
		return '_'
	}, s)
}
