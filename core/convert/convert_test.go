package convert

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/CallumVress/ScoreWeave/core/errors"
)

const simpleXML = `<?xml version="1.0" encoding="UTF-8"?>
<score-partwise version="4.0">
  <part-list><score-part id="P1"><part-name>Flute</part-name></score-part></part-list>
  <part id="P1">
    <measure number="1">
      <attributes>
        <divisions>1</divisions>
        <time><beats>4</beats><beat-type>4</beat-type></time>
        <clef><sign>G</sign><line>2</line></clef>
      </attributes>
      <note><pitch><step>C</step><octave>4</octave></pitch><duration>4</duration><type>whole</type></note>
    </measure>
  </part>
</score-partwise>`

func newPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseFileByExtension(t *testing.T) {
	p := newPipeline(t)
	path := writeFile(t, t.TempDir(), "piece.xml", simpleXML)

	s, err := p.ParseFile(path, Options{})
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if s.Metadata.SourceFormat != "musicxml" {
		t.Errorf("source format = %q", s.Metadata.SourceFormat)
	}
	if len(s.Parts) != 1 || s.Parts[0].Name != "Flute" {
		t.Errorf("parts = %+v", s.Parts)
	}
}

func TestParseFileWritesAndReusesCache(t *testing.T) {
	p := newPipeline(t)
	path := writeFile(t, t.TempDir(), "piece.xml", simpleXML)

	first, err := p.ParseFile(path, Options{})
	if err != nil {
		t.Fatalf("first parse: %v", err)
	}

	entries, err := os.ReadDir(p.Cache().Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("cache artifacts = %d, want 1", len(entries))
	}

	second, err := p.ParseFile(path, Options{})
	if err != nil {
		t.Fatalf("second parse: %v", err)
	}
	if first.Counts() != second.Counts() {
		t.Errorf("cached graph drifted: %+v vs %+v", first.Counts(), second.Counts())
	}
	if second.Parts[0].Name != "Flute" {
		t.Errorf("cached part name = %q", second.Parts[0].Name)
	}
}

func TestForceSourceRetranslates(t *testing.T) {
	p := newPipeline(t)
	path := writeFile(t, t.TempDir(), "piece.xml", simpleXML)

	if _, err := p.ParseFile(path, Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.ParseFile(path, Options{ForceSource: true}); err != nil {
		t.Fatalf("ForceSource parse: %v", err)
	}
}

func TestParseDataSniffsMusicXML(t *testing.T) {
	p := newPipeline(t)
	s, err := p.ParseData([]byte(simpleXML), Options{})
	if err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	if s.Metadata.SourceFormat != "musicxml" {
		t.Errorf("source format = %q", s.Metadata.SourceFormat)
	}
}

func TestParseDataContainerBytes(t *testing.T) {
	p := newPipeline(t)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range [][2]string{
		{"META-INF/container.xml", "<container/>"},
		{"piece.xml", simpleXML},
	} {
		w, err := zw.Create(m[0])
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(m[1])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	// No hint: the container signature alone must route and resolve.
	s, err := p.ParseData(buf.Bytes(), Options{})
	if err != nil {
		t.Fatalf("ParseData on container bytes: %v", err)
	}
	if len(s.Parts) != 1 || s.Parts[0].Name != "Flute" {
		t.Errorf("parts = %+v", s.Parts)
	}
}

func TestParseDataHeaderConvention(t *testing.T) {
	p := newPipeline(t)
	s, err := p.ParseData([]byte("tinynotation: 4/4 c4 d4 e4 f4"), Options{})
	if err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	if s.Metadata.SourceFormat != "tinynotation" {
		t.Errorf("source format = %q", s.Metadata.SourceFormat)
	}
	if got := s.Counts().Events; got != 5 {
		t.Errorf("events = %d, want 4 notes + time signature", got)
	}
}

func TestParseRawTinySniffed(t *testing.T) {
	p := newPipeline(t)
	s, err := p.Parse("4/4 c4 d4 e4 f4", Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Metadata.SourceFormat != "tinynotation" {
		t.Errorf("source format = %q", s.Metadata.SourceFormat)
	}
}

func TestParseDataUnknownFormat(t *testing.T) {
	p := newPipeline(t)
	_, err := p.ParseData([]byte("definitely not music"), Options{})
	if !errors.Is(err, errors.ErrUnknownFormat) {
		t.Errorf("err = %v, want unknown format", err)
	}
}

func TestHandlerlessFormatIsDisabledNotUnknown(t *testing.T) {
	p := newPipeline(t)
	path := writeFile(t, t.TempDir(), "tune.abc", "X:1\nT:Test\nK:C\nCDEF|")

	_, err := p.ParseFile(path, Options{})
	if !errors.Is(err, errors.ErrHandlerDisabled) {
		t.Errorf("err = %v, want handler disabled", err)
	}
	if errors.Is(err, errors.ErrUnknownFormat) {
		t.Error("disabled handler misreported as unknown format")
	}
}

func TestDirectoryRoutesToShardedFormat(t *testing.T) {
	p := newPipeline(t)
	dir := t.TempDir()

	_, err := p.ParseFile(dir, Options{})
	// musedata claims directories and ships without a handler.
	if !errors.Is(err, errors.ErrHandlerDisabled) {
		t.Errorf("err = %v, want handler disabled", err)
	}
}

func TestURLWithoutDownloadPreference(t *testing.T) {
	p := newPipeline(t)
	_, err := p.Parse("https://example.org/piece.xml", Options{})
	if !errors.Is(err, errors.ErrDownloadDisabled) {
		t.Errorf("err = %v, want download disabled", err)
	}
	var dd *errors.DownloadDisabledError
	if !errors.As(err, &dd) {
		t.Fatalf("err type = %T", err)
	}
	if dd.URL != "https://example.org/piece.xml" || dd.Preference != "false" {
		t.Errorf("error detail = %+v", dd)
	}
}

func TestMemoryCacheReturnsWorkingCopy(t *testing.T) {
	p := newPipeline(t)
	data := []byte(simpleXML)

	first, err := p.ParseData(data, Options{})
	if err != nil {
		t.Fatal(err)
	}
	first.Parts[0].Name = "mutated"

	second, err := p.ParseData(data, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if second.Parts[0].Name == "mutated" {
		t.Error("mutation leaked into the cached graph")
	}
}

func TestNoCacheDirDisablesDiskLayer(t *testing.T) {
	p, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	if p.Cache() != nil {
		t.Fatal("expected nil disk cache")
	}
	path := writeFile(t, t.TempDir(), "piece.xml", simpleXML)
	if _, err := p.ParseFile(path, Options{}); err != nil {
		t.Fatalf("ParseFile without cache: %v", err)
	}
}

func TestExplicitFormatHintWins(t *testing.T) {
	p := newPipeline(t)
	// A .txt extension resolves nowhere; the hint carries it.
	path := writeFile(t, t.TempDir(), "piece.txt", "4/4 c4 d4 e4 f4")
	s, err := p.ParseFile(path, Options{Format: "tiny"})
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if s.Metadata.SourceFormat != "tinynotation" {
		t.Errorf("source format = %q", s.Metadata.SourceFormat)
	}
}

func TestArtifactAsSourceLoadsCachedGraph(t *testing.T) {
	p := newPipeline(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "piece.xml", simpleXML)

	first, err := p.ParseFile(path, Options{})
	if err != nil {
		t.Fatalf("first parse: %v", err)
	}

	entries, err := os.ReadDir(p.Cache().Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("cache artifacts = %d, want 1", len(entries))
	}

	// Artifacts are recognized by stream format: the extension routing
	// must not matter, so give the copy a plausible source name.
	artifact, err := os.ReadFile(filepath.Join(p.Cache().Root(), entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	copied := writeFile(t, dir, "exported.xml", string(artifact))

	s, err := p.ParseFile(copied, Options{})
	if err != nil {
		t.Fatalf("parsing an artifact source: %v", err)
	}
	if s.Counts() != first.Counts() {
		t.Errorf("artifact graph drifted: %+v vs %+v", s.Counts(), first.Counts())
	}

	// Loading an artifact must never write a second one.
	entries, err = os.ReadDir(p.Cache().Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("artifact source was re-cached: %d entries", len(entries))
	}

	// An original-source request cannot be satisfied by an artifact.
	if _, err := p.ParseFile(copied, Options{ForceSource: true}); err == nil {
		t.Error("ForceSource on an artifact should fail")
	}
}
