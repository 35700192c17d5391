// Package archive resolves compressed single-document containers.
//
// A container in this domain is a ZIP file holding either one XML score
// (located by skipping the reserved META-INF metadata folder and picking
// the first top-level .xml entry) or several named entries forming the
// shards of one logical legacy document. Container metadata entries
// (mimetype, META-INF/*) are never payload.
package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/CallumVress/ScoreWeave/core/errors"
	"github.com/CallumVress/ScoreWeave/internal/logging"
)

// ZIP magic bytes: PK\x03\x04
var zipMagic = []byte{0x50, 0x4b, 0x03, 0x04}

// metadataFolder is the container's reserved metadata folder.
const metadataFolder = "META-INF"

// archiveExtensions are extensions a score container plausibly carries.
var archiveExtensions = map[string]bool{
	".mxl": true,
	".zip": true,
}

// Entry describes one archive member.
type Entry struct {
	// Path is the member path inside the archive.
	Path string `json:"path"`

	// SizeBytes is the uncompressed size.
	SizeBytes int64 `json:"size_bytes"`

	// IsDir reports a directory member.
	IsDir bool `json:"is_dir"`
}

// IsArchive reports whether the file at path is a compressed score
// container: the byte signature must match and the extension must be
// plausible. A mismatched signature reports false rather than an error -
// many real files share the extension without being compressed.
func IsArchive(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	if !archiveExtensions[ext] {
		return false
	}

	f, err := os.Open(p)
	if err != nil {
		return false
	}
	defer f.Close()

	sig := make([]byte, len(zipMagic))
	if _, err := f.Read(sig); err != nil {
		return false
	}
	return bytes.Equal(sig, zipMagic)
}

// HasMagic reports whether raw bytes begin with the container signature.
func HasMagic(data []byte) bool {
	return len(data) >= len(zipMagic) && bytes.Equal(data[:len(zipMagic)], zipMagic)
}

// ListEntries enumerates the members of the container at path.
func ListEntries(p string) ([]Entry, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, errors.NewIO("open archive", p, err)
	}
	defer zr.Close()

	var entries []Entry
	for _, f := range zr.File {
		entries = append(entries, Entry{
			Path:      f.Name,
			SizeBytes: int64(f.UncompressedSize64),
			IsDir:     f.FileInfo().IsDir(),
		})
	}
	return entries, nil
}

// ExtractXML returns the decoded text of the container's XML payload. With
// an empty name it picks the first top-level entry outside the metadata
// folder whose name ends in .xml; with a name it extracts that member.
func ExtractXML(p, name string) (string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return "", errors.NewIO("open archive", p, err)
	}
	defer zr.Close()

	return extractXML(zr.File, p, name)
}

// ExtractXMLData is ExtractXML for a container held in memory, as when the
// bytes arrived over the network or as raw input rather than from a file.
func ExtractXMLData(data []byte, name string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.NewArchive("(in-memory)", err.Error())
	}
	return extractXML(zr.File, "(in-memory)", name)
}

func extractXML(files []*zip.File, label, name string) (string, error) {
	target := name
	if target == "" {
		for _, f := range files {
			if isPayloadXML(f.Name) {
				target = f.Name
				break
			}
		}
		if target == "" {
			return "", errors.NewArchive(label, "no top-level .xml entry outside "+metadataFolder)
		}
	}

	for _, f := range files {
		if f.Name != target {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", errors.NewIO("read archive entry", target, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", errors.NewIO("read archive entry", target, err)
		}
		return DecodeDocument(data), nil
	}

	return "", errors.NewArchive(label, "entry not found: "+target)
}

// ExtractParts returns the decoded text of every member whose path matches
// the given extension, in name order. The sharded legacy format spreads
// one logical document across several archive entries, so callers get all
// of them.
func ExtractParts(p, ext string) ([]string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, errors.NewIO("open archive", p, err)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || isMetadata(f.Name) {
			continue
		}
		if ext == "" || strings.EqualFold(path.Ext(f.Name), ext) {
			names = append(names, f.Name)
		}
	}
	if len(names) == 0 {
		return nil, errors.NewArchive(p, "no entries matching "+ext)
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		for _, f := range zr.File {
			if f.Name != name {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return nil, errors.NewIO("read archive entry", name, err)
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, errors.NewIO("read archive entry", name, err)
			}
			parts = append(parts, DecodeDocument(data))
			break
		}
	}
	return parts, nil
}

// isPayloadXML reports a top-level .xml member outside the metadata folder.
func isPayloadXML(name string) bool {
	if strings.Contains(name, "/") {
		return false
	}
	if isMetadata(name) {
		return false
	}
	return strings.HasSuffix(strings.ToLower(name), ".xml")
}

// isMetadata reports a container metadata member.
func isMetadata(name string) bool {
	if name == "mimetype" {
		return true
	}
	return strings.HasPrefix(name, metadataFolder+"/") || name == metadataFolder
}

// encodingPattern extracts the encoding name from an XML prolog.
var encodingPattern = regexp.MustCompile(`(?i)<\?xml[^>]*encoding\s*=\s*["']([^"']+)["']`)

// DecodeDocument decodes raw document bytes using the encoding declared in
// the XML prolog, falling back to Latin-1 when the declared decode fails or
// produces invalid text. Malformed declarations are common bad input, not
// fatal: the fallback always yields a string.
func DecodeDocument(data []byte) string {
	declared := ""
	if m := encodingPattern.FindSubmatch(data); m != nil {
		declared = strings.ToLower(string(m[1]))
	}

	if dec := decoderFor(declared); dec != nil {
		if out, err := dec.Bytes(data); err == nil && utf8.Valid(out) {
			return string(out)
		}
		logging.RecoveredInput("undecodable declared encoding", "latin-1", "declared", declared)
	} else if declared == "" || declared == "utf-8" || declared == "utf8" {
		if utf8.Valid(data) {
			return string(data)
		}
		logging.RecoveredInput("invalid utf-8 document", "latin-1")
	} else {
		logging.RecoveredInput("unknown declared encoding", "latin-1", "declared", declared)
	}

	// Latin-1 maps every byte, so this cannot fail.
	out, _ := charmap.ISO8859_1.NewDecoder().Bytes(data)
	return string(out)
}

// decoderFor maps a declared encoding name to a decoder. UTF-8 returns nil
// so the caller takes the direct-validation path.
func decoderFor(name string) *encoding.Decoder {
	switch name {
	case "iso-8859-1", "latin-1", "latin1":
		return charmap.ISO8859_1.NewDecoder()
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder()
	case "utf-16", "utf16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	}
	return nil
}
