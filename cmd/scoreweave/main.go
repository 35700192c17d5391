// Command scoreweave is the CLI for the ScoreWeave notation engine.
// It converts notation documents into the score graph, inspects format
// routing, and manages the document cache.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/CallumVress/ScoreWeave/core/archive"
	"github.com/CallumVress/ScoreWeave/core/cache"
	"github.com/CallumVress/ScoreWeave/core/convert"
	"github.com/CallumVress/ScoreWeave/core/musicxml"
	"github.com/CallumVress/ScoreWeave/internal/logging"
)

const version = "0.2.0"

// CLI defines the command-line interface for scoreweave.
var CLI struct {
	// Global flags
	CacheDir string `name:"cache-dir" help:"Document cache directory" type:"path"`
	LogLevel string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level"`

	Convert ConvertCmd `cmd:"" help:"Translate a notation document and report or emit the score graph"`
	Detect  DetectCmd  `cmd:"" help:"Report how a source would be routed"`
	Formats FormatsCmd `cmd:"" help:"List known formats"`
	Cache   CacheGroup `cmd:"" help:"Document cache operations"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// CacheGroup contains cache maintenance operations.
type CacheGroup struct {
	Status CacheStatusCmd `cmd:"" help:"Show cache freshness for a source"`
	Clear  CacheClearCmd  `cmd:"" help:"Delete every cached artifact"`
}

func cacheDir() string {
	if CLI.CacheDir != "" {
		return CLI.CacheDir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "scoreweave")
}

func pipeline() (*convert.Pipeline, error) {
	return convert.New(cacheDir())
}

// ConvertCmd translates one source.
type ConvertCmd struct {
	Source        string `arg:"" help:"File path, directory, URL, or inline text"`
	Format        string `name:"format" short:"f" help:"Explicit format hint (name, alias, or extension)"`
	Number        int    `name:"number" short:"n" help:"Work number within a multi-work document"`
	ForceSource   bool   `name:"force-source" help:"Bypass cached artifacts and re-translate"`
	AllowDownload bool   `name:"allow-download" help:"Permit fetching URL sources"`
	JSON          bool   `name:"json" help:"Write the full score graph as JSON to stdout"`
}

func (c *ConvertCmd) Run() error {
	p, err := pipeline()
	if err != nil {
		return err
	}
	s, err := p.Parse(c.Source, convert.Options{
		Format:        c.Format,
		Number:        c.Number,
		ForceSource:   c.ForceSource,
		AllowDownload: c.AllowDownload,
	})
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	counts := s.Counts()
	if s.Metadata.Title != "" {
		fmt.Printf("Title:    %s\n", s.Metadata.Title)
	}
	if s.Metadata.Composer != "" {
		fmt.Printf("Composer: %s\n", s.Metadata.Composer)
	}
	fmt.Printf("Format:   %s\n", s.Metadata.SourceFormat)
	fmt.Printf("Parts:    %d\n", counts.Parts)
	fmt.Printf("Measures: %d\n", counts.Measures)
	fmt.Printf("Voices:   %d\n", counts.Voices)
	fmt.Printf("Events:   %d\n", counts.Events)
	fmt.Printf("Spanners: %d\n", counts.Spanners)
	return nil
}

// DetectCmd reports routing without translating.
type DetectCmd struct {
	Source string `arg:"" help:"File path or inline text"`
}

func (c *DetectCmd) Run() error {
	p, err := pipeline()
	if err != nil {
		return err
	}
	reg := p.Registry()

	if info, err := os.Stat(c.Source); err == nil {
		if info.IsDir() {
			d, err := reg.DirectoryFormat()
			if err != nil {
				return err
			}
			fmt.Printf("%s: directory -> %s\n", c.Source, d.Name)
			return nil
		}
		if archive.IsArchive(c.Source) {
			fmt.Printf("%s: compressed container -> musicxml\n", c.Source)
			return nil
		}
		if cache.IsArtifact(c.Source) {
			fmt.Printf("%s: cache artifact\n", c.Source)
			return nil
		}
		if d, err := reg.FromExtension(c.Source); err == nil {
			fmt.Printf("%s: extension -> %s\n", c.Source, d.Name)
			return nil
		}
		data, err := os.ReadFile(c.Source)
		if err != nil {
			return err
		}
		if d := reg.Sniff(data); d != nil {
			fmt.Printf("%s: content -> %s\n", c.Source, d.Name)
			return nil
		}
		fmt.Printf("%s: unknown\n", c.Source)
		return nil
	}

	if d, _ := reg.FromHeader(c.Source); d != nil {
		fmt.Printf("inline header -> %s\n", d.Name)
		return nil
	}
	if d := reg.Sniff([]byte(c.Source)); d != nil {
		fmt.Printf("inline content -> %s\n", d.Name)
		return nil
	}
	fmt.Println("unknown")
	return nil
}

// FormatsCmd lists the registry.
type FormatsCmd struct{}

func (c *FormatsCmd) Run() error {
	p, err := pipeline()
	if err != nil {
		return err
	}
	reg := p.Registry()
	for _, name := range reg.Formats() {
		if _, err := reg.Dispatch(name); err != nil {
			fmt.Printf("%-14s (no handler installed)\n", name)
			continue
		}
		fmt.Println(name)
	}
	return nil
}

// CacheStatusCmd reports the freshness decision for one source.
type CacheStatusCmd struct {
	Source string `arg:"" help:"Source file path"`
	Number int    `name:"number" short:"n" help:"Work number within a multi-work document"`
}

func (c *CacheStatusCmd) Run() error {
	disk, err := cache.New(cacheDir(), musicxml.EngineVersion)
	if err != nil {
		return err
	}
	decision, err := disk.Status(c.Source, c.Number, false)
	if err != nil {
		return err
	}
	fmt.Printf("load:  %s\n", decision.PathToLoad)
	if decision.ShouldWrite {
		fmt.Printf("write: %s\n", decision.CachePath)
	} else if decision.CachePath != "" {
		fmt.Println("fresh")
	} else {
		fmt.Println("source is a cache artifact; never re-cached")
	}
	return nil
}

// CacheClearCmd wipes the artifact directory.
type CacheClearCmd struct{}

func (c *CacheClearCmd) Run() error {
	disk, err := cache.New(cacheDir(), musicxml.EngineVersion)
	if err != nil {
		return err
	}
	if err := disk.Clear(); err != nil {
		return err
	}
	fmt.Printf("cleared %s\n", disk.Root())
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("scoreweave %s (engine %s)\n", version, musicxml.EngineVersion)
	return nil
}

func logLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "info":
		return logging.LevelInfo
	case "error":
		return logging.LevelError
	}
	return logging.LevelWarn
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("scoreweave"),
		kong.Description("ScoreWeave - music notation interchange engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	logging.InitLogger(logLevel(CLI.LogLevel), logging.FormatText)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
