package csharp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/panbanda/dormant/internal/cache"
	"github.com/panbanda/dormant/internal/fileproc"
	"github.com/panbanda/dormant/pkg/analyzer/usage"
	"github.com/panbanda/dormant/pkg/operation"
	"github.com/panbanda/dormant/pkg/parser"
	"github.com/panbanda/dormant/pkg/symbol"
)

// Compilation is a bound set of C# files.
type Compilation struct {
	table      *symbol.Table
	entry      symbol.ID
	declared   []symbol.ID
	operations []operation.Operation
	files      int
}

var _ usage.Compilation = (*Compilation)(nil)

// Symbols implements usage.Compilation.
func (c *Compilation) Symbols() symbol.Lookup { return c.table }

// EntryPoint implements usage.Compilation.
func (c *Compilation) EntryPoint() symbol.ID { return c.entry }

// Table returns the symbol table, including framework and stub symbols.
func (c *Compilation) Table() *symbol.Table { return c.table }

// Declared returns every symbol declared in source, in declaration order.
func (c *Compilation) Declared() []*symbol.Symbol {
	return symbol.Resolve(c.table, c.declared)
}

// Operations returns every operation found in source.
func (c *Compilation) Operations() []operation.Operation { return c.operations }

// FileCount returns the number of bound files.
func (c *Compilation) FileCount() int { return c.files }

// Cache stores encoded facts by key, validated against a content hash.
type Cache interface {
	GetWithHash(key, hash string) ([]byte, bool)
	SetWithHash(key, hash string, data []byte) error
}

// LoadOptions configures Load.
type LoadOptions struct {
	Workers    int
	Cache      Cache
	Logger     *slog.Logger
	OnProgress fileproc.ProgressFunc
}

// Load parses, extracts and binds files. Files that fail to read or parse
// are left out of the compilation and reported in the returned errors.
func Load(ctx context.Context, files []string, opts LoadOptions) (*Compilation, *fileproc.ProcessingErrors) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	facts, errs := fileproc.MapFiles(ctx, files, fileproc.Options{
		Workers:    opts.Workers,
		OnProgress: opts.OnProgress,
		OnError: func(path string, err error) {
			logger.Warn("skipping file", "path", path, "error", err)
		},
	}, func(p *parser.Parser, path string) (*FileFacts, error) {
		return loadFile(ctx, p, path, opts.Cache, logger)
	})

	return Bind(facts, logger), errs
}

func loadFile(ctx context.Context, p *parser.Parser, path string, c Cache, logger *slog.Logger) (*FileFacts, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	hash := cache.HashBytes(src)
	key := factsKey(path)

	if c != nil {
		if data, ok := c.GetWithHash(key, hash); ok {
			var facts FileFacts
			if err := msgpack.Unmarshal(data, &facts); err == nil && facts.Version == FactsVersion {
				facts.Path = path
				return &facts, nil
			}
			logger.Debug("discarding stale cache entry", "path", path)
		}
	}

	facts, err := ExtractSource(ctx, p, path, src)
	if err != nil {
		return nil, err
	}
	facts.Hash = hash

	if c != nil {
		data, err := msgpack.Marshal(facts)
		if err == nil {
			err = c.SetWithHash(key, hash, data)
		}
		if err != nil {
			logger.Debug("cache write failed", "path", path, "error", err)
		}
	}
	return facts, nil
}

// ExtractSource parses src as C# and extracts its facts.
func ExtractSource(ctx context.Context, p *parser.Parser, path string, src []byte) (*FileFacts, error) {
	result, err := p.Parse(ctx, src, parser.LangCSharp, path)
	if err != nil {
		return nil, err
	}
	defer result.Close()
	return Extract(result), nil
}

func factsKey(path string) string {
	return fmt.Sprintf("csharp-facts:v%d:%s", FactsVersion, path)
}
