package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/dormant/internal/cache"
	"github.com/panbanda/dormant/internal/testutil"
	"github.com/panbanda/dormant/pkg/config"
	"github.com/panbanda/dormant/pkg/symbol"
)

func writeShop(t *testing.T) string {
	t.Helper()
	return testutil.CreateFileTree(t, t.TempDir(), map[string]string{"Shop.cs": testutil.Shop})[0]
}

func symbolNames(t *testing.T, svc *Service, files []string, opts AnalyzeOptions) []string {
	t.Helper()
	report, err := svc.AnalyzeUnused(context.Background(), files, opts)
	require.NoError(t, err)
	names := make([]string, 0, len(report.Findings))
	for _, f := range report.Findings {
		names = append(names, f.SymbolName)
	}
	return names
}

func TestNew(t *testing.T) {
	svc := New()
	if svc.config == nil || svc.logger == nil {
		t.Fatal("New() left config or logger nil")
	}

	cfg := config.DefaultConfig()
	if New(WithConfig(cfg)).config != cfg {
		t.Error("WithConfig did not set config")
	}
}

func TestAnalyzeUnusedNoFiles(t *testing.T) {
	_, err := New().AnalyzeUnused(context.Background(), nil, AnalyzeOptions{})
	if !errors.Is(err, ErrNoSourceFiles) {
		t.Errorf("error = %v, want ErrNoSourceFiles", err)
	}
}

func TestAnalyzeUnused(t *testing.T) {
	path := writeShop(t)
	var ticks atomic.Int32

	report, err := New().AnalyzeUnused(context.Background(), []string{path}, AnalyzeOptions{
		Workers:    2,
		OnProgress: func() { ticks.Add(1) },
	})
	require.NoError(t, err)

	require.Len(t, report.Findings, 2)
	assert.Equal(t, "Shop.Repository.Purge()", report.Findings[0].SymbolName)
	assert.Equal(t, "Shop.Orphan", report.Findings[1].SymbolName)
	assert.Equal(t, path, report.Findings[0].Location.Path)

	s := report.Summary
	assert.Equal(t, 1, s.FilesAnalyzed)
	assert.Equal(t, 0, s.FilesFailed)
	assert.Equal(t, 2, s.TotalUnused)
	assert.Equal(t, map[string]int{"method": 1, "type": 1}, s.UnusedByKind)
	assert.Equal(t, 2, s.UnusedByFile[path])
	assert.Positive(t, s.SymbolsTracked)
	assert.InDelta(t, 2.0, s.MeanPerFile, 1e-9)
	assert.Equal(t, int32(1), ticks.Load())
}

func TestAnalyzeUnusedKinds(t *testing.T) {
	path := writeShop(t)
	svc := New()

	assert.Equal(t, []string{"Shop.Orphan"},
		symbolNames(t, svc, []string{path}, AnalyzeOptions{Kinds: []symbol.Kind{symbol.KindType}}))

	cfg := config.DefaultConfig()
	cfg.Analysis.Kinds = []string{"method"}
	assert.Equal(t, []string{"Shop.Repository.Purge()"},
		symbolNames(t, New(WithConfig(cfg)), []string{path}, AnalyzeOptions{}))

	cfg.Analysis.Kinds = []string{"widget"}
	_, err := New(WithConfig(cfg)).AnalyzeUnused(context.Background(), []string{path}, AnalyzeOptions{})
	assert.Error(t, err)
}

func TestAnalyzeUnusedCountsFailedFiles(t *testing.T) {
	path := writeShop(t)
	missing := filepath.Join(filepath.Dir(path), "Missing.cs")

	report, err := New().AnalyzeUnused(context.Background(), []string{path, missing}, AnalyzeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.FilesAnalyzed)
	assert.Equal(t, 1, report.Summary.FilesFailed)
	assert.Equal(t, 2, report.Summary.TotalUnused)
}

func TestAnalyzeUnusedWithCache(t *testing.T) {
	path := writeShop(t)
	c, err := cache.New(t.TempDir(), 0, true)
	require.NoError(t, err)
	svc := New(WithCache(c))

	first := symbolNames(t, svc, []string{path}, AnalyzeOptions{})
	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)

	second := symbolNames(t, svc, []string{path}, AnalyzeOptions{})
	assert.Equal(t, first, second)
}

func TestAnalyzeUnusedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().AnalyzeUnused(ctx, []string{writeShop(t)}, AnalyzeOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds([]string{"Method", " field "})
	require.NoError(t, err)
	assert.Equal(t, []symbol.Kind{symbol.KindMethod, symbol.KindField}, kinds)

	kinds, err = ParseKinds(nil)
	require.NoError(t, err)
	assert.Nil(t, kinds)

	_, err = ParseKinds([]string{"namespace"})
	assert.Error(t, err)
}
