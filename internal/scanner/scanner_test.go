package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/dormant/internal/testutil"
	"github.com/panbanda/dormant/pkg/config"
)

func relPaths(t *testing.T, root string, files []string) []string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	out := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(resolved, f)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil)
	if s.config == nil {
		t.Error("scanner.config should not be nil when passing nil")
	}

	cfg := config.DefaultConfig()
	s = NewScanner(cfg)
	if s.config != cfg {
		t.Error("scanner.config should be the provided config")
	}
}

func TestScanDir(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"Program.cs":                 "class Program { }",
		"src/Orders/Order.cs":        "class Order { }",
		"src/Orders/Order.g.cs":      "partial class Order { }",
		"src/Forms/Main.Designer.cs": "partial class Main { }",
		"src/readme.md":              "# docs",
		"bin/Debug/Gen.cs":           "class Gen { }",
		"obj/App.AssemblyInfo.cs":    "",
		"tools/build.ps1":            "",
	})

	files, err := NewScanner(nil).ScanDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"Program.cs", "src/Orders/Order.cs"}, relPaths(t, root, files))
}

func TestScanDirCustomExcludes(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"App.cs":             "",
		"Migrations/Init.cs": "",
		"Tests/AppTests.cs":  "",
		"bin/Out.cs":         "",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Dirs = []string{"Migrations"}
	cfg.Exclude.Patterns = []string{"*Tests.cs"}

	files, err := NewScanner(cfg).ScanDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"App.cs", "bin/Out.cs"}, relPaths(t, root, files))
}

func TestScanDirGitignore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	testutil.CreateFileTree(t, root, map[string]string{
		".gitignore":         "Generated/\n*.local.cs\n",
		"src/A.cs":           "",
		"src/A.local.cs":     "",
		"src/Generated/B.cs": "",
	})

	files, err := NewScanner(nil).ScanDir(filepath.Join(root, "src"))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/A.cs"}, relPaths(t, root, files))

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false
	files, err = NewScanner(cfg).ScanDir(root)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestScanDirSkipsEscapingSymlinks(t *testing.T) {
	outside := t.TempDir()
	testutil.CreateFileTree(t, outside, map[string]string{"Secret.cs": ""})

	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{"A.cs": ""})
	if err := os.Symlink(filepath.Join(outside, "Secret.cs"), filepath.Join(root, "Link.cs")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	files, err := NewScanner(nil).ScanDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"A.cs"}, relPaths(t, root, files))
}

func TestScanPaths(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"a/One.cs":  "",
		"b/Two.cs":  "",
		"notes.txt": "",
	})

	files, err := NewScanner(nil).ScanPaths([]string{
		filepath.Join(root, "a"),
		filepath.Join(root, "a"),
		filepath.Join(root, "b", "Two.cs"),
		filepath.Join(root, "notes.txt"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/One.cs", "b/Two.cs"}, relPaths(t, root, files))

	_, err = NewScanner(nil).ScanPaths([]string{filepath.Join(root, "missing")})
	assert.Error(t, err)
}

func TestFilterBySize(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"Small.cs": "class S { }",
		"Large.cs": "class L { /* " + string(make([]byte, 200)) + " */ }",
	})
	files := []string{filepath.Join(root, "Large.cs"), filepath.Join(root, "Small.cs"), filepath.Join(root, "Gone.cs")}

	kept, skipped := FilterBySize(files, 100)
	assert.Equal(t, []string{filepath.Join(root, "Small.cs")}, kept)
	assert.Equal(t, 2, skipped)

	kept, skipped = FilterBySize(files, 0)
	assert.Len(t, kept, 3)
	assert.Zero(t, skipped)
}
