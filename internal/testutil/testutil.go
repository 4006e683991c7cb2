// Package testutil writes C# source trees for tests.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// CreateFileTree writes files, keyed by slash-separated paths relative to
// root, and returns their absolute paths sorted.
func CreateFileTree(t *testing.T, root string, files map[string]string) []string {
	t.Helper()
	paths := make([]string, 0, len(files))
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		WriteFile(t, path, content)
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Project writes files into a fresh temporary directory and returns it.
func Project(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	CreateFileTree(t, root, files)
	return root
}

// Shop is a small program with exactly two unused symbols:
// Shop.Repository.Purge() and Shop.Orphan.
const Shop = `namespace Shop
{
    public class Program
    {
        public static void Main()
        {
            var repo = new Repository();
            repo.Save();
        }
    }

    public class Repository
    {
        private int _saved;

        public void Save()
        {
            _saved++;
        }

        public void Purge() { }
    }

    public class Orphan { }
}
`
