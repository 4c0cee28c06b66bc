// Package dataset assigns collision-free, sequentially indexed output paths
// to recorded takes, one counter per category.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
)

// Category is the dataset label determining the output subdirectory.
type Category string

const (
	CategoryOK Category = "OK"
	CategoryNG Category = "NG"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryOK || c == CategoryNG
}

// Indexer computes the next output path per category and guarantees no
// overwrite: the counter is seeded from the highest existing
// "<prefix>_<n>.wav" in the category directory, so restarts continue from
// where the last run left off. Advance is only called after a confirmed
// write, so a failed write retries with the same path.
type Indexer struct {
	mu         sync.Mutex
	root       string
	prefix     string
	startIndex int
	next       map[Category]int
}

// NewIndexer creates an indexer rooted at root. startIndex is the
// user-provided lower bound for fresh directories; existing files always
// win if they would collide. Take indices are 1-based, so a startIndex
// below 1 (including the zero value for "unset") is treated as 1.
func NewIndexer(root, prefix string, startIndex int) *Indexer {
	if startIndex < 1 {
		startIndex = 1
	}
	return &Indexer{
		root:       root,
		prefix:     prefix,
		startIndex: startIndex,
		next:       make(map[Category]int),
	}
}

// NextPath returns the output path the next take for cat should be written
// to. The same path is returned until Advance is called.
func (ix *Indexer) NextPath(cat Category) (string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	n, err := ix.nextLocked(cat)
	if err != nil {
		return "", err
	}
	return ix.pathFor(cat, n), nil
}

// NextIndex returns the index the next take for cat will receive.
func (ix *Indexer) NextIndex(cat Category) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.nextLocked(cat)
}

// Advance moves cat's counter past the just-written take. Call only after
// the file is durably on disk.
func (ix *Indexer) Advance(cat Category) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if n, ok := ix.next[cat]; ok {
		ix.next[cat] = n + 1
	}
}

func (ix *Indexer) nextLocked(cat Category) (int, error) {
	if n, ok := ix.next[cat]; ok {
		return n, nil
	}

	n := ix.startIndex
	if highest, err := ix.scanHighest(cat); err != nil {
		return 0, err
	} else if highest+1 > n {
		n = highest + 1
	}
	ix.next[cat] = n
	return n, nil
}

// scanHighest finds the highest existing index for cat, or 0 if the
// directory is empty or absent.
func (ix *Indexer) scanHighest(cat Category) (int, error) {
	dir := filepath.Join(ix.root, string(cat))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(ix.prefix) + `_(\d+)\.wav$`)
	highest := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	return highest, nil
}

func (ix *Indexer) pathFor(cat Category, n int) string {
	return filepath.Join(ix.root, string(cat), fmt.Sprintf("%s_%d.wav", ix.prefix, n))
}
