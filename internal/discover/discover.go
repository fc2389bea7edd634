// Package discover walks a legacy project tree and classifies every file.
package discover

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/vbscan/internal/model"
)

// ErrNotDirectory is returned when the scan root is missing or is a file.
var ErrNotDirectory = errors.New("not a directory")

// alwaysPruned directories are never descended into.
var alwaysPruned = []string{"node_modules", ".git", "bin", "obj"}

// Options tune a traversal.
type Options struct {
	// RespectGitignore drops files ignored by git (git ls-files when the
	// root is a repository, the root .gitignore otherwise).
	RespectGitignore bool
	// Exclude lists file names that are never returned, such as the
	// scanner's own cache file.
	Exclude []string
	// ExcludePaths lists files, absolute or relative to the working
	// directory, that are never returned. Paths outside root are ignored.
	ExcludePaths []string
	// MaxFileSize skips files larger than this many bytes. Zero disables it.
	MaxFileSize int64
	// SkipDirs names extra directories to prune, such as build output.
	SkipDirs []string
}

// walker holds the per-call filters so Files keeps no package state.
type walker struct {
	root    string
	prune   map[string]bool
	exclude map[string]bool
	skipRel map[string]bool
	maxSize int64
	ignored func(rel string) bool
	files   []model.SourceFile
}

func newWalker(root string, opts Options) *walker {
	w := &walker{
		root:    root,
		prune:   set(alwaysPruned, opts.SkipDirs),
		exclude: set(opts.Exclude),
		skipRel: relativeTo(root, opts.ExcludePaths),
		maxSize: opts.MaxFileSize,
		ignored: func(string) bool { return false },
	}
	if !opts.RespectGitignore {
		return w
	}
	if tracked := gitTracked(root); tracked != nil {
		w.ignored = func(rel string) bool { return !tracked[filepath.ToSlash(rel)] }
	} else if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		w.ignored = gi.MatchesPath
	}
	return w
}

// relativeTo maps paths that resolve under root to their slash-separated
// relative form.
func relativeTo(root string, paths []string) map[string]bool {
	out := make(map[string]bool)
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return out
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absRoot, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		out[filepath.ToSlash(rel)] = true
	}
	return out
}

func set(lists ...[]string) map[string]bool {
	m := make(map[string]bool)
	for _, l := range lists {
		for _, s := range l {
			m[s] = true
		}
	}
	return m
}

// visit is the WalkDir callback. Unreadable entries are skipped.
func (w *walker) visit(path string, d os.DirEntry, err error) error {
	switch {
	case err != nil:
		return nil
	case d.IsDir():
		if path != w.root && w.prune[d.Name()] {
			return filepath.SkipDir
		}
		return nil
	case d.Type()&os.ModeSymlink != 0, w.exclude[d.Name()]:
		return nil
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil || w.skipRel[filepath.ToSlash(rel)] || w.ignored(rel) {
		return nil
	}
	info, err := d.Info()
	if err != nil || (w.maxSize > 0 && info.Size() > w.maxSize) {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(d.Name()))
	w.files = append(w.files, model.SourceFile{
		Name:     d.Name(),
		Path:     path,
		RelPath:  rel,
		Ext:      ext,
		Size:     info.Size(),
		Category: model.CategoryForExtension(ext),
		ModTime:  info.ModTime(),
	})
	return nil
}

// Files discovers and classifies every file under root, sorted by relative path.
func Files(root string, opts Options) ([]model.SourceFile, error) {
	if err := CheckRoot(root); err != nil {
		return nil, err
	}
	w := newWalker(root, opts)
	if err := filepath.WalkDir(root, w.visit); err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Slice(w.files, func(i, j int) bool { return w.files[i].RelPath < w.files[j].RelPath })
	return w.files, nil
}

// CheckRoot verifies that root exists and is a directory.
func CheckRoot(root string) error {
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}
	return nil
}

// ByCategory groups files by category, preserving input order.
func ByCategory(files []model.SourceFile) map[model.Category][]model.SourceFile {
	out := make(map[model.Category][]model.SourceFile)
	for _, f := range files {
		out[f.Category] = append(out[f.Category], f)
	}
	return out
}

// Code returns the files that carry VB6 source text (.frm, .bas, .cls, .ctl).
func Code(files []model.SourceFile) []model.SourceFile {
	var out []model.SourceFile
	for _, f := range files {
		if f.IsCode() {
			out = append(out, f)
		}
	}
	return out
}

// gitTracked lists the files git would consider part of the repository at
// root, or returns nil when root is not a git work tree or git is missing.
func gitTracked(root string) map[string]bool {
	if info, err := os.Stat(filepath.Join(root, ".git")); err != nil || !info.IsDir() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}
	tracked := make(map[string]bool)
	for _, line := range strings.Split(string(out), "\n") {
		if line != "" {
			tracked[line] = true
		}
	}
	return tracked
}
