package project

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Paths holds all relevant locations for a repository using git-hunklock.
type Paths struct {
	Root       string // git repo root
	GitDir     string // .git/ (or the worktree's gitdir)
	ConfigFile string // .hunklock/config.yaml
	CacheDir   string // <gitdir>/hunklock/
	LogDir     string // <gitdir>/hunklock/logs/
	StoreDB    string // <gitdir>/hunklock/assignments.db
	LockFile   string // <gitdir>/hunklock/worktree.lock
}

// FindRoot returns the git project root, preferring HUNKLOCK_PROJECT_DIR if set.
func FindRoot() (string, error) {
	if dir := os.Getenv("HUNKLOCK_PROJECT_DIR"); dir != "" {
		return dir, nil
	}
	out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", fmt.Errorf("not inside a git repository")
	}
	return strings.TrimSpace(string(out)), nil
}

// NewPaths constructs all path constants from a project root.
func NewPaths(root string) Paths {
	gitDir := resolveGitDir(root)
	cache := filepath.Join(gitDir, "hunklock")
	return Paths{
		Root:       root,
		GitDir:     gitDir,
		ConfigFile: filepath.Join(root, ".hunklock", "config.yaml"),
		CacheDir:   cache,
		LogDir:     filepath.Join(cache, "logs"),
		StoreDB:    filepath.Join(cache, "assignments.db"),
		LockFile:   filepath.Join(cache, "worktree.lock"),
	}
}

// resolveGitDir follows a "gitdir: <path>" file as found in linked
// worktrees. It falls back to <root>/.git.
func resolveGitDir(root string) string {
	dotGit := filepath.Join(root, ".git")
	info, err := os.Stat(dotGit)
	if err != nil || info.IsDir() {
		return dotGit
	}
	data, err := os.ReadFile(dotGit)
	if err != nil {
		return dotGit
	}
	target, ok := strings.CutPrefix(strings.TrimSpace(string(data)), "gitdir:")
	if !ok {
		return dotGit
	}
	target = strings.TrimSpace(target)
	if filepath.IsAbs(target) {
		return target
	}
	return filepath.Join(root, target)
}
