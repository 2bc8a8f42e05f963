package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jensroland/git-hunklock/internal/hunk"
	"github.com/jensroland/git-hunklock/internal/ranges"
)

// testRepo is a throwaway repository with a committed file.
type testRepo struct {
	t   *testing.T
	dir string
}

func setupGitRepo(t *testing.T, fileName, content string) *testRepo {
	t.Helper()
	r := &testRepo{t: t, dir: t.TempDir()}
	r.git("init")
	r.git("config", "user.email", "test@test.com")
	r.git("config", "user.name", "Test")
	r.commit("initial commit", fileName, content)
	return r
}

func (r *testRepo) git(args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test",
		"GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=Test",
		"GIT_COMMITTER_EMAIL=test@test.com",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

func (r *testRepo) write(name, content string) {
	r.t.Helper()
	path := filepath.Join(r.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatal(err)
	}
}

func (r *testRepo) commit(msg, name, content string) hunk.CommitID {
	r.t.Helper()
	r.write(name, content)
	r.git("add", name)
	r.git("commit", "-m", msg)
	return hunk.MustCommitID(r.git("rev-parse", "HEAD"))
}

func TestZeroContextHunks(t *testing.T) {
	tests := []struct {
		name          string
		before, after string
		want          []Hunk
	}{
		{
			name:   "identical",
			before: "a\nb\n", after: "a\nb\n",
		},
		{
			name:   "modification",
			before: "a\nb\nc\n", after: "a\nB\nc\n",
			want: []Hunk{{Header: hunk.Header{OldStart: 2, OldLines: 1, NewStart: 2, NewLines: 1}, Body: "-b\n+B\n"}},
		},
		{
			name:   "insertion",
			before: "a\nb\n", after: "a\nx\nb\n",
			want: []Hunk{{Header: hunk.Header{OldStart: 1, OldLines: 0, NewStart: 2, NewLines: 1}, Body: "+x\n"}},
		},
		{
			name:   "deletion",
			before: "a\nb\nc\n", after: "a\nc\n",
			want: []Hunk{{Header: hunk.Header{OldStart: 2, OldLines: 1, NewStart: 1, NewLines: 0}, Body: "-b\n"}},
		},
		{
			name:   "new_file",
			before: "", after: "x\ny\n",
			want: []Hunk{{Header: hunk.Header{OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 2}, Body: "+x\n+y\n"}},
		},
		{
			name:   "emptied_file",
			before: "x\ny\n", after: "",
			want: []Hunk{{Header: hunk.Header{OldStart: 1, OldLines: 2, NewStart: 0, NewLines: 0}, Body: "-x\n-y\n"}},
		},
		{
			name:   "two_hunks",
			before: "1\n2\n3\n4\n5\n", after: "1\nX\n3\n4\n5\n6\n",
			want: []Hunk{
				{Header: hunk.Header{OldStart: 2, OldLines: 1, NewStart: 2, NewLines: 1}, Body: "-2\n+X\n"},
				{Header: hunk.Header{OldStart: 5, OldLines: 0, NewStart: 6, NewLines: 1}, Body: "+6\n"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ZeroContextHunks(tt.before, tt.after)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ZeroContextHunks() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

const commitDiffFixture = `diff --git a/added.txt b/added.txt
new file mode 100644
index 0000000..3b18e51
--- /dev/null
+++ b/added.txt
@@ -0,0 +1,2 @@
+hello
+world
diff --git a/gone.txt b/gone.txt
deleted file mode 100644
index 3b18e51..0000000
--- a/gone.txt
+++ /dev/null
@@ -1,1 +0,0 @@
-bye
diff --git a/mod.txt b/mod.txt
index 1111111..2222222 100644
--- a/mod.txt
+++ b/mod.txt
@@ -2,1 +2,1 @@
-b
+B
@@ -4,0 +5,2 @@
+x
+y
diff --git a/old.txt b/new.txt
similarity index 90%
rename from old.txt
rename to new.txt
index 1111111..2222222 100644
--- a/old.txt
+++ b/new.txt
@@ -3,1 +3,1 @@
-c
+C
`

func TestParseCommitDiff(t *testing.T) {
	got, err := parseCommitDiff([]byte(commitDiffFixture))
	if err != nil {
		t.Fatal(err)
	}
	want := []ranges.InputFile{
		{Path: "added.txt", ChangeKind: hunk.Addition, Hunks: []hunk.Header{{OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 2}}},
		{Path: "gone.txt", ChangeKind: hunk.Deletion, Hunks: []hunk.Header{{OldStart: 1, OldLines: 1, NewStart: 0, NewLines: 0}}},
		{Path: "mod.txt", ChangeKind: hunk.Modification, Hunks: []hunk.Header{
			{OldStart: 2, OldLines: 1, NewStart: 2, NewLines: 1},
			{OldStart: 4, OldLines: 0, NewStart: 5, NewLines: 2},
		}},
		{Path: "new.txt", ChangeKind: hunk.Rename, Hunks: []hunk.Header{{OldStart: 3, OldLines: 1, NewStart: 3, NewLines: 1}}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseCommitDiff() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestParseStatus(t *testing.T) {
	out := []byte(" M src/b.go\x00?? a.txt\x00D  c.txt\x00 M src/b.go\x00")
	got := parseStatus(out)
	want := []string{"a.txt", "c.txt", "src/b.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseStatus() = %v, want %v", got, want)
	}
}

func TestStackCommitsAndCommitDiff(t *testing.T) {
	ctx := context.Background()
	repo := setupGitRepo(t, "file.txt", "1\n2\n3\n4\n5\n")
	base := repo.git("rev-parse", "HEAD")

	c1 := repo.commit("change line 2", "file.txt", "1\ntwo\n3\n4\n5\n")
	c2 := repo.commit("append", "file.txt", "1\ntwo\n3\n4\n5\n6\n7\n")

	commits, err := StackCommits(ctx, repo.dir, base, "HEAD")
	if err != nil {
		t.Fatalf("StackCommits: %v", err)
	}
	if !reflect.DeepEqual(commits, []hunk.CommitID{c1, c2}) {
		t.Errorf("StackCommits() = %v, want [%v %v]", commits, c1, c2)
	}

	files, err := CommitDiff(ctx, repo.dir, c1)
	if err != nil {
		t.Fatalf("CommitDiff: %v", err)
	}
	want := []ranges.InputFile{{
		Path:       "file.txt",
		ChangeKind: hunk.Modification,
		Hunks:      []hunk.Header{{OldStart: 2, OldLines: 1, NewStart: 2, NewLines: 1}},
	}}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("CommitDiff(c1) = %+v, want %+v", files, want)
	}

	root := hunk.MustCommitID(base)
	files, err = CommitDiff(ctx, repo.dir, root)
	if err != nil {
		t.Fatalf("CommitDiff(root): %v", err)
	}
	if len(files) != 1 || files[0].ChangeKind != hunk.Addition ||
		files[0].Hunks[0] != (hunk.Header{OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 5}) {
		t.Errorf("CommitDiff(root) = %+v", files)
	}
}

func TestCollectStacks(t *testing.T) {
	ctx := context.Background()
	repo := setupGitRepo(t, "file.txt", "1\n2\n3\n")
	base := repo.git("rev-parse", "HEAD")
	c1 := repo.commit("a", "a.txt", "a\n")
	c2 := repo.commit("b", "file.txt", "1\n2\n3\n4\n")

	id := hunk.NewStackID()
	stacks, failures, err := CollectStacks(ctx, repo.dir, []StackRef{{ID: id, Base: base, Tip: "HEAD"}}, 2)
	if err != nil || len(failures) != 0 {
		t.Fatalf("CollectStacks() error = %v, failures = %v", err, failures)
	}
	if len(stacks) != 1 || stacks[0].StackID != id || len(stacks[0].Commits) != 2 {
		t.Fatalf("CollectStacks() = %+v", stacks)
	}
	if stacks[0].Commits[0].CommitID != c1 || stacks[0].Commits[1].CommitID != c2 {
		t.Errorf("commits out of order: %+v", stacks[0].Commits)
	}
	if got := stacks[0].Commits[1].Files[0].Hunks[0]; got != (hunk.Header{OldStart: 3, OldLines: 0, NewStart: 4, NewLines: 1}) {
		t.Errorf("second commit hunk = %v", got)
	}

	broken := hunk.NewStackID()
	stacks, failures, err = CollectStacks(ctx, repo.dir, []StackRef{
		{ID: broken, Tip: "no-such-branch"},
		{ID: id, Base: base, Tip: "HEAD"},
	}, 1)
	if err != nil {
		t.Fatalf("unknown tip failed every stack: %v", err)
	}
	if len(stacks) != 1 || stacks[0].StackID != id || len(stacks[0].Commits) != 2 {
		t.Errorf("CollectStacks() = %+v, want only the healthy stack", stacks)
	}
	if len(failures) != 1 || failures[0].StackID != broken || failures[0].Path != "" {
		t.Errorf("failures = %+v, want one for the unknown tip", failures)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, _, err := CollectStacks(cancelled, repo.dir, []StackRef{{ID: id, Base: base, Tip: "HEAD"}}, 1); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestWorktreeChanges(t *testing.T) {
	ctx := context.Background()
	repo := setupGitRepo(t, "file.txt", "1\n2\n3\n4\n5\n")
	repo.commit("second file", "gone.txt", "bye\n")

	repo.write("file.txt", "1\n2\n3\nfour\n5\n")
	repo.write("new.txt", "hello\n")
	repo.write("blob.bin", "a\x00b")
	if err := os.Remove(filepath.Join(repo.dir, "gone.txt")); err != nil {
		t.Fatal(err)
	}

	changes, err := WorktreeChanges(ctx, repo.dir, WorktreeOptions{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	want := []FileChange{
		{Path: "blob.bin", Kind: hunk.Addition, Binary: true},
		{Path: "file.txt", Kind: hunk.Modification, Hunks: []Hunk{{
			Header: hunk.Header{OldStart: 4, OldLines: 1, NewStart: 4, NewLines: 1},
			Body:   "-4\n+four\n",
		}}},
		{Path: "gone.txt", Kind: hunk.Deletion, Hunks: []Hunk{{
			Header: hunk.Header{OldStart: 1, OldLines: 1, NewStart: 0, NewLines: 0},
			Body:   "-bye\n",
		}}},
		{Path: "new.txt", Kind: hunk.Addition, Hunks: []Hunk{{
			Header: hunk.Header{OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 1},
			Body:   "+hello\n",
		}}},
	}
	if !reflect.DeepEqual(changes, want) {
		t.Errorf("WorktreeChanges() =\n%+v\nwant\n%+v", changes, want)
	}

	changes, err = WorktreeChanges(ctx, repo.dir, WorktreeOptions{MaxBytes: 4})
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range changes {
		if c.Path == "file.txt" && (!c.TooLarge || c.Hunks != nil) {
			t.Errorf("file.txt should be too large: %+v", c)
		}
	}
}

func TestWorktreeChanges_DirectoriesAndSymlinks(t *testing.T) {
	ctx := context.Background()
	repo := setupGitRepo(t, "file.txt", "1\n2\n3\n")
	repo.write("file.txt", "1\ntwo\n3\n")

	nested := &testRepo{t: t, dir: filepath.Join(repo.dir, "sub")}
	if err := os.MkdirAll(nested.dir, 0o755); err != nil {
		t.Fatal(err)
	}
	nested.git("init")
	nested.write("inner.txt", "inner\n")
	if err := os.Symlink("sub", filepath.Join(repo.dir, "dirlink")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	changes, err := WorktreeChanges(ctx, repo.dir, WorktreeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := []FileChange{
		{Path: "dirlink", Kind: hunk.Addition, Hunks: []Hunk{{
			Header: hunk.Header{OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 1},
			Body:   "+sub\n",
		}}},
		{Path: "file.txt", Kind: hunk.Modification, Hunks: []Hunk{{
			Header: hunk.Header{OldStart: 2, OldLines: 1, NewStart: 2, NewLines: 1},
			Body:   "-2\n+two\n",
		}}},
	}
	if !reflect.DeepEqual(changes, want) {
		t.Errorf("WorktreeChanges() =\n%+v\nwant\n%+v", changes, want)
	}
}

func TestShowFile(t *testing.T) {
	ctx := context.Background()
	repo := setupGitRepo(t, "file.txt", "content\n")

	got, err := ShowFile(ctx, repo.dir, "HEAD", "file.txt")
	if err != nil || string(got) != "content\n" {
		t.Errorf("ShowFile() = %q, %v", got, err)
	}
	if _, err := ShowFile(ctx, repo.dir, "HEAD", "missing.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ShowFile(missing) error = %v, want ErrNotFound", err)
	}
}

func TestResolveCommit(t *testing.T) {
	ctx := context.Background()
	repo := setupGitRepo(t, "file.txt", "x\n")

	id, err := ResolveCommit(ctx, repo.dir, "HEAD")
	if err != nil {
		t.Fatal(err)
	}
	if id.String() != repo.git("rev-parse", "HEAD") {
		t.Errorf("ResolveCommit(HEAD) = %s", id)
	}
	if _, err := ResolveCommit(ctx, repo.dir, "nope"); err == nil {
		t.Error("expected error for unknown ref")
	}
	if !HasHead(ctx, repo.dir) {
		t.Error("HasHead() = false")
	}
}
