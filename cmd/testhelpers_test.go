package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/masmgr/amexamine/config"
	"github.com/masmgr/amexamine/internal/automerge"
)

// buildDocument encodes a linear history of n changes by one actor.
func buildDocument(t *testing.T, n int) []byte {
	t.Helper()
	actor := automerge.ActorID{0x0c, 0x0d}
	var changes []*automerge.Change
	var deps []automerge.ChangeHash
	for i := 0; i < n; i++ {
		c, err := automerge.EncodeChange(automerge.ChangeOptions{
			Actor:   actor,
			Seq:     uint64(i + 1),
			StartOp: uint64(i + 1),
			Time:    int64(1_700_000_000_000 + i),
			Message: fmt.Sprintf("edit %d", i),
			Deps:    deps,
			Ops: []automerge.Op{{
				Key:    automerge.PropKey("title"),
				Action: automerge.ActionSet,
				Value:  automerge.StringValue(fmt.Sprintf("v%d", i)),
			}},
		})
		if err != nil {
			t.Fatalf("EncodeChange: %v", err)
		}
		changes = append(changes, c)
		deps = []automerge.ChangeHash{c.Hash()}
	}
	return automerge.SaveChanges(changes)
}

// writeTestConfig saves the default configuration so tests do not pick up
// a configuration file from the working directory or home.
func writeTestConfig(t *testing.T, mutate func(*config.Config)) string {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	path := filepath.Join(t.TempDir(), config.FileName)
	if err := config.SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	return path
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// runApp runs the CLI with args after the program name, feeding stdin and capturing stdout.
func runApp(t *testing.T, stdin []byte, args ...string) (string, error) {
	t.Helper()
	app := App()
	var out, errOut bytes.Buffer
	app.Reader = bytes.NewReader(stdin)
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"amexamine"}, args...))
	return out.String(), err
}

// createTestRepo creates a temporary git repository.
func createTestRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	tmpDir := t.TempDir()

	repo, err := git.PlainInit(tmpDir, false)
	if err != nil {
		t.Fatalf("Failed to initialize git repo: %v", err)
	}

	return tmpDir, repo
}

// addCommitToRepo writes files and commits them with a fixed author.
func addCommitToRepo(t *testing.T, repo *git.Repository, message string, files map[string][]byte, commitTime time.Time) {
	t.Helper()
	w, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to get worktree: %v", err)
	}

	for name, content := range files {
		writeFile(t, filepath.Join(w.Filesystem.Root(), name), content)
		if _, err := w.Add(name); err != nil {
			t.Fatalf("Failed to add file: %v", err)
		}
	}

	sig := &object.Signature{Name: "Test Author", Email: "test@example.com", When: commitTime}
	if _, err := w.Commit(message, &git.CommitOptions{Author: sig, Committer: sig}); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
}
