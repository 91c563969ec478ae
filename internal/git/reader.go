package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// HistoryReader reads document revisions from a Git repository.
type HistoryReader struct {
	repo        *git.Repository
	opts        ReadOptions
	filterCache map[string]bool
}

// NewHistoryReader creates a new history reader for the given repository.
func NewHistoryReader(opts ReadOptions) (*HistoryReader, error) {
	repo, err := git.PlainOpen(opts.RepoPath)
	if err != nil {
		return nil, err
	}
	return &HistoryReader{repo: repo, opts: opts, filterCache: make(map[string]bool)}, nil
}

// ReadRevisions walks the history from the configured branch and collects
// every added, modified or renamed document matching the filters. Deleted
// documents are reported without data.
func (r *HistoryReader) ReadRevisions(ctx context.Context) ([]DocumentRevision, error) {
	from, err := resolveCommit(r.repo, r.opts.Branch)
	if err != nil {
		return nil, err
	}

	cIter, err := r.repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return nil, err
	}
	defer cIter.Close()

	var results []DocumentRevision

	err = cIter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		revisions, err := r.commitRevisions(ctx, c)
		if err != nil {
			return fmt.Errorf("commit %s: %w", c.Hash, err)
		}
		for _, rev := range revisions {
			results = append(results, rev)
			if r.opts.MaxRevisions > 0 && len(results) >= r.opts.MaxRevisions {
				return storer.ErrStop
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// commitRevisions diffs a commit against its first parent. Root commits are
// diffed against the empty tree.
func (r *HistoryReader) commitRevisions(ctx context.Context, c *object.Commit) ([]DocumentRevision, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, err
		}
		if parentTree, err = parent.Tree(); err != nil {
			return nil, err
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, &object.DiffTreeOptions{
		DetectRenames: true,
		RenameScore:   60,
	})
	if err != nil {
		return nil, err
	}

	info := commitInfo(c)
	var revisions []DocumentRevision

	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return nil, err
		}

		rev := DocumentRevision{Commit: info}
		switch {
		case action == merkletrie.Insert:
			rev.Path = change.To.Name
			rev.Kind = ChangeKindAdded
		case action == merkletrie.Delete:
			rev.Path = change.From.Name
			rev.Kind = ChangeKindDeleted
		case change.From.Name != change.To.Name:
			rev.Path = change.To.Name
			rev.OldPath = change.From.Name
			rev.Kind = ChangeKindRenamed
		default:
			rev.Path = change.To.Name
			rev.Kind = ChangeKindModified
		}

		matched, err := r.matchesFilters(rev.Path)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}

		if rev.Kind != ChangeKindDeleted {
			_, to, err := change.Files()
			if err != nil {
				return nil, err
			}
			if to == nil {
				continue
			}
			if rev.Data, err = readFile(to); err != nil {
				return nil, fmt.Errorf("%s: %w", rev.Path, err)
			}
		}

		revisions = append(revisions, rev)
	}

	return revisions, nil
}

func commitInfo(c *object.Commit) CommitInfo {
	// Extract first line of commit message
	message := c.Message
	if idx := strings.IndexByte(message, '\n'); idx != -1 {
		message = message[:idx]
	}
	return CommitInfo{
		SHA:     c.Hash.String(),
		When:    c.Committer.When,
		Author:  AuthorInfo{Name: c.Author.Name, Email: c.Author.Email},
		Message: message,
	}
}

// matchesFilters checks if a path matches the include/exclude filters.
// Invalid patterns are reported as errors.
func (r *HistoryReader) matchesFilters(path string) (bool, error) {
	// Normalize path separators
	path = strings.ReplaceAll(path, "\\", "/")

	if matched, ok := r.filterCache[path]; ok {
		return matched, nil
	}

	matched, err := matchFilters(path, r.opts.Include, r.opts.Exclude)
	if err != nil {
		return false, err
	}
	r.filterCache[path] = matched
	return matched, nil
}

// matchFilters applies exclude patterns first, then include patterns. No
// include patterns means everything not excluded matches.
func matchFilters(path string, include, exclude []string) (bool, error) {
	for _, pattern := range exclude {
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			return false, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		if matched {
			return false, nil
		}
	}

	if len(include) == 0 {
		return true, nil
	}

	for _, pattern := range include {
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			return false, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
		if matched {
			return true, nil
		}
	}

	return false, nil
}

// resolveCommit resolves a branch, tag or revision expression to a commit
// hash. An empty name or HEAD means the current HEAD.
func resolveCommit(repo *git.Repository, name string) (plumbing.Hash, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "HEAD") {
		ref, err := repo.Head()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return ref.Hash(), nil
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(name))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to resolve %q: %w", name, err)
	}
	return *hash, nil
}

// ReadBlob returns the content of path as of revision rev.
func ReadBlob(repoPath, rev, path string) ([]byte, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, err
	}
	hash, err := resolveCommit(repo, rev)
	if err != nil {
		return nil, err
	}
	commit, err := repo.CommitObject(hash)
	if err != nil {
		return nil, err
	}
	file, err := commit.File(strings.ReplaceAll(path, "\\", "/"))
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%s not found at %s", path, rev)
		}
		return nil, err
	}
	return readFile(file)
}

func readFile(f *object.File) ([]byte, error) {
	rc, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
