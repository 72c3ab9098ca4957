// Package git publishes archive updates by committing them to the data
// repository and pushing to its remote.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
)

// Options configure a Publisher.
type Options struct {
	RepoDir     string
	Remote      string
	Push        bool
	AuthorName  string
	AuthorEmail string
	// Token enables HTTP basic auth for the push; empty uses the transport
	// defaults (e.g. SSH agent).
	Token string
}

// Publisher implements pipeline.Publisher with go-git.
type Publisher struct {
	opts   Options
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(opts Options, clock clockwork.Clock, logger *slog.Logger) *Publisher {
	if opts.Remote == "" {
		opts.Remote = gogit.DefaultRemoteName
	}
	return &Publisher{opts: opts, clock: clock, logger: logger}
}

// Publish stages files, commits them with message and pushes. Staging an
// unchanged set of files is a no-op. Failures are *domain.PublishError.
func (p *Publisher) Publish(ctx context.Context, files []string, message string) error {
	dir, err := filepath.Abs(p.opts.RepoDir)
	if err != nil {
		return &domain.PublishError{Op: "open", Err: err}
	}
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return &domain.PublishError{Op: "open", Err: err}
	}
	wt, err := repo.Worktree()
	if err != nil {
		return &domain.PublishError{Op: "open", Err: err}
	}

	root := wt.Filesystem.Root()
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return &domain.PublishError{Op: "stage", Err: err}
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return &domain.PublishError{Op: "stage", Err: err}
		}
		if _, err := wt.Add(filepath.ToSlash(rel)); err != nil {
			return &domain.PublishError{Op: "stage", Err: fmt.Errorf("%s: %w", rel, err)}
		}
	}

	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  p.opts.AuthorName,
			Email: p.opts.AuthorEmail,
			When:  p.clock.Now(),
		},
	})
	switch {
	case errors.Is(err, gogit.ErrEmptyCommit):
		p.logger.Info("nothing to commit", "message", message)
	case err != nil:
		return &domain.PublishError{Op: "commit", Err: err}
	default:
		p.logger.Info("changes committed", "commit", hash.String(), "message", message, "files", len(files))
	}

	if !p.opts.Push {
		return nil
	}
	err = repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: p.opts.Remote,
		Auth:       p.auth(),
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return &domain.PublishError{Op: "push", Err: err}
	}
	p.logger.Info("changes pushed", "remote", p.opts.Remote)
	return nil
}

func (p *Publisher) auth() transport.AuthMethod {
	if p.opts.Token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: p.opts.Token}
}
