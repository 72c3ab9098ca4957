package git

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
)

var commitTime = time.Date(2017, time.February, 6, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func initRepo(t *testing.T) (string, *gogit.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newPublisher(dir string, push bool) *Publisher {
	return NewPublisher(Options{
		RepoDir:     dir,
		Push:        push,
		AuthorName:  "archive bot",
		AuthorEmail: "bot@example.com",
	}, clockwork.NewFakeClockAt(commitTime), discardLogger())
}

func TestPublisher_Commits(t *testing.T) {
	dir, repo := initRepo(t)
	extract := filepath.Join(dir, "data", "KMLB201701.csv")
	archive := filepath.Join(dir, "data", "KMLB_all.csv")
	writeFile(t, extract, "a")
	writeFile(t, archive, "b")

	err := newPublisher(dir, false).Publish(context.Background(), []string{extract, archive}, "Add data for 01/2017")
	require.NoError(t, err)

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "Add data for 01/2017", commit.Message)
	assert.Equal(t, "archive bot", commit.Author.Name)
	assert.True(t, commitTime.Equal(commit.Author.When))

	_, err = commit.File("data/KMLB201701.csv")
	require.NoError(t, err)
	_, err = commit.File("data/KMLB_all.csv")
	require.NoError(t, err)
}

func TestPublisher_UnchangedFilesAreNoop(t *testing.T) {
	dir, repo := initRepo(t)
	f := filepath.Join(dir, "KMLB_all.csv")
	writeFile(t, f, "a")

	p := newPublisher(dir, false)
	require.NoError(t, p.Publish(context.Background(), []string{f}, "first"))
	require.NoError(t, p.Publish(context.Background(), []string{f}, "second"))

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "first", commit.Message)
}

func TestPublisher_PushFailure(t *testing.T) {
	dir, _ := initRepo(t)
	f := filepath.Join(dir, "KMLB_all.csv")
	writeFile(t, f, "a")

	err := newPublisher(dir, true).Publish(context.Background(), []string{f}, "Add data for 01/2017")
	require.Error(t, err)

	var pe *domain.PublishError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "push", pe.Op)
	assert.FileExists(t, f, "local files stay written")
}

func TestPublisher_NotARepository(t *testing.T) {
	dir := t.TempDir()
	err := newPublisher(dir, false).Publish(context.Background(), nil, "msg")

	var pe *domain.PublishError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "open", pe.Op)
}
