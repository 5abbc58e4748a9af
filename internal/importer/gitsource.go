package importer

import (
	"log/slog"
	"os"

	git "github.com/go-git/go-git/v5"
	"github.com/pkg/errors"
)

// SyncRepo clones a wordlist repository if localPath does not exist, or
// pulls the latest changes if it does.
func SyncRepo(url, localPath string) error {
	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		slog.Info("cloning wordlist repository", "url", url, "path", localPath)
		_, err := git.PlainClone(localPath, false, &git.CloneOptions{URL: url})
		if err != nil {
			return errors.Wrapf(err, "clone %s", url)
		}
	case err == nil:
		slog.Info("pulling wordlist repository", "path", localPath)
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return errors.Wrapf(err, "open repo %s", localPath)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return errors.Wrapf(err, "worktree %s", localPath)
		}
		err = worktree.Pull(&git.PullOptions{RemoteName: "origin"})
		if err != nil && err != git.NoErrAlreadyUpToDate {
			return errors.Wrapf(err, "pull %s", localPath)
		}
	default:
		return errors.Wrapf(err, "stat %s", localPath)
	}
	return nil
}
