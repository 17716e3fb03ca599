package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// Sync clones a git repository if it doesn't exist at the given path,
// or pulls the latest changes if it does.
func Sync(ctx context.Context, repoURL, localPath string, progress io.Writer) error {
	_, err := os.Stat(localPath)
	if os.IsNotExist(err) {
		slog.Info("Cloning lesson repository", "url", repoURL, "path", localPath)
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:      repoURL,
			Progress: progress,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", repoURL, err)
		}
		return nil
	} else if err != nil {
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	slog.Info("Pulling lesson repository", "path", localPath)
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
	}

	err = worktree.PullContext(ctx, &git.PullOptions{
		RemoteName: "origin",
		Progress:   progress,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
	}
	return nil
}

// Checkout syncs repoURL into its cache directory under baseDir and returns
// the path of file inside the checkout.
func Checkout(ctx context.Context, baseDir, repoURL, file string) (string, error) {
	localPath, err := LocalPath(baseDir, repoURL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(localPath), err)
	}
	if err := Sync(ctx, repoURL, localPath, nil); err != nil {
		return "", err
	}

	path := filepath.Join(localPath, filepath.FromSlash(file))
	if !strings.HasPrefix(path, localPath+string(filepath.Separator)) {
		return "", fmt.Errorf("lesson file %q escapes the repository", file)
	}
	return path, nil
}

// LocalPath maps an https or scp-style git URL to a directory under baseDir,
// e.g. git@github.com:org/lessons.git -> baseDir/github.com/org/lessons.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 && hostAndUser[1] != "" {
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return join(baseDir, hostAndUser[1], repoPath)
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	return join(baseDir, parsedURL.Host, strings.TrimSuffix(parsedURL.Path, ".git"))
}

func join(baseDir, host, repoPath string) (string, error) {
	repoPath = strings.Trim(repoPath, "/")
	if host == "" || repoPath == "" {
		return "", errors.New("git URL has no host or repository path")
	}
	for _, part := range strings.Split(repoPath, "/") {
		if part == ".." {
			return "", fmt.Errorf("git URL path %q is not allowed", repoPath)
		}
	}
	return filepath.Join(baseDir, host, filepath.FromSlash(repoPath)), nil
}
