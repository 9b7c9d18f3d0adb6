package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/google/go-github/v81/github"

	"github.com/lorebot/lore/internal/indexer"
)

// Document is one corpus file fetched from a repository.
type Document struct {
	Path    string // Path relative to the fetcher's base path
	Content string
	SHA     string // Git blob SHA
}

// Fetcher downloads the text documents under one directory of a GitHub
// repository.
type Fetcher struct {
	client   *Client
	owner    string
	repo     string
	basePath string
	ref      string
}

// NewFetcher creates a fetcher for owner/repo rooted at basePath. An
// empty ref means the repository's default branch.
func NewFetcher(client *Client, owner, repo, basePath, ref string) *Fetcher {
	return &Fetcher{
		client:   client,
		owner:    owner,
		repo:     repo,
		basePath: basePath,
		ref:      ref,
	}
}

func (f *Fetcher) opts() *github.RepositoryContentGetOptions {
	if f.ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.ref}
}

// ListDocs recursively lists the recognized text files under the base
// path, as slash-separated paths relative to it.
func (f *Fetcher) ListDocs(ctx context.Context) ([]string, error) {
	return f.listDocsRecursive(ctx, f.basePath, "")
}

func (f *Fetcher) listDocsRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var docs []string

	_, dirContents, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, f.opts())
	if err != nil {
		return nil, fmt.Errorf("list contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}

		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			if indexer.RecognizedExtension(*item.Name) {
				docs = append(docs, itemRelPath)
			}
		case "dir":
			subDocs, err := f.listDocsRecursive(ctx, path.Join(fullPath, *item.Name), itemRelPath)
			if err != nil {
				return nil, err
			}
			docs = append(docs, subDocs...)
		}
	}

	return docs, nil
}

// FetchDoc downloads one document by its path relative to the base path.
func (f *Fetcher) FetchDoc(ctx context.Context, relativePath string) (*Document, error) {
	fullPath := path.Join(f.basePath, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, f.opts())
	if err != nil {
		return nil, fmt.Errorf("get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := base64.StdEncoding.DecodeString(*fileContent.Content)
	if err != nil {
		return nil, fmt.Errorf("decode content of %s: %w", fullPath, err)
	}

	return &Document{
		Path:    relativePath,
		Content: string(content),
		SHA:     fileContent.GetSHA(),
	}, nil
}

// MirrorTo downloads every recognized document into destDir, preserving
// the layout relative to the base path. It returns the relative paths it
// wrote. The first failed download aborts the mirror; files already
// written stay on disk.
func (f *Fetcher) MirrorTo(ctx context.Context, destDir string) ([]string, error) {
	docs, err := f.ListDocs(ctx)
	if err != nil {
		return nil, err
	}

	written := make([]string, 0, len(docs))
	for _, rel := range docs {
		doc, err := f.FetchDoc(ctx, rel)
		if err != nil {
			return written, err
		}

		target := filepath.Join(destDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
			return written, fmt.Errorf("create directory for %s: %w", rel, err)
		}
		if err := os.WriteFile(target, []byte(doc.Content), 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", rel, err)
		}
		written = append(written, rel)
	}

	return written, nil
}

// LatestCommitSHA returns the most recent commit touching the base path,
// useful for recording what a mirror corresponds to.
func (f *Fetcher) LatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(ctx, f.owner, f.repo, &github.CommitsListOptions{
		Path:        f.basePath,
		SHA:         f.ref,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return "", fmt.Errorf("get latest commit: %w", err)
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", f.basePath)
	}

	return commits[0].GetSHA(), nil
}
