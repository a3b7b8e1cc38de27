package github

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/google/go-github/v81/github"

	"github.com/bull/docintel/internal/indexer"
)

// DefaultExtensions are the file types imported when none are given.
var DefaultExtensions = []string{".md", ".markdown", ".txt", ".html", ".pdf", ".docx"}

// Fetcher lists and downloads files below a repository directory.
type Fetcher struct {
	client   *Client
	owner    string
	repo     string
	basePath string
	ref      string
	exts     []string
}

var _ indexer.Source = (*Fetcher)(nil)

// NewFetcher creates a fetcher for owner/repo rooted at basePath. An empty
// ref means the default branch.
func NewFetcher(client *Client, owner, repo, basePath, ref string, exts []string) *Fetcher {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	norm := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		norm = append(norm, e)
	}
	return &Fetcher{
		client:   client,
		owner:    owner,
		repo:     repo,
		basePath: strings.Trim(basePath, "/"),
		ref:      ref,
		exts:     norm,
	}
}

// FileID is the index key of a repository file: "github:owner/repo:path".
func (f *Fetcher) FileID(relativePath string) string {
	return fmt.Sprintf("github:%s/%s:%s", f.owner, f.repo, path.Join(f.basePath, relativePath))
}

func (f *Fetcher) contentOptions() *github.RepositoryContentGetOptions {
	if f.ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.ref}
}

// List implements indexer.Source by recursively listing matching files.
func (f *Fetcher) List(ctx context.Context) ([]string, error) {
	docs, err := f.listRecursive(ctx, f.basePath, "")
	if err != nil {
		return nil, err
	}
	slices.Sort(docs)
	return docs, nil
}

func (f *Fetcher) listRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	_, dirContents, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, f.contentOptions())
	if err != nil {
		return nil, fmt.Errorf("get contents of %s: %w", fullPath, err)
	}

	var docs []string
	for _, item := range dirContents {
		name := item.GetName()
		if name == "" {
			continue
		}
		itemRelPath := path.Join(relativePath, name)

		switch item.GetType() {
		case "file":
			if slices.Contains(f.exts, strings.ToLower(path.Ext(name))) {
				docs = append(docs, itemRelPath)
			}
		case "dir":
			subDocs, err := f.listRecursive(ctx, path.Join(fullPath, name), itemRelPath)
			if err != nil {
				return nil, err
			}
			docs = append(docs, subDocs...)
		}
	}
	return docs, nil
}

// Fetch implements indexer.Source.
func (f *Fetcher) Fetch(ctx context.Context, relativePath string) (*indexer.SourceDoc, error) {
	fullPath := path.Join(f.basePath, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, f.contentOptions())
	if err != nil {
		return nil, fmt.Errorf("get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	data, err := decodeContent(fileContent)
	if err != nil {
		return nil, fmt.Errorf("decode content of %s: %w", fullPath, err)
	}

	return &indexer.SourceDoc{
		FileID:   f.FileID(relativePath),
		Filename: path.Base(relativePath),
		Data:     data,
	}, nil
}

// decodeContent returns the file bytes. GetContent undoes the base64
// transport encoding; files over the contents API limit arrive with
// encoding "none" and no content.
func decodeContent(fc *github.RepositoryContent) ([]byte, error) {
	if fc.GetEncoding() == "none" {
		return nil, fmt.Errorf("content not inlined (%d bytes); file too large for the contents API", fc.GetSize())
	}
	content, err := fc.GetContent()
	if err != nil {
		return nil, err
	}
	return []byte(content), nil
}

// Revision implements indexer.Source with the SHA of the latest commit
// touching basePath.
func (f *Fetcher) Revision(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(ctx, f.owner, f.repo, &github.CommitsListOptions{
		SHA:         f.ref,
		Path:        f.basePath,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return "", fmt.Errorf("get latest commit: %w", err)
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", f.basePath)
	}
	sha := commits[0].GetSHA()
	if sha == "" {
		return "", errors.New("commit SHA is empty")
	}
	return sha, nil
}
