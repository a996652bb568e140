package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
)

type githubConfig struct {
	Token  string `json:"token"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
}

type githubSource struct {
	client *gh.Client
	owner  string
	repo   string
	branch string
	filter *Filter
}

func init() {
	Register("github", createGithubSource)
}

func createGithubSource(args interface{}, filter *Filter) (Source, error) {
	cfg := &githubConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Token == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github token/repo are required")
	}
	parts := strings.SplitN(cfg.Repo, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("github repo must be owner/name: %s", cfg.Repo)
	}
	branch := cfg.Branch
	if branch == "" {
		branch = "main"
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = 30 * time.Second
	return &githubSource{
		client: gh.NewClient(tc),
		owner:  parts[0],
		repo:   parts[1],
		branch: branch,
		filter: filter,
	}, nil
}

func (s *githubSource) Name() string {
	return "github"
}

func (s *githubSource) ListFiles(ctx context.Context) ([]FileRef, string, error) {
	tree, _, err := s.client.Git.GetTree(ctx, s.owner, s.repo, s.branch, true)
	if err != nil {
		return nil, "", fmt.Errorf("get tree: %w", err)
	}
	refs := make([]FileRef, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		path := entry.GetPath()
		if s.filter != nil && !s.filter.IsTextFile(path) {
			continue
		}
		refs = append(refs, FileRef{
			Path: path,
			SHA:  entry.GetSHA(),
			Size: int64(entry.GetSize()),
		})
	}
	return refs, tree.GetSHA(), nil
}

func (s *githubSource) FetchFile(ctx context.Context, path string) (*File, error) {
	content, _, resp, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, path,
		&gh.RepositoryContentGetOptions{Ref: s.branch})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("get contents %s: %w", path, err)
	}
	if content == nil {
		return nil, fmt.Errorf("path is not a file: %s", path)
	}
	// GetContent decodes base64 payloads for us
	data, err := content.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &File{
		Path:    path,
		SHA:     content.GetSHA(),
		Content: []byte(data),
	}, nil
}
