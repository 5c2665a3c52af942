package canary

import (
	"context"
	"fmt"

	"github.com/google/go-github/v74/github"

	"github.com/chatstack/intentd/pkg/config"
)

// Notifier carries the controller's deployment side effects: triggering
// the rollback workflow and keeping the release PR informed.
type Notifier interface {
	DispatchRollback(ctx context.Context, reason string) error
	CommentOnReleasePR(ctx context.Context, body string) error
}

// NoopNotifier is used when no GitHub integration is configured.
type NoopNotifier struct{}

func (NoopNotifier) DispatchRollback(context.Context, string) error   { return nil }
func (NoopNotifier) CommentOnReleasePR(context.Context, string) error { return nil }

// GitHubNotifier dispatches the rollback workflow and comments on the
// release PR through the GitHub API.
type GitHubNotifier struct {
	client *github.Client
	cfg    config.GitHubConfig
}

// NewNotifier builds a GitHub-backed notifier, or a noop when the
// integration is not configured.
func NewNotifier(cfg config.GitHubConfig) Notifier {
	if cfg.Token == "" || cfg.Owner == "" || cfg.Repo == "" {
		return NoopNotifier{}
	}
	return &GitHubNotifier{
		client: github.NewClient(nil).WithAuthToken(cfg.Token),
		cfg:    cfg,
	}
}

func (n *GitHubNotifier) DispatchRollback(ctx context.Context, reason string) error {
	if n.cfg.WorkflowFile == "" {
		return nil
	}
	_, err := n.client.Actions.CreateWorkflowDispatchEventByFileName(
		ctx, n.cfg.Owner, n.cfg.Repo, n.cfg.WorkflowFile,
		github.CreateWorkflowDispatchEventRequest{
			Ref:    "main",
			Inputs: map[string]any{"reason": reason},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to dispatch rollback workflow %s: %w", n.cfg.WorkflowFile, err)
	}
	return nil
}

func (n *GitHubNotifier) CommentOnReleasePR(ctx context.Context, body string) error {
	if n.cfg.ReleasePR == 0 {
		return nil
	}
	_, _, err := n.client.Issues.CreateComment(
		ctx, n.cfg.Owner, n.cfg.Repo, n.cfg.ReleasePR,
		&github.IssueComment{Body: github.Ptr(body)},
	)
	if err != nil {
		return fmt.Errorf("failed to comment on release PR #%d: %w", n.cfg.ReleasePR, err)
	}
	return nil
}
