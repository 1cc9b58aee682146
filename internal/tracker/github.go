package tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/calder/ticketyard/internal/capacity"
	"github.com/calder/ticketyard/internal/sprint"
	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// pointsLabelPrefix marks size labels on issues, e.g. "points/3".
const pointsLabelPrefix = "points/"

// GitHub tracks issues in a GitHub repository. Milestones stand in for
// iteration windows and size labels for point estimates.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHub builds a GitHub tracker authenticated with the given token.
func NewGitHub(ctx context.Context, owner, repo, token string) (*GitHub, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("tracker: owner and repo are required")
	}
	if token == "" {
		return nil, fmt.Errorf("tracker: token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	return &GitHub{client: client, owner: owner, repo: repo}, nil
}

// CreateIssue files a new issue and returns its key ("REPO-123").
func (g *GitHub) CreateIssue(ctx context.Context, draft Draft) (string, error) {
	labels := draft.Labels
	if draft.Priority != "" {
		labels = append(labels, "priority/"+strings.ToLower(draft.Priority))
	}

	req := &github.IssueRequest{
		Title:  github.String(draft.Title),
		Body:   github.String(draft.Body),
		Labels: &labels,
	}
	issue, _, err := g.client.Issues.Create(ctx, g.owner, g.repo, req)
	if err != nil {
		return "", fmt.Errorf("tracker: create issue: %w", err)
	}
	return g.key(issue.GetNumber()), nil
}

// AssignIssue sets the assignee on an existing issue.
func (g *GitHub) AssignIssue(ctx context.Context, issueKey, username string) error {
	number, err := g.number(issueKey)
	if err != nil {
		return err
	}
	_, _, err = g.client.Issues.AddAssignees(ctx, g.owner, g.repo, number, []string{username})
	if err != nil {
		return fmt.Errorf("tracker: assign %s to %s: %w", issueKey, username, err)
	}
	return nil
}

// ProjectUsers lists repository collaborators.
func (g *GitHub) ProjectUsers(ctx context.Context) ([]User, error) {
	var users []User
	opts := &github.ListCollaboratorsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		collaborators, resp, err := g.client.Repositories.ListCollaborators(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("tracker: list collaborators: %w", err)
		}
		for _, c := range collaborators {
			users = append(users, User{
				Username:    c.GetLogin(),
				Email:       c.GetEmail(),
				DisplayName: c.GetName(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return users, nil
}

// MemberWorkload sums points over the member's open issues in the window's
// milestone. Issues without a size label count as one point.
func (g *GitHub) MemberWorkload(ctx context.Context, username string, window *sprint.Window) (capacity.Workload, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		Assignee:    username,
		ListOptions: github.ListOptions{PerPage: 100},
	}
	if window != nil {
		opts.Milestone = strconv.Itoa(window.ID)
	}

	var workload capacity.Workload
	for {
		issues, resp, err := g.client.Issues.ListByRepo(ctx, g.owner, g.repo, opts)
		if err != nil {
			return capacity.Workload{}, fmt.Errorf("tracker: workload for %s: %w", username, err)
		}
		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			workload.TicketCount++
			workload.Points += issuePoints(issue)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return workload, nil
}

// ActiveWindow maps the open milestone with the nearest due date to an
// iteration window. Returns nil when the repo has no open milestones.
func (g *GitHub) ActiveWindow(ctx context.Context) (*sprint.Window, error) {
	opts := &github.MilestoneListOptions{
		State:       "open",
		Sort:        "due_on",
		Direction:   "asc",
		ListOptions: github.ListOptions{PerPage: 10},
	}
	milestones, _, err := g.client.Issues.ListMilestones(ctx, g.owner, g.repo, opts)
	if err != nil {
		return nil, fmt.Errorf("tracker: list milestones: %w", err)
	}

	for _, m := range milestones {
		if m.DueOn == nil {
			continue
		}
		return sprint.FromDates(m.GetNumber(), m.GetTitle(),
			m.GetCreatedAt().Time, m.GetDueOn().Time), nil
	}
	return nil, nil
}

func (g *GitHub) key(number int) string {
	return fmt.Sprintf("%s-%d", strings.ToUpper(g.repo), number)
}

// number extracts the issue number from a "REPO-123" key.
func (g *GitHub) number(issueKey string) (int, error) {
	idx := strings.LastIndex(issueKey, "-")
	if idx < 0 {
		return 0, fmt.Errorf("tracker: malformed issue key %q", issueKey)
	}
	number, err := strconv.Atoi(issueKey[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("tracker: malformed issue key %q", issueKey)
	}
	return number, nil
}

// issuePoints reads the first "points/N" label, defaulting to 1.
func issuePoints(issue *github.Issue) int {
	for _, label := range issue.Labels {
		name := label.GetName()
		if !strings.HasPrefix(name, pointsLabelPrefix) {
			continue
		}
		if points, err := strconv.Atoi(strings.TrimPrefix(name, pointsLabelPrefix)); err == nil && points > 0 {
			return points
		}
	}
	return 1
}
