// Package tracker integrates with the external ticket tracking system.
// The assignment engine never calls this package directly; it exists for
// the drafting, sync, and API layers around the engine.
package tracker

import (
	"context"

	"github.com/calder/ticketyard/internal/capacity"
	"github.com/calder/ticketyard/internal/sprint"
)

// Draft is a ticket to be created in the tracker.
type Draft struct {
	Title    string
	Body     string
	Labels   []string
	Priority string
}

// User is a project member as the tracker reports them.
type User struct {
	Username    string
	Email       string
	DisplayName string
}

// Tracker is the capability surface Ticketyard needs from an issue
// tracker.
type Tracker interface {
	// CreateIssue files a new issue and returns its key.
	CreateIssue(ctx context.Context, draft Draft) (string, error)
	// AssignIssue sets the assignee on an existing issue.
	AssignIssue(ctx context.Context, issueKey, username string) error
	// ProjectUsers lists members of the tracked project.
	ProjectUsers(ctx context.Context) ([]User, error)
	// MemberWorkload reports a member's open committed points in the
	// active window.
	MemberWorkload(ctx context.Context, username string, window *sprint.Window) (capacity.Workload, error)
	// ActiveWindow returns the current iteration, or nil when none.
	ActiveWindow(ctx context.Context) (*sprint.Window, error)
}

// WindowProvider adapts a Tracker into a sprint.Provider.
type WindowProvider struct {
	Tracker Tracker
}

// Active returns the tracker's current iteration window.
func (p WindowProvider) Active() (*sprint.Window, error) {
	return p.Tracker.ActiveWindow(context.Background())
}

// WorkloadAdapter adapts a Tracker into a capacity.WorkloadSource.
type WorkloadAdapter struct {
	Tracker Tracker
}

// MemberWorkload reports workload via the wrapped tracker.
func (a WorkloadAdapter) MemberWorkload(ctx context.Context, username string, window *sprint.Window) (capacity.Workload, error) {
	return a.Tracker.MemberWorkload(ctx, username, window)
}
