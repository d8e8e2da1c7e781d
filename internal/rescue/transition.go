// Package rescue is the rescue-request status machine:
//
//	pending -> assigned -> in_progress -> completed
//	pending | assigned -> cancelled
package rescue

import (
	"fmt"
	"time"

	"floodwatch/internal/domain"
)

type Action string

const (
	ActionAccept   Action = "accept"   // rescuer claims an unassigned request
	ActionAssign   Action = "assign"   // admin assigns a rescuer
	ActionStart    Action = "start"    // assigned rescuer starts navigation
	ActionComplete Action = "complete" // assigned rescuer or admin
	ActionCancel   Action = "cancel"   // admin
)

// Actor who performs an action.
type Actor struct {
	UserID string
	Role   domain.Role
}

func (a Actor) isAdmin() bool { return a.Role == domain.RoleMDRRMOAdmin }

var allowed = map[domain.RequestStatus][]domain.RequestStatus{
	domain.StatusPending:    {domain.StatusAssigned, domain.StatusCancelled},
	domain.StatusAssigned:   {domain.StatusInProgress, domain.StatusCancelled},
	domain.StatusInProgress: {domain.StatusCompleted},
}

// CanTransition reports whether from -> to is an edge of the machine.
func CanTransition(from, to domain.RequestStatus) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Target is the status an action moves a request into.
func Target(action Action) (domain.RequestStatus, error) {
	switch action {
	case ActionAccept, ActionAssign:
		return domain.StatusAssigned, nil
	case ActionStart:
		return domain.StatusInProgress, nil
	case ActionComplete:
		return domain.StatusCompleted, nil
	case ActionCancel:
		return domain.StatusCancelled, nil
	}
	return "", fmt.Errorf("unknown action %q: %w", action, domain.ErrValidation)
}

// Apply validates the action against req and actor and returns the updated
// copy. rescuerID is only used by assign (the rescuer chosen by the admin).
// req itself is not modified.
func Apply(req domain.RescueRequest, action Action, actor Actor, rescuerID string, now time.Time) (domain.RescueRequest, error) {
	to, err := Target(action)
	if err != nil {
		return req, err
	}
	if !CanTransition(req.Status, to) {
		return req, fmt.Errorf("%s -> %s: %w", req.Status, to, domain.ErrInvalidTransition)
	}

	switch action {
	case ActionAccept:
		if actor.Role != domain.RoleRescuer {
			return req, fmt.Errorf("only rescuers can accept requests: %w", domain.ErrForbidden)
		}
		if req.AssignedRescuerID != nil {
			return req, domain.ErrAlreadyClaimed
		}
		id := actor.UserID
		req.AssignedRescuerID = &id
		req.AssignedAt = &now
	case ActionAssign:
		if !actor.isAdmin() {
			return req, fmt.Errorf("only admins can assign requests: %w", domain.ErrForbidden)
		}
		if rescuerID == "" {
			return req, fmt.Errorf("rescuer_id is required: %w", domain.ErrValidation)
		}
		if req.AssignedRescuerID != nil {
			return req, domain.ErrAlreadyClaimed
		}
		req.AssignedRescuerID = &rescuerID
		req.AssignedAt = &now
	case ActionStart:
		if !isAssignedTo(req, actor.UserID) {
			return req, fmt.Errorf("only the assigned rescuer can start: %w", domain.ErrForbidden)
		}
	case ActionComplete:
		if !actor.isAdmin() && !isAssignedTo(req, actor.UserID) {
			return req, fmt.Errorf("only the assigned rescuer or an admin can complete: %w", domain.ErrForbidden)
		}
		req.CompletedAt = &now
	case ActionCancel:
		if !actor.isAdmin() {
			return req, fmt.Errorf("only admins can cancel requests: %w", domain.ErrForbidden)
		}
		req.CompletedAt = &now
	}

	req.Status = to
	req.UpdatedAt = now
	return req, nil
}

func isAssignedTo(req domain.RescueRequest, userID string) bool {
	return req.AssignedRescuerID != nil && userID != "" && *req.AssignedRescuerID == userID
}
