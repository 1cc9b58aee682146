// Package story turns natural-language prompts into drafted tickets and
// drives them through tracker creation and assignment.
package story

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/calder/ticketyard/internal/assign"
	"github.com/calder/ticketyard/internal/llm"
	"github.com/calder/ticketyard/internal/models"
	"github.com/calder/ticketyard/internal/tracker"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// draftPrompt instructs the model to emit a machine-readable ticket draft.
const draftPrompt = `You are a project assistant drafting a ticket from a feature request.
Respond with a single JSON object and nothing else, with these fields:
"title" (short imperative summary), "description" (markdown body),
"acceptance_criteria" (list of strings), "technical_notes" (string),
"required_skills" (list of short skill tags like "Backend", "Frontend", "DevOps"),
"estimated_points" (integer story points, 1-13),
"priority" (one of "Highest", "High", "Medium", "Low").

Feature request:
%s`

// Service drafts tickets from prompts. Tracker is optional; without it,
// tickets get a locally generated key.
type Service struct {
	DB      *gorm.DB
	Gen     llm.Generator
	Tracker tracker.Tracker
}

// draftPayload mirrors the JSON the model is asked to produce.
type draftPayload struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	TechnicalNotes     string   `json:"technical_notes"`
	RequiredSkills     []string `json:"required_skills"`
	EstimatedPoints    int      `json:"estimated_points"`
	Priority           string   `json:"priority"`
}

// CreateRequest records a new drafting request in pending state.
func (s *Service) CreateRequest(prompt, projectKey, issueType string) (*models.Ticket, error) {
	if prompt == "" {
		return nil, fmt.Errorf("story: prompt is required")
	}
	if issueType == "" {
		issueType = "Story"
	}

	t := models.Ticket{
		RequestID:  uuid.NewString(),
		Prompt:     prompt,
		ProjectKey: projectKey,
		IssueType:  issueType,
		Status:     models.TicketStatusPending,
	}
	if err := s.DB.Create(&t).Error; err != nil {
		return nil, fmt.Errorf("story: create request: %w", err)
	}
	return &t, nil
}

// Process drafts the ticket, files it with the tracker, and runs it
// through the assignment engine. Drafting failures mark the ticket failed;
// assignment failures are a normal queued outcome, not an error.
func (s *Service) Process(ctx context.Context, requestID string) (*models.Ticket, *assign.Result, error) {
	var t models.Ticket
	err := s.DB.Where("request_id = ?", requestID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("story: request not found: %s", requestID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("story: load request %s: %w", requestID, err)
	}

	s.setStatus(&t, models.TicketStatusProcessing, "")

	payload, err := s.draft(ctx, t.Prompt)
	if err != nil {
		s.setStatus(&t, models.TicketStatusFailed, err.Error())
		return &t, nil, err
	}
	s.applyDraft(&t, payload)

	if s.Tracker != nil {
		key, err := s.Tracker.CreateIssue(ctx, tracker.Draft{
			Title:    t.Title,
			Body:     issueBody(payload),
			Labels:   payload.RequiredSkills,
			Priority: t.Priority,
		})
		if err != nil {
			s.setStatus(&t, models.TicketStatusFailed, err.Error())
			return &t, nil, fmt.Errorf("story: file issue: %w", err)
		}
		t.IssueKey = key
	} else {
		t.IssueKey = fmt.Sprintf("TY-%d", t.ID)
	}

	t.Status = models.TicketStatusCompleted
	if err := s.DB.Save(&t).Error; err != nil {
		return &t, nil, fmt.Errorf("story: save ticket %s: %w", t.IssueKey, err)
	}

	result, err := assign.Assign(s.DB, assign.TicketRef{
		IssueKey:        t.IssueKey,
		Priority:        t.Priority,
		EstimatedPoints: t.EstimatedPoints,
		RequiredSkills:  payload.RequiredSkills,
	})
	if err != nil {
		return &t, nil, err
	}

	if result.Assigned {
		t.AssignedTo = result.Assignee
		if err := s.DB.Model(&models.Ticket{}).Where("id = ?", t.ID).
			Update("assigned_to", result.Assignee).Error; err != nil {
			log.Printf("story: record assignee for %s: %v", t.IssueKey, err)
		}
		if s.Tracker != nil {
			if err := s.Tracker.AssignIssue(ctx, t.IssueKey, result.Assignee); err != nil {
				log.Printf("story: push assignee to tracker for %s: %v", t.IssueKey, err)
			}
		}
	}

	return &t, result, nil
}

// draft asks the generator for a ticket draft and parses it.
func (s *Service) draft(ctx context.Context, prompt string) (*draftPayload, error) {
	raw, err := s.Gen.Generate(ctx, fmt.Sprintf(draftPrompt, prompt))
	if err != nil {
		return nil, fmt.Errorf("story: generate draft: %w", err)
	}

	var payload draftPayload
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &payload); err != nil {
		return nil, fmt.Errorf("story: parse draft: %w", err)
	}
	if payload.Title == "" {
		return nil, fmt.Errorf("story: draft has no title")
	}

	if payload.EstimatedPoints < 1 {
		payload.EstimatedPoints = 3
	}
	if payload.EstimatedPoints > 13 {
		payload.EstimatedPoints = 13
	}
	switch payload.Priority {
	case models.PriorityHighest, models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
	default:
		payload.Priority = models.PriorityMedium
	}
	return &payload, nil
}

// applyDraft copies the generated fields onto the ticket row.
func (s *Service) applyDraft(t *models.Ticket, payload *draftPayload) {
	t.Title = payload.Title
	t.Description = payload.Description
	t.TechnicalNotes = payload.TechnicalNotes
	t.EstimatedPoints = payload.EstimatedPoints
	t.Priority = payload.Priority

	if data, err := json.Marshal(payload.AcceptanceCriteria); err == nil {
		t.AcceptanceCriteria = string(data)
	}
	if data, err := json.Marshal(payload.RequiredSkills); err == nil {
		t.RequiredSkills = string(data)
	}
}

func (s *Service) setStatus(t *models.Ticket, status, errMsg string) {
	t.Status = status
	t.ErrorMessage = errMsg
	if err := s.DB.Model(&models.Ticket{}).Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errMsg,
			"updated_at":    time.Now(),
		}).Error; err != nil {
		log.Printf("story: set status %s on request %s: %v", status, t.RequestID, err)
	}
}

// issueBody renders the tracker issue body from the draft.
func issueBody(payload *draftPayload) string {
	body := payload.Description
	if len(payload.AcceptanceCriteria) > 0 {
		body += "\n\n## Acceptance Criteria\n"
		for _, criterion := range payload.AcceptanceCriteria {
			body += "- [ ] " + criterion + "\n"
		}
	}
	if payload.TechnicalNotes != "" {
		body += "\n## Technical Notes\n" + payload.TechnicalNotes
	}
	return body
}
