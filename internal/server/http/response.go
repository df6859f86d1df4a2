package httpserver

import (
	"time"

	"github.com/civium/permit-review-service/internal/domain"
)

// Workflow response types for JSON serialization.

type workflowStateResponse struct {
	WorkflowID              string     `json:"workflow_id"`
	ProcedureID             string     `json:"procedure_id"`
	DepartmentID            int64      `json:"department_id"`
	Status                  string     `json:"status"`
	CanStartReview          bool       `json:"can_start_review"`
	DependencyCompletionPct int        `json:"dependency_completion_percentage"`
	BlockingDepartmentIDs   []int64    `json:"blocking_department_ids"`
	PendingRequirements     []int64    `json:"pending_requirements"`
	AssignedUserID          *int64     `json:"assigned_user_id,omitempty"`
	ReviewComments          string     `json:"review_comments,omitempty"`
	IssuesFound             string     `json:"issues_found,omitempty"`
	AssignedAt              time.Time  `json:"assigned_at"`
	ReadyAt                 *time.Time `json:"ready_at,omitempty"`
	StartedAt               *time.Time `json:"started_at,omitempty"`
	CompletedAt             *time.Time `json:"completed_at,omitempty"`
	Duration                string     `json:"duration,omitempty"`
}

type initiateWorkflowResponse struct {
	ProcedureID string                  `json:"procedure_id"`
	States      []workflowStateResponse `json:"states"`
	Message     string                  `json:"message,omitempty"`
}

type completeReviewResponse struct {
	WorkflowID       string                  `json:"workflow_id"`
	Outcome          string                  `json:"outcome"`
	NewlyReadyStates []workflowStateResponse `json:"newly_ready_states"`
	UnblockedCount   int                     `json:"unblocked_count"`
}

type procedureWorkflowResponse struct {
	ProcedureID string                  `json:"procedure_id"`
	States      []workflowStateResponse `json:"states"`
	TotalCount  int                     `json:"total_count"`
}

type workItemResponse struct {
	WorkflowID              string    `json:"workflow_id"`
	ProcedureID             string    `json:"procedure_id"`
	ProcedureFolio          string    `json:"procedure_folio"`
	ProcedureType           string    `json:"procedure_type"`
	DepartmentID            int64     `json:"department_id"`
	Status                  string    `json:"status"`
	CanStartReview          bool      `json:"can_start_review"`
	DependencyCompletionPct int       `json:"dependency_completion_percentage"`
	PendingRequirements     []int64   `json:"pending_requirements"`
	AssignedUserID          *int64    `json:"assigned_user_id,omitempty"`
	AssignedAt              time.Time `json:"assigned_at"`
}

type pendingWorkResponse struct {
	DepartmentID int64              `json:"department_id"`
	Items        []workItemResponse `json:"items"`
	TotalCount   int                `json:"total_count"`
}

// Converter functions

func domainStateToResponse(s *domain.ReviewWorkflowState) workflowStateResponse {
	resp := workflowStateResponse{
		WorkflowID:              s.ID.String(),
		ProcedureID:             s.ProcedureID.String(),
		DepartmentID:            s.DepartmentID,
		Status:                  string(s.Status),
		CanStartReview:          s.CanStartReview,
		DependencyCompletionPct: s.DependencyCompletionPct,
		BlockingDepartmentIDs:   s.BlockingDepartmentIDs,
		PendingRequirements:     s.PendingRequirements,
		AssignedUserID:          s.AssignedUserID,
		ReviewComments:          s.ReviewComments,
		IssuesFound:             s.IssuesFound,
		AssignedAt:              s.AssignedAt,
		ReadyAt:                 s.ReadyAt,
		StartedAt:               s.StartedAt,
		CompletedAt:             s.CompletedAt,
	}
	if resp.BlockingDepartmentIDs == nil {
		resp.BlockingDepartmentIDs = []int64{}
	}
	if resp.PendingRequirements == nil {
		resp.PendingRequirements = []int64{}
	}
	if d := s.Duration(); d > 0 {
		resp.Duration = d.String()
	}
	return resp
}

func domainStatesToResponse(states []*domain.ReviewWorkflowState) []workflowStateResponse {
	resp := make([]workflowStateResponse, len(states))
	for i, s := range states {
		resp[i] = domainStateToResponse(s)
	}
	return resp
}

func domainWorkItemToResponse(item *domain.WorkItem) workItemResponse {
	resp := workItemResponse{
		WorkflowID:              item.WorkflowID.String(),
		ProcedureID:             item.ProcedureID.String(),
		ProcedureFolio:          item.ProcedureFolio,
		ProcedureType:           item.ProcedureType,
		DepartmentID:            item.DepartmentID,
		Status:                  string(item.Status),
		CanStartReview:          item.CanStartReview,
		DependencyCompletionPct: item.DependencyCompletionPct,
		PendingRequirements:     item.PendingRequirements,
		AssignedUserID:          item.AssignedUserID,
		AssignedAt:              item.AssignedAt,
	}
	if resp.PendingRequirements == nil {
		resp.PendingRequirements = []int64{}
	}
	return resp
}
