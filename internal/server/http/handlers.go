package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/civium/permit-review-service/internal/domain"
)

const maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies

var validate = validator.New(validator.WithRequiredStructEnabled())

// completeReviewRequest is the JSON request body for completing a review.
type completeReviewRequest struct {
	Outcome    string `json:"outcome" validate:"required,oneof=approved rejected skipped"`
	ReviewerID int64  `json:"reviewer_id" validate:"required,gt=0"`
	Comments   string `json:"comments,omitempty" validate:"omitempty,max=10000"`
	Issues     string `json:"issues_found,omitempty" validate:"omitempty,max=10000"`
}

// assignReviewRequest is the JSON request body for claiming a review.
type assignReviewRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// initiateWorkflow handles POST /procedures/{procedureID}/workflow.
// It instantiates the review graph for a submitted procedure.
func (s *Server) initiateWorkflow(w http.ResponseWriter, r *http.Request) {
	procedureID, ok := parseUUID(w, chi.URLParam(r, "procedureID"), "procedure_id")
	if !ok {
		return
	}

	states, err := s.coordinator.InitiateWorkflow(r.Context(), procedureID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := initiateWorkflowResponse{
		ProcedureID: procedureID.String(),
		States:      domainStatesToResponse(states),
	}
	if len(states) == 0 {
		resp.Message = "no review required for this procedure type"
	}
	writeJSON(w, http.StatusCreated, resp)
}

// getProcedureWorkflow handles GET /procedures/{procedureID}/workflow.
// It returns every review state of a procedure, ordered by department.
func (s *Server) getProcedureWorkflow(w http.ResponseWriter, r *http.Request) {
	procedureID, ok := parseUUID(w, chi.URLParam(r, "procedureID"), "procedure_id")
	if !ok {
		return
	}

	states, err := s.coordinator.ListProcedureWorkflow(r.Context(), procedureID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, procedureWorkflowResponse{
		ProcedureID: procedureID.String(),
		States:      domainStatesToResponse(states),
		TotalCount:  len(states),
	})
}

// completeReview handles POST /workflows/{workflowID}/complete.
// It records a terminal review decision and returns the departments the
// decision unblocked.
func (s *Server) completeReview(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := parseUUID(w, chi.URLParam(r, "workflowID"), "workflow_id")
	if !ok {
		return
	}

	var req completeReviewRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	newlyReady, err := s.coordinator.CompleteReview(
		r.Context(), workflowID, domain.ReviewOutcome(req.Outcome), req.ReviewerID, req.Comments, req.Issues,
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, completeReviewResponse{
		WorkflowID:       workflowID.String(),
		Outcome:          req.Outcome,
		NewlyReadyStates: domainStatesToResponse(newlyReady),
		UnblockedCount:   len(newlyReady),
	})
}

// assignReview handles POST /workflows/{workflowID}/assign.
// It claims a ready review for a specific reviewer.
func (s *Server) assignReview(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := parseUUID(w, chi.URLParam(r, "workflowID"), "workflow_id")
	if !ok {
		return
	}

	var req assignReviewRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	state, err := s.coordinator.AssignToUser(r.Context(), workflowID, req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainStateToResponse(state))
}

// departmentPendingWork handles GET /departments/{departmentID}/pending-work.
// It returns the department's actionable review queue, oldest first. An
// optional user_id query parameter narrows the queue to items claimable or
// claimed by that reviewer.
func (s *Server) departmentPendingWork(w http.ResponseWriter, r *http.Request) {
	departmentID, err := strconv.ParseInt(chi.URLParam(r, "departmentID"), 10, 64)
	if err != nil || departmentID <= 0 {
		writeError(w, http.StatusBadRequest, "department_id must be a positive integer")
		return
	}

	var userID *int64
	if userParam := r.URL.Query().Get("user_id"); userParam != "" {
		parsed, parseErr := strconv.ParseInt(userParam, 10, 64)
		if parseErr != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "user_id must be a positive integer")
			return
		}
		userID = &parsed
	}

	items, err := s.pending.DepartmentPendingWork(r.Context(), departmentID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := pendingWorkResponse{
		DepartmentID: departmentID,
		Items:        make([]workItemResponse, len(items)),
		TotalCount:   len(items),
	}
	for i, item := range items {
		resp.Items[i] = domainWorkItemToResponse(item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeRequest reads, unmarshals and validates a JSON request body. It
// writes a 400 error response and returns false on failure.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: field %s failed %s validation", fe.Field(), fe.Tag()))
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return false
	}

	return true
}

// writeDomainError maps domain errors to appropriate HTTP status codes and
// writes a JSON error response. Internal error details are not leaked to
// clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidState):
		var se *domain.InvalidStateError
		if errors.As(err, &se) {
			writeError(w, http.StatusConflict, fmt.Sprintf("workflow is in state %s and cannot be modified", se.Current))
		} else {
			writeError(w, http.StatusConflict, "workflow state does not allow this operation")
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrDependencyUnsatisfiable):
		var de *domain.DependencyError
		if errors.As(err, &de) {
			writeError(w, http.StatusBadRequest, de.Error())
		} else {
			writeError(w, http.StatusBadRequest, "review flow configuration is unsatisfiable")
		}
	case errors.Is(err, domain.ErrConfigurationMissing):
		writeError(w, http.StatusBadRequest, "review flow configuration is missing")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseUUID parses a UUID from a string, writing a 400 error response if
// invalid. The parse error details are not included to avoid echoing
// potentially malicious input.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}
