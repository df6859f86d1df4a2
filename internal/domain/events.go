package domain

// EventTypeDepartmentReady marks events published when a department's review
// transitions to ready.
const EventTypeDepartmentReady = "workflow.department_ready"

// NotificationEvent is the payload published to the notification topic for each
// eligible reviewer when a department's review becomes actionable.
type NotificationEvent struct {
	EventType      string `json:"event_type"`
	ProcedureID    string `json:"procedure_id"`
	ProcedureFolio string `json:"procedure_folio"`
	ProcedureType  string `json:"procedure_type"`
	MunicipalityID int64  `json:"municipality_id"`
	DepartmentID   int64  `json:"department_id"`
	WorkflowID     string `json:"workflow_id"`
	RecipientID    int64  `json:"recipient_id"`
	RecipientEmail string `json:"recipient_email"`
}
