// Package api exposes the workflow engine over HTTP. Handlers translate the
// engine's error taxonomy into status codes: NotFound → 404, ValidationError
// → 400, InvalidTransition → 409; action-dispatch failures never surface
// here because the engine isolates them from the transition result.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/openhire/hire/internal/auth"
	"github.com/openhire/hire/internal/engine"
	"github.com/openhire/hire/internal/engine/model"
	"github.com/openhire/hire/utils"
)

// WorkflowRouter holds the handlers for the workflow endpoints.
type WorkflowRouter struct {
	engine *engine.Engine
}

func NewWorkflowRouter(e *engine.Engine) *WorkflowRouter {
	return &WorkflowRouter{engine: e}
}

// HandleRegisterWorkflow handles POST /api/workflows requests.
func (wr *WorkflowRouter) HandleRegisterWorkflow(w http.ResponseWriter, r *http.Request) {
	var def model.WorkflowDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		http.Error(w, fmt.Sprintf(`{"error": "invalid request body: %v"}`, err), http.StatusBadRequest)
		return
	}

	if err := wr.engine.RegisterWorkflow(r.Context(), &def); err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, &def)
}

// HandleListWorkflows handles GET /api/workflows requests.
func (wr *WorkflowRouter) HandleListWorkflows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wr.engine.ListWorkflows())
}

// HandleGetWorkflow handles GET /api/workflows/{workflowID} requests.
func (wr *WorkflowRouter) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	def, err := wr.engine.GetWorkflow(r.PathValue("workflowID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// HandleUnregisterWorkflow handles DELETE /api/workflows/{workflowID} requests.
func (wr *WorkflowRouter) HandleUnregisterWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := wr.engine.UnregisterWorkflow(r.Context(), r.PathValue("workflowID")); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetMetrics handles GET /api/workflows/{workflowID}/metrics requests.
func (wr *WorkflowRouter) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	workflowID := r.PathValue("workflowID")
	if _, err := wr.engine.GetWorkflow(workflowID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wr.engine.GetMetrics(workflowID))
}

// createInstanceRequest is the body of POST /api/instances.
type createInstanceRequest struct {
	WorkflowID     string         `json:"workflowId"`
	EntityType     string         `json:"entityType"`
	EntityID       string         `json:"entityId"`
	AssignedTo     string         `json:"assignedTo,omitempty"`
	AssignedToName string         `json:"assignedToName,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// HandleCreateInstance handles POST /api/instances requests.
func (wr *WorkflowRouter) HandleCreateInstance(w http.ResponseWriter, r *http.Request) {
	var req createInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf(`{"error": "invalid request body: %v"}`, err), http.StatusBadRequest)
		return
	}

	instance, err := wr.engine.CreateInstance(r.Context(), engine.CreateInstanceInput{
		WorkflowID:     req.WorkflowID,
		EntityType:     req.EntityType,
		EntityID:       req.EntityID,
		AssignedTo:     req.AssignedTo,
		AssignedToName: req.AssignedToName,
		Metadata:       req.Metadata,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, instance)
}

// HandleGetInstance handles GET /api/instances/{instanceID} requests.
func (wr *WorkflowRouter) HandleGetInstance(w http.ResponseWriter, r *http.Request) {
	instance, err := wr.engine.GetInstance(r.PathValue("instanceID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instance)
}

// HandleGetInstances handles GET /api/instances requests.
// Required query parameters: entityType, entityId. Optional: offset, limit.
func (wr *WorkflowRouter) HandleGetInstances(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entityType")
	entityID := r.URL.Query().Get("entityId")
	if entityType == "" || entityID == "" {
		http.Error(w, `{"error": "entityType and entityId query parameters are required"}`, http.StatusBadRequest)
		return
	}

	var offsetParam, limitParam *int
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			http.Error(w, `{"error": "invalid 'offset' query parameter, must be an integer"}`, http.StatusBadRequest)
			return
		}
		offsetParam = &offset
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			http.Error(w, `{"error": "invalid 'limit' query parameter, must be an integer"}`, http.StatusBadRequest)
			return
		}
		limitParam = &limit
	}

	instances := wr.engine.GetInstancesByEntity(entityType, entityID)
	writeJSON(w, http.StatusOK, utils.Page(instances, offsetParam, limitParam))
}

// HandleGetAvailableTransitions handles GET /api/instances/{instanceID}/transitions requests.
func (wr *WorkflowRouter) HandleGetAvailableTransitions(w http.ResponseWriter, r *http.Request) {
	actorRole := ""
	if actor := auth.GetActorContext(r.Context()); actor != nil {
		actorRole = actor.Role
	}

	transitions, err := wr.engine.GetAvailableTransitions(r.PathValue("instanceID"), actorRole)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transitions)
}

// executeTransitionRequest is the body of POST /api/instances/{instanceID}/transitions/{transitionID}.
type executeTransitionRequest struct {
	Comments string `json:"comments,omitempty"`
}

// HandleExecuteTransition handles POST /api/instances/{instanceID}/transitions/{transitionID}
// requests. The route is mounted behind auth.RequireActor, which rejects
// anonymous callers before this handler runs.
func (wr *WorkflowRouter) HandleExecuteTransition(w http.ResponseWriter, r *http.Request) {
	var actorID, actorName, actorRole string
	if actor := auth.GetActorContext(r.Context()); actor != nil {
		actorID, actorName, actorRole = actor.ID, actor.Name, actor.Role
	}

	var req executeTransitionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf(`{"error": "invalid request body: %v"}`, err), http.StatusBadRequest)
			return
		}
	}

	instance, err := wr.engine.ExecuteTransition(r.Context(), engine.ExecuteTransitionInput{
		InstanceID:   r.PathValue("instanceID"),
		TransitionID: r.PathValue("transitionID"),
		ActorID:      actorID,
		ActorName:    actorName,
		ActorRole:    actorRole,
		Comments:     req.Comments,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, instance)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeEngineError maps the engine error taxonomy to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	var notFound *engine.NotFoundError
	var validation *engine.ValidationError
	var invalidTransition *engine.InvalidTransitionError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &invalidTransition):
		status = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
