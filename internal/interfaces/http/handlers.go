package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/svcflow/servicedesk/internal/application/service"
	"github.com/svcflow/servicedesk/internal/application/workflow"
	"github.com/svcflow/servicedesk/internal/domain/entity"
)

// Handlers holds HTTP handler dependencies
type Handlers struct {
	engine         workflow.Engine
	requestService service.RequestService
	auditService   service.AuditService
	logger         Logger
}

// NewHandlers creates the handler set
func NewHandlers(
	engine workflow.Engine,
	requestService service.RequestService,
	auditService service.AuditService,
	logger Logger,
) *Handlers {
	return &Handlers{
		engine:         engine,
		requestService: requestService,
		auditService:   auditService,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateRequestBody is the payload for opening a draft
type CreateRequestBody struct {
	Kind    string                 `json:"kind" binding:"required"`
	Item    *entity.ItemDetails    `json:"item,omitempty"`
	Vehicle *entity.VehicleDetails `json:"vehicle,omitempty"`
}

// DecisionBody carries an approval or decline payload
type DecisionBody struct {
	Comments string `json:"comments"`
	Reason   string `json:"reason"`
}

// ReturnBody carries the return payload
type ReturnBody struct {
	Reason   string `json:"reason"`
	ReturnTo string `json:"return_to"`
}

// CompleteBody carries the vehicle completion payload
type CompleteBody struct {
	VehicleID int64  `json:"vehicle_id"`
	DriverID  int64  `json:"driver_id"`
	Comments  string `json:"comments"`
}

// AssignVerifierBody carries the verifier assignment payload
type AssignVerifierBody struct {
	VerifierID string `json:"verifier_id"`
}

// VerifyBody carries the verification decision payload
type VerifyBody struct {
	Approve  bool   `json:"approve"`
	Comments string `json:"comments"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// actorFrom builds the acting identity from request headers. Authentication
// is handled upstream; these headers are trusted within the deployment.
func actorFrom(c *gin.Context) (workflow.Actor, bool) {
	userID := c.GetHeader("X-User-ID")
	role := c.GetHeader("X-User-Role")
	if userID == "" || !entity.ValidRoles[role] {
		return workflow.Actor{}, false
	}
	departmentID, _ := strconv.ParseInt(c.GetHeader("X-Department-ID"), 10, 64)
	return workflow.Actor{UserID: userID, Role: role, DepartmentID: departmentID}, true
}

func (h *Handlers) requireActor(c *gin.Context) (workflow.Actor, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "missing or invalid identity headers"})
	}
	return actor, ok
}

func requestID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request id"})
		return 0, false
	}
	return id, true
}

// respondError maps workflow errors to HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrNotAuthorized), errors.Is(err, workflow.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, workflow.ErrInvalidState), errors.Is(err, workflow.ErrVersionConflict):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrValidation):
		status = http.StatusUnprocessableEntity
	default:
		h.logger.Error("Unhandled error", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

// CreateRequest handles POST /api/v1/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}

	var req *entity.Request
	var err error
	switch entity.RequestKind(body.Kind) {
	case entity.KindItem:
		req, err = h.requestService.CreateItemRequest(c.Request.Context(), actor.UserID, actor.DepartmentID, body.Item)
	case entity.KindVehicle:
		req, err = h.requestService.CreateVehicleRequest(c.Request.Context(), actor.UserID, actor.DepartmentID, body.Vehicle)
	default:
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "unknown request kind"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// ListRequests handles GET /api/v1/requests?status=&limit=&offset=
func (h *Handlers) ListRequests(c *gin.Context) {
	if _, ok := h.requireActor(c); !ok {
		return
	}

	limit, offset := pagination(c)
	requests, err := h.requestService.ListByStatus(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// ListPending handles GET /api/v1/requests/pending
func (h *Handlers) ListPending(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	requests, err := h.requestService.ListPendingFor(c.Request.Context(), actor.UserID, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// GetRequest handles GET /api/v1/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	if _, ok := h.requireActor(c); !ok {
		return
	}
	id, ok := requestID(c)
	if !ok {
		return
	}

	req, err := h.requestService.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// UpdateDraft handles PUT /api/v1/requests/:id
func (h *Handlers) UpdateDraft(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	id, ok := requestID(c)
	if !ok {
		return
	}

	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}

	req, err := h.requestService.UpdateDraft(c.Request.Context(), id, actor.UserID, body.Item, body.Vehicle)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// DeleteRequest handles DELETE /api/v1/requests/:id
func (h *Handlers) DeleteRequest(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	id, ok := requestID(c)
	if !ok {
		return
	}

	if err := h.engine.Delete(c.Request.Context(), id, actor); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// GetHistory handles GET /api/v1/requests/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	if _, ok := h.requireActor(c); !ok {
		return
	}
	id, ok := requestID(c)
	if !ok {
		return
	}

	approvals, err := h.requestService.History(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: approvals})
}

// GetAuditTrail handles GET /api/v1/requests/:id/audit
func (h *Handlers) GetAuditTrail(c *gin.Context) {
	if _, ok := h.requireActor(c); !ok {
		return
	}
	id, ok := requestID(c)
	if !ok {
		return
	}

	trail, err := h.auditService.Trail(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: trail})
}

// SubmitRequest handles POST /api/v1/requests/:id/submit
func (h *Handlers) SubmitRequest(c *gin.Context) {
	h.transition(c, func(actor workflow.Actor, id int64) (*entity.Request, error) {
		return h.engine.Submit(c.Request.Context(), id, actor)
	})
}

// ApproveRequest handles POST /api/v1/requests/:id/approve
func (h *Handlers) ApproveRequest(c *gin.Context) {
	var body DecisionBody
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}
	h.transition(c, func(actor workflow.Actor, id int64) (*entity.Request, error) {
		return h.engine.Approve(c.Request.Context(), id, actor, body.Comments)
	})
}

// DeclineRequest handles POST /api/v1/requests/:id/decline
func (h *Handlers) DeclineRequest(c *gin.Context) {
	var body DecisionBody
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}
	h.transition(c, func(actor workflow.Actor, id int64) (*entity.Request, error) {
		return h.engine.Decline(c.Request.Context(), id, actor, body.Reason)
	})
}

// ReturnRequest handles POST /api/v1/requests/:id/return
func (h *Handlers) ReturnRequest(c *gin.Context) {
	var body ReturnBody
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}
	if body.ReturnTo == "" {
		body.ReturnTo = entity.ReturnToRequestor
	}
	h.transition(c, func(actor workflow.Actor, id int64) (*entity.Request, error) {
		return h.engine.Return(c.Request.Context(), id, actor, body.Reason, body.ReturnTo)
	})
}

// StartProcessing handles POST /api/v1/requests/:id/start-processing
func (h *Handlers) StartProcessing(c *gin.Context) {
	h.transition(c, func(actor workflow.Actor, id int64) (*entity.Request, error) {
		return h.engine.StartProcessing(c.Request.Context(), id, actor)
	})
}

// CompleteRequest handles POST /api/v1/requests/:id/complete
func (h *Handlers) CompleteRequest(c *gin.Context) {
	var body CompleteBody
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}
	h.transition(c, func(actor workflow.Actor, id int64) (*entity.Request, error) {
		return h.engine.Complete(c.Request.Context(), id, actor, body.VehicleID, body.DriverID, body.Comments)
	})
}

// AssignVerifier handles POST /api/v1/requests/:id/assign-verifier
func (h *Handlers) AssignVerifier(c *gin.Context) {
	var body AssignVerifierBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}
	h.transition(c, func(actor workflow.Actor, id int64) (*entity.Request, error) {
		return h.engine.AssignVerifier(c.Request.Context(), id, actor, body.VerifierID)
	})
}

// VerifyRequest handles POST /api/v1/requests/:id/verify
func (h *Handlers) VerifyRequest(c *gin.Context) {
	var body VerifyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}
	h.transition(c, func(actor workflow.Actor, id int64) (*entity.Request, error) {
		return h.engine.Verify(c.Request.Context(), id, actor, body.Approve, body.Comments)
	})
}

// transition runs one engine operation with the shared actor/id plumbing
func (h *Handlers) transition(c *gin.Context, op func(actor workflow.Actor, id int64) (*entity.Request, error)) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	id, ok := requestID(c)
	if !ok {
		return
	}

	req, err := op(actor, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
