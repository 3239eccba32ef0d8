package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/docfill-backend/internal/http/response"
	"github.com/yungbote/docfill-backend/internal/platform/dbctx"
	"github.com/yungbote/docfill-backend/internal/services"
)

type FulfillmentHandler struct {
	svc services.FulfillmentService
}

func NewFulfillmentHandler(svc services.FulfillmentService) *FulfillmentHandler {
	return &FulfillmentHandler{svc: svc}
}

func (h *FulfillmentHandler) dbc(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

// sessionID resolves :id, which may be a uuid or a numeric reference.
func (h *FulfillmentHandler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := h.svc.Resolve(h.dbc(c), c.Param("id"))
	if err != nil {
		response.RespondDomainError(c, err)
		return uuid.Nil, false
	}
	return id, true
}

// POST /api/sessions
func (h *FulfillmentHandler) CreateSession(c *gin.Context) {
	var in services.CreateSessionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := h.svc.CreateSession(h.dbc(c), in)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, view)
}

// GET /api/sessions/:id
func (h *FulfillmentHandler) GetSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	view, err := h.svc.GetSession(h.dbc(c), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, view)
}

// GET /api/sessions/:id/next
func (h *FulfillmentHandler) NextQuestion(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	q, err := h.svc.NextQuestion(h.dbc(c), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, q)
}

// POST /api/sessions/:id/placeholders/:placeholder_id/answer
func (h *FulfillmentHandler) SubmitAnswer(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var in services.AnswerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.svc.SubmitAnswer(h.dbc(c), id, c.Param("placeholder_id"), in)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/sessions/:id/progress
func (h *FulfillmentHandler) Progress(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	p, err := h.svc.Progress(h.dbc(c), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": p, "complete": p.Complete()})
}

// POST /api/sessions/:id/finalize
func (h *FulfillmentHandler) Finalize(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	res, err := h.svc.Finalize(h.dbc(c), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/sessions/:id/placeholders
func (h *FulfillmentHandler) ListPlaceholders(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	list, err := h.svc.ListPlaceholders(h.dbc(c), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"placeholders": list})
}

// GET /api/sessions/:id/actions?limit=N
func (h *FulfillmentHandler) ListActions(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = n
	}
	rows, err := h.svc.ListActions(h.dbc(c), id, limit)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"actions": rows})
}
