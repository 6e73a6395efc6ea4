package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/rpgify/internal/index"
	"github.com/starford/rpgify/internal/questservice"
	"github.com/starford/rpgify/internal/sse"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc    *questservice.Service
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil.
func NewHandler(svc *questservice.Service, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, broker: broker}
}

// questPath extracts the quest path from the URL (everything after /api/quests/).
// Supports encoded slashes from OpenAPI clients (e.g. Quests%2Fdragon.md).
func questPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// GetDashboard handles GET /api/dashboard.
//
//	@Summary		Get the last rendered dashboard, rendering once if needed
//	@Tags			dashboard
//	@Produce		json
//	@Success		200	{object}	Dashboard
//	@Security		BearerAuth
//	@Router			/dashboard [get]
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		writeError(w, "get dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// RenderDashboard handles POST /api/dashboard/render.
//
//	@Summary		Run a render pass now
//	@Tags			dashboard
//	@Produce		json
//	@Success		200	{object}	Dashboard
//	@Security		BearerAuth
//	@Router			/dashboard/render [post]
func (h *Handler) RenderDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Render(r.Context())
	if err != nil {
		writeError(w, "render dashboard", err)
		return
	}
	if h.broker != nil {
		h.broker.PublishDashboard(d)
	}
	writeJSON(w, http.StatusOK, d)
}

// ListQuests handles GET /api/quests.
//
//	@Summary		List indexed quests
//	@Tags			quests
//	@Produce		json
//	@Param			type		query		string	false	"Filter by Type"
//	@Param			class		query		string	false	"Filter by Class"
//	@Param			complete	query		bool	false	"Filter by completion"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	QuestListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/quests [get]
func (h *Handler) ListQuests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := index.QuestFilter{Type: q.Get("type"), Class: q.Get("class")}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	if c := q.Get("complete"); c != "" {
		done, err := strconv.ParseBool(c)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("complete must be a boolean"))
			return
		}
		f.Complete = &done
	}

	items, total, err := h.svc.ListQuests(r.Context(), f)
	if err != nil {
		writeError(w, "list quests", err)
		return
	}
	writeJSON(w, http.StatusOK, QuestListResponse{Quests: items, Total: total})
}

// GetQuest handles GET /api/quests/*.
//
//	@Summary		Get a single quest by path
//	@Tags			quests
//	@Produce		json
//	@Param			path	path		string	true	"Quest path"
//	@Success		200		{object}	QuestDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/quests/{path} [get]
func (h *Handler) GetQuest(w http.ResponseWriter, r *http.Request) {
	path := questPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	d, err := h.svc.GetQuest(r.Context(), path)
	if err != nil {
		writeError(w, "get quest", err)
		return
	}
	w.Header().Set("ETag", `"`+d.Checksum+`"`)
	writeJSON(w, http.StatusOK, d)
}

// CreateQuest handles POST /api/quests.
//
//	@Summary		Create a quest or achievement from the template
//	@Tags			quests
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateQuestRequest	true	"Quest to create"
//	@Success		201		{object}	QuestDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/quests [post]
func (h *Handler) CreateQuest(w http.ResponseWriter, r *http.Request) {
	var req CreateQuestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := h.svc.CreateQuest(r.Context(), req)
	if err != nil {
		writeError(w, "create quest", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// MoveQuest handles POST /api/quests/move.
//
//	@Summary		Rename a quest note
//	@Tags			quests
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveQuestRequest	true	"Source and destination"
//	@Success		200		{object}	QuestDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/quests/move [post]
func (h *Handler) MoveQuest(w http.ResponseWriter, r *http.Request) {
	var req MoveQuestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.From == "" || req.To == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("from and to are required"))
		return
	}
	d, err := h.svc.MoveQuest(r.Context(), req.From, req.To)
	if err != nil {
		writeError(w, "move quest", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteQuest handles DELETE /api/quests/*.
//
//	@Summary		Delete a quest
//	@Tags			quests
//	@Param			path	path	string	true	"Quest path"
//	@Success		204		"Quest deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/quests/{path} [delete]
func (h *Handler) DeleteQuest(w http.ResponseWriter, r *http.Request) {
	path := questPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteQuest(r.Context(), path); err != nil {
		writeError(w, "delete quest", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleTask handles POST /api/tasks/toggle.
//
//	@Summary		Check or uncheck one task line
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			If-Match	header		string				false	"SHA-256 checksum of the note"
//	@Param			body		body		ToggleTaskRequest	true	"Task to toggle"
//	@Success		200			{object}	ToggleTaskResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/toggle [post]
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	var req ToggleTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	ifMatch := req.IfMatch
	if hdr := r.Header.Get("If-Match"); hdr != "" {
		// Strip surrounding quotes (standard ETag format).
		ifMatch = strings.Trim(hdr, `"`)
	}

	res, err := h.svc.ToggleTask(r.Context(), req.Path, req.Line, req.Checked, ifMatch)
	if err != nil {
		writeError(w, "toggle task", err)
		return
	}
	slog.Debug("task toggled", slog.String("path", req.Path), slog.Int("line", req.Line))
	writeJSON(w, http.StatusOK, res)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across quests
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Get the player settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

// UpdateSettings handles PUT /api/settings.
//
//	@Summary		Change name, date of birth or classes
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SettingsRequest	true	"Fields to change"
//	@Success		200		{object}	Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s, err := h.svc.UpdateSettings(r.Context(), req)
	if err != nil {
		writeError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
