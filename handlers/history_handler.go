package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prefeitura-digital/prompt-router/app"
	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/prefeitura-digital/prompt-router/services/render"
	"github.com/prefeitura-digital/prompt-router/utils"
)

// recordView is a PromptRecord plus its rendered HTML
type recordView struct {
	*models.PromptRecord
	ResponseHTML string `json:"response_html,omitempty"`
}

// ListHistoryHandler returns the caller's prompt history, newest
// first. Admins see all users.
func ListHistoryHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, isAdmin, ok := callerClaims(w, r)
		if !ok {
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		records, err := deps.Recorder.List(r.Context(), userID, isAdmin, limit, offset)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"records": records,
			"count":   len(records),
		}, deps.Logger)
	}
}

// GetHistoryRecordHandler returns one record with its response
// rendered to HTML. Owners and admins only.
func GetHistoryRecordHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, isAdmin, ok := callerClaims(w, r)
		if !ok {
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			_ = utils.WriteBadRequest(w, "invalid record id", nil)
			return
		}

		record, err := deps.Recorder.Get(r.Context(), id, userID, isAdmin)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		writeJSON(w, http.StatusOK, recordView{
			PromptRecord: record,
			ResponseHTML: render.Markdown(record.Response),
		}, deps.Logger)
	}
}

// ExportHistoryRecordHandler serves one record's response as a
// standalone HTML document for download
func ExportHistoryRecordHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, isAdmin, ok := callerClaims(w, r)
		if !ok {
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			_ = utils.WriteBadRequest(w, "invalid record id", nil)
			return
		}

		record, err := deps.Recorder.Get(r.Context(), id, userID, isAdmin)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="resposta-`+record.ID.String()+`.html"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(render.Markdown(record.Response)))
	}
}
