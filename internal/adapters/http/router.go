package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sillsdev/liftmerge/internal/adapters/liftjson"
	"github.com/sillsdev/liftmerge/internal/application"
	"github.com/sillsdev/liftmerge/internal/domain"
	"github.com/sillsdev/liftmerge/internal/platform/logger"
)

// maxImportBody bounds a JSON import payload; streamed JSON Lines are not bounded.
const maxImportBody = 64 << 20

type Handler struct {
	service *application.ImportService
	log     *logger.Logger
}

func NewRouter(service *application.ImportService, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewNop()
	}
	h := &Handler{service: service, log: log}
	r := chi.NewRouter()
	r.Use(h.logRequests)

	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.With(h.requireAPIKey).Post("/import", h.handleAPIImport)

		api.Get("/entries", h.handleAPIListEntries)
		api.Get("/entries/{guid}", h.handleAPIGetEntry)
		api.Get("/relations", h.handleAPIListRelations)
		api.Get("/reference-types", h.handleAPIListReferenceTypes)
		api.Get("/fields", h.handleAPIListFields)
		api.Get("/lists", h.handleAPIListLists)
		api.Get("/lists/{name}/items", h.handleAPIListItems)
		api.Get("/runs", h.handleAPIListRuns)
		api.Get("/runs/{id}/log", h.handleAPIRunLog)
	})

	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(started).String(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.service.AuthRequired() {
			next.ServeHTTP(w, r)
			return
		}
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") || !h.service.Authorize(authHeader[7:]) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// handleAPIImport accepts either a JSON ImportPayload or, with an ndjson
// content type, a stream of entry records plus style flags in the query.
func (h *Handler) handleAPIImport(w http.ResponseWriter, r *http.Request) {
	var req application.ImportRequest
	if strings.Contains(r.Header.Get("Content-Type"), "ndjson") {
		style, err := domain.ParseMergeStyle(r.URL.Query().Get("style"))
		if err != nil {
			writeError(w, err)
			return
		}
		req = application.ImportRequest{
			Source:          liftjson.NewEntryReader(r.Body),
			Style:           style,
			TrustTimestamps: parseBool(r.URL.Query().Get("trust_timestamps")),
		}
	} else {
		var payload application.ImportPayload
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBody)).Decode(&payload); err != nil {
			if errors.Is(err, domain.ErrInvalidMergeStyle) {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
			return
		}
		req = payload.Request()
	}

	out, err := h.service.ImportLIFT(r.Context(), req)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]any{"error": err.Error(), "run": out.Run})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAPIListEntries(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListEntries(r.Context(), r.URL.Query().Get("q"), queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleAPIGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.GetEntry(r.Context(), chi.URLParam(r, "guid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleAPIListRelations(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListLinks(r.Context(), r.URL.Query().Get("type"), queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleAPIListReferenceTypes(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListReferenceTypes(r.Context(), r.URL.Query().Get("q"), queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleAPIListFields(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListFieldDefs(r.Context(), r.URL.Query().Get("owner"), r.URL.Query().Get("q"), queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleAPIListLists(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPossibilityLists(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleAPIListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPossibilities(r.Context(), chi.URLParam(r, "name"), queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleAPIListRuns(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListImportRuns(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleAPIRunLog(w http.ResponseWriter, r *http.Request) {
	runID, err := application.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.service.ListMergeLog(r.Context(), runID, r.URL.Query().Get("kind"), queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("limit")))
	if err != nil {
		return 0
	}
	return n
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidMergeStyle):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrImportInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRepositoryUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
