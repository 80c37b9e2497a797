package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/munin/internal/apperr"
	"github.com/halvard/munin/internal/graphsvc"
)

// Handler serves the read-only query surface over the graph service.
type Handler struct {
	svc *graphsvc.Service
}

func NewHandler(svc *graphsvc.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	docs, total, err := h.svc.ListDocuments(r.Context(), limit, offset, q.Get("tag"), q.Get("sort"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     total,
	})
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	ref, ok := wildcardRef(w, r)
	if !ok {
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), ref)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("document not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) backlinks(w http.ResponseWriter, r *http.Request) {
	ref, ok := wildcardRef(w, r)
	if !ok {
		return
	}
	sources, err := h.svc.Backlinks(r.Context(), ref)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"target":    ref,
		"backlinks": sources,
	})
}

func (h *Handler) tags(w http.ResponseWriter, r *http.Request) {
	if tag := r.URL.Query().Get("tag"); tag != "" {
		ids, err := h.svc.TagIndex(r.Context(), tag)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tag": tag, "documents": ids})
		return
	}
	counts, err := h.svc.Tags(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": counts})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("missing query parameter q"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) graph(w http.ResponseWriter, r *http.Request) {
	nodes, edges, err := h.svc.Graph(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"edges": edges,
	})
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Validate(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// wildcardRef extracts and unescapes the trailing path segment from
// routes mounted with a "*" pattern.
func wildcardRef(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "*")
	ref, err := url.PathUnescape(raw)
	if err != nil || ref == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid document reference"))
		return "", false
	}
	return ref, true
}
