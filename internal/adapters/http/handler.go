package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/application"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/contracts"
)

type Handler struct{ service *application.Service }

func NewHandler(service *application.Service) *Handler { return &Handler{service: service} }

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	in, err := toCreatePostInput(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	post, err := h.service.CreatePost(r.Context(), actor, in)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "", post)
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	in, err := toCreatePostInput(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	post, err := h.service.UpdatePost(r.Context(), actor, chi.URLParam(r, "postID"), in)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", post)
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	post, err := h.service.GetPost(r.Context(), actor, chi.URLParam(r, "postID"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", post)
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := parsePositiveInt(raw); err == nil {
			limit = n
		}
	}
	posts, err := h.service.ListPosts(r.Context(), actor, limit)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"posts": posts})
}

func (h *Handler) publishPost(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.PublishPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	result, err := h.service.Dispatch(r.Context(), actor, chi.URLParam(r, "postID"), req.AccountIDs)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusAccepted, "", result)
}

func (h *Handler) cancelPost(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	post, err := h.service.Cancel(r.Context(), actor, chi.URLParam(r, "postID"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", post)
}

func (h *Handler) listTargets(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	targets, err := h.service.ListTargets(r.Context(), actor, chi.URLParam(r, "postID"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"targets": targets})
}

func (h *Handler) getTargetAnalytics(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	row, err := h.service.GetTargetAnalytics(r.Context(), actor, chi.URLParam(r, "targetID"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", row)
}

func (h *Handler) reconcileAccount(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.ReconcileRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
			return
		}
	}
	summary, err := h.service.Reconcile(r.Context(), actor, chi.URLParam(r, "accountID"), req.DaysBack)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", summary)
}

func (h *Handler) getHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "", h.service.GetHealth(r.Context()))
}

func toCreatePostInput(req contracts.CreatePostRequest) (application.CreatePostInput, error) {
	in := application.CreatePostInput{
		Content:      req.Content,
		PostType:     req.PostType,
		Hashtags:     req.Hashtags,
		FirstComment: req.FirstComment,
		MediaURLs:    req.MediaURLs,
	}
	if req.ScheduledAt != "" {
		at, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			return application.CreatePostInput{}, err
		}
		at = at.UTC()
		in.ScheduledAt = &at
	}
	return in, nil
}

func parsePositiveInt(raw string) (int, error) {
	return strconv.Atoi(raw)
}
