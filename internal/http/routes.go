package httpapp

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/cesargomez89/mias/internal/constants"
	"github.com/cesargomez89/mias/internal/http/dto"
)

const maxRequestBody = 1 << 20

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateRecommendations(w http.ResponseWriter, r *http.Request) {
	var req dto.RecommendationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.respondValidation(w, []dto.ValidationError{{Field: "body", Message: "invalid JSON: " + err.Error()}})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.respondValidation(w, errs)
		return
	}

	res, err := h.Recommender.Recommend(r.Context(), req.ToRequest())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, dto.NewResultResponse(res))
}

func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", constants.MaxHistoryItems)
	subs, err := h.Recommender.History(limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	out := make([]dto.SubmissionResponse, len(subs))
	for i := range subs {
		out[i] = dto.NewSubmissionResponse(&subs[i])
	}
	h.respondJSON(w, http.StatusOK, out)
}

func (h *Handler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	detail, err := h.Recommender.Submission(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, dto.NewSubmissionDetail(detail))
}

func (h *Handler) Growth(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Recommender.Growth()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, dto.NewGrowthResponses(entries))
}

func (h *Handler) ListTracks(w http.ResponseWriter, r *http.Request) {
	total, err := h.Recommender.CorpusSize()
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	page := dto.NewPagination(queryInt(r, "page", 1), queryInt(r, "page_size", dto.DefaultPageSize), total)
	tracks, err := h.Recommender.Tracks(page.PageSize, page.Offset())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, dto.TrackPage{Tracks: tracks, Pagination: page})
}

func (h *Handler) CountTracks(w http.ResponseWriter, r *http.Request) {
	total, err := h.Recommender.CorpusSize()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]int{"count": total})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
