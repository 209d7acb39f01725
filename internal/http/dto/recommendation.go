package dto

import (
	"strings"
	"time"

	"github.com/cesargomez89/mias/internal/app"
	"github.com/cesargomez89/mias/internal/domain"
)

type RecommendationRequest struct {
	PlaylistURL string   `json:"playlist_url" validate:"required,max=2048"`
	Name        string   `json:"name" validate:"required,max=200"`
	Weights     []string `json:"weights" validate:"max=64,dive,required,feature"`
	TopN        int      `json:"top_n" validate:"omitempty,min=1,max=500"`
}

func (r *RecommendationRequest) Validate() []ValidationError {
	r.PlaylistURL = strings.TrimSpace(r.PlaylistURL)
	r.Name = strings.TrimSpace(r.Name)
	return ValidateStruct(r)
}

func (r *RecommendationRequest) ToRequest() app.Request {
	return app.Request{
		PlaylistURL: r.PlaylistURL,
		Name:        r.Name,
		Weights:     r.Weights,
		TopN:        r.TopN,
	}
}

type RecommendationResponse struct {
	URI      string  `json:"uri"`
	Name     string  `json:"name"`
	Artist   string  `json:"artist,omitempty"`
	Album    string  `json:"album,omitempty"`
	EmbedURL string  `json:"embed_url"`
	Rank     int     `json:"rank"`
	Score    float64 `json:"score"`
}

func NewRecommendationResponses(recs []domain.Recommendation) []RecommendationResponse {
	out := make([]RecommendationResponse, len(recs))
	for i, r := range recs {
		out[i] = RecommendationResponse{
			URI:      r.URI,
			Name:     r.Name,
			Artist:   r.Artist,
			Album:    r.Album,
			EmbedURL: r.EmbedURL(),
			Rank:     r.Rank,
			Score:    r.Score,
		}
	}
	return out
}

type SubmissionResponse struct {
	ID             string   `json:"id"`
	PlaylistName   string   `json:"playlist_name"`
	PlaylistURL    string   `json:"playlist_url"`
	PlaylistID     string   `json:"playlist_id"`
	Status         string   `json:"status"`
	Weights        []string `json:"weights,omitempty"`
	TrackCount     int      `json:"track_count"`
	CandidateCount int      `json:"candidate_count"`
	CreatedAt      string   `json:"created_at"`
	Error          string   `json:"error,omitempty"`
}

func NewSubmissionResponse(s *domain.Submission) SubmissionResponse {
	resp := SubmissionResponse{
		ID:             s.ID,
		PlaylistName:   s.PlaylistName,
		PlaylistURL:    s.PlaylistURL,
		PlaylistID:     s.PlaylistID,
		Status:         string(s.Status),
		Weights:        s.Weights,
		TrackCount:     s.TrackCount,
		CandidateCount: s.CandidateCount,
		CreatedAt:      s.CreatedAt.Format(time.RFC3339),
	}
	if s.Error != nil {
		resp.Error = *s.Error
	}
	return resp
}

// SubmissionDetail is a submission together with its stored ranking.
type SubmissionDetail struct {
	Submission      SubmissionResponse       `json:"submission"`
	Recommendations []RecommendationResponse `json:"recommendations"`
	Histogram       []app.HistogramBin       `json:"histogram,omitempty"`
	Playlist        []domain.Track           `json:"playlist,omitempty"`
}

func NewSubmissionDetail(d *app.Detail) SubmissionDetail {
	return SubmissionDetail{
		Submission:      NewSubmissionResponse(d.Submission),
		Recommendations: NewRecommendationResponses(d.Recommendations),
		Playlist:        d.Playlist,
	}
}

func NewResultResponse(res *app.Result) SubmissionDetail {
	return SubmissionDetail{
		Submission:      NewSubmissionResponse(res.Submission),
		Recommendations: NewRecommendationResponses(res.Recommendations),
		Histogram:       res.Histogram,
	}
}

type GrowthResponse struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	TrackCount int    `json:"track_count"`
}

func NewGrowthResponses(entries []domain.GrowthEntry) []GrowthResponse {
	out := make([]GrowthResponse, len(entries))
	for i, e := range entries {
		out[i] = GrowthResponse{Date: e.Date, Time: e.Time, TrackCount: e.TrackCount}
	}
	return out
}
