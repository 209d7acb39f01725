// Package spotify retrieves playlists, artists and audio features from the
// Spotify Web API and assembles them into corpus tracks.
package spotify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/cesargomez89/mias/internal/constants"
	"github.com/cesargomez89/mias/internal/httpclient"
	"github.com/cesargomez89/mias/internal/logger"
	"github.com/cesargomez89/mias/internal/metrics"
)

// Source is the subset of the Web API the extractor needs.
type Source interface {
	PlaylistTracks(ctx context.Context, playlistID string, offset, limit int) (*PlaylistTracksPage, error)
	Artists(ctx context.Context, ids []string) ([]*ArtistObject, error)
	AudioFeatures(ctx context.Context, ids []string) ([]*AudioFeatures, error)
	FeaturedPlaylists(ctx context.Context, country string, limit int) ([]PlaylistRef, error)
}

type Config struct {
	ClientID     string
	ClientSecret string
	APIURL       string
	AuthURL      string
	// RequestInterval is the minimum gap between outgoing requests.
	RequestInterval time.Duration
	HTTPClient      *http.Client
}

// Client is a client-credentials Web API client. It is safe for
// concurrent use.
type Client struct {
	http    *httpclient.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	log     *logger.Logger

	apiURL       string
	authURL      string
	clientID     string
	clientSecret string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var _ Source = (*Client)(nil)

func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrNoCredentials
	}
	if cfg.APIURL == "" {
		cfg.APIURL = constants.DefaultSpotifyAPIURL
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = constants.DefaultSpotifyAuth
	}
	if log == nil {
		log = logger.Discard()
	}
	log = log.WithComponent("spotify")

	c := &Client{
		http:         httpclient.NewClient(cfg.HTTPClient, cfg.RequestInterval),
		log:          log,
		apiURL:       strings.TrimSuffix(cfg.APIURL, "/"),
		authURL:      cfg.AuthURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "spotify-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Client errors say nothing about the health of the API.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.Temporary()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

// SetRetry adjusts the retry policy of the underlying HTTP client.
func (c *Client) SetRetry(count int, base time.Duration) {
	c.http.SetRetry(count, base)
}

func (c *Client) PlaylistTracks(ctx context.Context, playlistID string, offset, limit int) (*PlaylistTracksPage, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var page PlaylistTracksPage
	if err := c.get(ctx, "playlist_tracks", "/playlists/"+url.PathEscape(playlistID)+"/tracks", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Artists fetches up to constants.ArtistBatchSize artists. Unknown ids
// come back as nil entries.
func (c *Client) Artists(ctx context.Context, ids []string) ([]*ArtistObject, error) {
	if len(ids) > constants.ArtistBatchSize {
		return nil, fmt.Errorf("artists: %d ids exceeds batch size %d", len(ids), constants.ArtistBatchSize)
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))

	var resp artistsResponse
	if err := c.get(ctx, "artists", "/artists", q, &resp); err != nil {
		return nil, err
	}
	return resp.Artists, nil
}

// AudioFeatures fetches up to constants.FeaturesBatchSize analyses. Tracks
// without an analysis come back as nil entries.
func (c *Client) AudioFeatures(ctx context.Context, ids []string) ([]*AudioFeatures, error) {
	if len(ids) > constants.FeaturesBatchSize {
		return nil, fmt.Errorf("audio features: %d ids exceeds batch size %d", len(ids), constants.FeaturesBatchSize)
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))

	var resp audioFeaturesResponse
	if err := c.get(ctx, "audio_features", "/audio-features", q, &resp); err != nil {
		return nil, err
	}
	return resp.AudioFeatures, nil
}

func (c *Client) FeaturedPlaylists(ctx context.Context, country string, limit int) ([]PlaylistRef, error) {
	q := url.Values{}
	q.Set("country", country)
	q.Set("limit", strconv.Itoa(limit))

	var resp featuredResponse
	if err := c.get(ctx, "featured_playlists", "/browse/featured-playlists", q, &resp); err != nil {
		return nil, err
	}
	return resp.Playlists.Items, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetch(ctx, endpoint, path, query)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("spotify %s: %w", endpoint, err)
		}
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("spotify %s: failed to decode response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	u := c.apiURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		metrics.RecordSpotifyRequest(endpoint, 0, time.Since(start))
		return nil, fmt.Errorf("spotify %s: %w", endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	metrics.RecordSpotifyRequest(endpoint, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("spotify %s: failed to read response: %w", endpoint, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken()
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(endpoint, resp.StatusCode, body)
	}

	c.log.Debug("Spotify request", "endpoint", endpoint, "status", resp.StatusCode, "duration", time.Since(start))
	return body, nil
}

// token returns a cached access token, requesting a new one a minute
// before the current one expires.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		metrics.RecordSpotifyRequest("token", 0, time.Since(start))
		return "", fmt.Errorf("spotify token: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	metrics.RecordSpotifyRequest("token", resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("spotify token: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apiError("token", resp.StatusCode, body)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("spotify token: failed to decode response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("spotify token: empty access token")
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn-60) * time.Second)
	c.log.Debug("Obtained access token", "expires_in", tok.ExpiresIn)
	return c.accessToken, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}

func apiError(endpoint string, status int, body []byte) *APIError {
	e := &APIError{Endpoint: endpoint, Status: status}
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		e.Message = parsed.Error.Message
	}
	return e
}
