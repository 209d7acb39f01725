package spotify

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"error"`
}

// PlaylistTracksPage is one page of a playlist's items.
type PlaylistTracksPage struct {
	Items  []PlaylistItem `json:"items"`
	Next   *string        `json:"next"`
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

type PlaylistItem struct {
	// Track is nil for removed or local items.
	Track *TrackObject `json:"track"`
}

type TrackObject struct {
	Album      AlbumObject    `json:"album"`
	ID         string         `json:"id"`
	URI        string         `json:"uri"`
	Name       string         `json:"name"`
	Artists    []ArtistObject `json:"artists"`
	Popularity int            `json:"popularity"`
	IsLocal    bool           `json:"is_local"`
}

type AlbumObject struct {
	Name string `json:"name"`
}

// ArtistObject is the simplified artist embedded in tracks and the full
// artist returned by the artists endpoint; genres and popularity are only
// set on the latter.
type ArtistObject struct {
	ID         string   `json:"id"`
	URI        string   `json:"uri"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres,omitempty"`
	Popularity int      `json:"popularity"`
}

type artistsResponse struct {
	Artists []*ArtistObject `json:"artists"`
}

// AudioFeatures is the audio analysis summary of one track.
type AudioFeatures struct {
	ID               string  `json:"id"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Key              int     `json:"key"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	DurationMs       int     `json:"duration_ms"`
	TimeSignature    int     `json:"time_signature"`
}

type audioFeaturesResponse struct {
	AudioFeatures []*AudioFeatures `json:"audio_features"`
}

// PlaylistRef identifies a playlist by id and display name.
type PlaylistRef struct {
	ID   string `json:"id"`
	URI  string `json:"uri"`
	Name string `json:"name"`
}

type featuredResponse struct {
	Message   string `json:"message"`
	Playlists struct {
		Items []PlaylistRef `json:"items"`
	} `json:"playlists"`
}
