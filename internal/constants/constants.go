// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort          = "8080"
	DefaultDBPath        = "mias.db"
	DefaultSpotifyAPIURL = "https://api.spotify.com/v1"
	DefaultSpotifyAuth   = "https://accounts.spotify.com/api/token"
	DefaultMarkets       = "AU,GB,US,CA,JM,ZA"
	DefaultHTTPTimeout   = 10 * time.Second
	DefaultRetryCount    = 3
	DefaultRetryBase     = 1 * time.Second
	DefaultCacheTTL      = 24 * time.Hour
	DefaultRequestRate   = 500 * time.Millisecond
	DefaultShutdownGrace = 5 * time.Second
	DefaultRateLimit     = 30
)

// Recommendation defaults
const (
	DefaultTopN         = 30
	MaxTopN             = 500
	GenreTermCap        = 50
	WeightMultiplier    = 2
	HistogramBins       = 20
	MaxHistoryItems     = 20
	MaxWeightedFeatures = 64
)

// Spotify paging limits
const (
	PlaylistPageSize    = 100
	ArtistBatchSize     = 50
	FeaturesBatchSize   = 100
	FeaturedPlaylists   = 20
	FeaturedPlaylistGap = 2 * time.Second
)

// Database
const (
	TracksTable      = "tracks"
	SubmissionsTable = "submissions"
	GrowthTable      = "dataset_growth"
	CacheTable       = "cache"
)

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// File Extensions
const (
	ExtFLAC = ".flac"
	ExtMP3  = ".mp3"
	ExtCSV  = ".csv"
)

// Growth log formats. Dates are day first.
const (
	GrowthDateLayout = "02-01-2006"
	GrowthTimeLayout = "15:04:05"
)
