package similarity

import (
	"errors"
	"fmt"
)

var (
	ErrNotReady            = errors.New("similarity not calculated")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUndefinedSimilarity = errors.New("cosine similarity undefined")
	ErrAlreadyWeighted     = errors.New("features already weighted")
	ErrEmptyPlaylist       = errors.New("playlist has no rows in the feature table")
)

// UndefinedSimilarityError reports a zero-length vector under the strict
// zero-vector policy. An empty URI means the playlist vector itself.
type UndefinedSimilarityError struct {
	URI string
}

func (e *UndefinedSimilarityError) Error() string {
	if e.URI == "" {
		return "cosine similarity undefined: playlist vector has zero length"
	}
	return fmt.Sprintf("cosine similarity undefined: candidate %s has zero length", e.URI)
}

func (e *UndefinedSimilarityError) Is(target error) bool {
	return target == ErrUndefinedSimilarity
}
