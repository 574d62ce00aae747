package port

import "context"

type TracklistProvider interface {
	// FetchTracklist returns the ordered track titles of the release identified by mbid
	FetchTracklist(ctx context.Context, mbid string) ([]string, error)
}
