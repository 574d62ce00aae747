package service

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/rl1809/record-catalog/internal/core/domain"
)

const recordsCacheKeyPrefix = "records:"

// ListCacheKey encodes every field of a resolved query. Free-text parts are
// escaped so a ':' typed by a user cannot shift the other components.
func ListCacheKey(q domain.ListQuery) string {
	parts := []string{
		url.QueryEscape(q.Term),
		url.QueryEscape(q.Artist),
		url.QueryEscape(q.Album),
		q.Format,
		q.Category,
		strconv.Itoa(q.Page),
		strconv.Itoa(q.Limit),
	}
	return recordsCacheKeyPrefix + strings.Join(parts, ":")
}

// BuildRecordFilter turns a resolved query into a store filter. The term is
// matched against artist, album and category; every other field narrows it.
func BuildRecordFilter(q domain.ListQuery) domain.RecordFilter {
	var f domain.RecordFilter
	if q.Term != "" {
		f.AnyOf = []domain.Condition{
			{Field: domain.FieldArtist, Match: domain.MatchContains, Value: q.Term},
			{Field: domain.FieldAlbum, Match: domain.MatchContains, Value: q.Term},
			{Field: domain.FieldCategory, Match: domain.MatchContains, Value: q.Term},
		}
	}
	if q.Artist != "" {
		f.AllOf = append(f.AllOf, domain.Condition{Field: domain.FieldArtist, Match: domain.MatchContains, Value: q.Artist})
	}
	if q.Album != "" {
		f.AllOf = append(f.AllOf, domain.Condition{Field: domain.FieldAlbum, Match: domain.MatchContains, Value: q.Album})
	}
	if domain.Format(q.Format).Valid() {
		f.AllOf = append(f.AllOf, domain.Condition{Field: domain.FieldFormat, Match: domain.MatchEquals, Value: q.Format})
	}
	if domain.Category(q.Category).Valid() {
		f.AllOf = append(f.AllOf, domain.Condition{Field: domain.FieldCategory, Match: domain.MatchEquals, Value: q.Category})
	}
	return f
}

// NeedsReenrichment reports whether applying update to current must refresh
// the tracklist: only when a non-empty MBID different from the stored one is
// supplied.
func NeedsReenrichment(current domain.Record, update domain.UpdateRecord) bool {
	if update.MBID == nil || *update.MBID == "" {
		return false
	}
	return *update.MBID != current.MBID
}
