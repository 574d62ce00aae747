package domain

import "math"

const (
	DefaultPage  = 1
	DefaultLimit = 20
)

type ListQuery struct {
	Term     string `json:"term,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	Format   string `json:"format,omitempty"`
	Category string `json:"category,omitempty"`
	Page     int    `json:"page,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Resolve fills defaults and drops format/category values that are not
// registered, so two queries with the same effective filters compare equal.
func (q ListQuery) Resolve() (ListQuery, error) {
	if q.Page < 0 || q.Limit < 0 {
		return q, BadRequest("page and limit must be positive")
	}
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return q, BadRequest("page is out of range")
	}
	if !Format(q.Format).Valid() {
		q.Format = ""
	}
	if !Category(q.Category).Valid() {
		q.Category = ""
	}
	return q, nil
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

type Field string

const (
	FieldArtist   Field = "artist"
	FieldAlbum    Field = "album"
	FieldFormat   Field = "format"
	FieldCategory Field = "category"
)

type Match int

const (
	MatchEquals Match = iota
	// MatchContains is a case-insensitive substring match.
	MatchContains
)

type Condition struct {
	Field Field
	Match Match
	Value string
}

// RecordFilter selects records matching every AllOf condition and, when
// AnyOf is non-empty, at least one AnyOf condition.
type RecordFilter struct {
	AnyOf []Condition
	AllOf []Condition
}

func (f RecordFilter) Empty() bool {
	return len(f.AnyOf) == 0 && len(f.AllOf) == 0
}

type Pagination struct {
	Page         int `json:"page"`
	Limit        int `json:"limit"`
	TotalPages   int `json:"totalPages"`
	TotalRecords int `json:"totalRecords"`
}

func NewPagination(page, limit, total int) Pagination {
	return Pagination{
		Page:         page,
		Limit:        limit,
		TotalPages:   (total + limit - 1) / limit,
		TotalRecords: total,
	}
}

type RecordPage struct {
	Records    []Record   `json:"records"`
	Pagination Pagination `json:"pagination"`
}
