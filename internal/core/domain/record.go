package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// MaxQuantity is the largest stock a record can hold. It fits the INT
// quantity column on every store driver.
const MaxQuantity = math.MaxInt32

type Format string

const (
	FormatVinyl    Format = "VINYL"
	FormatCD       Format = "CD"
	FormatCassette Format = "CASSETTE"
	FormatDigital  Format = "DIGITAL"
)

var formats = []Format{FormatVinyl, FormatCD, FormatCassette, FormatDigital}

// Valid reports whether f is one of the registered formats.
func (f Format) Valid() bool {
	for _, v := range formats {
		if f == v {
			return true
		}
	}
	return false
}

type Category string

const (
	CategoryRock        Category = "ROCK"
	CategoryJazz        Category = "JAZZ"
	CategoryHipHop      Category = "HIPHOP"
	CategoryClassical   Category = "CLASSICAL"
	CategoryPop         Category = "POP"
	CategoryAlternative Category = "ALTERNATIVE"
	CategoryIndie       Category = "INDIE"
)

var categories = []Category{
	CategoryRock, CategoryJazz, CategoryHipHop, CategoryClassical,
	CategoryPop, CategoryAlternative, CategoryIndie,
}

// Valid reports whether c is one of the registered categories.
func (c Category) Valid() bool {
	for _, v := range categories {
		if c == v {
			return true
		}
	}
	return false
}

type Record struct {
	ID        string          `json:"id"`
	Artist    string          `json:"artist"`
	Album     string          `json:"album"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"qty"`
	Format    Format          `json:"format"`
	Category  Category        `json:"category"`
	MBID      string          `json:"mbid,omitempty"`
	Tracklist []string        `json:"tracklist"`
	Version   int             `json:"version"` // optimistic locking
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreateRecord is the payload for a new catalog entry.
type CreateRecord struct {
	Artist   string          `json:"artist"`
	Album    string          `json:"album"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"qty"`
	Format   Format          `json:"format"`
	Category Category        `json:"category"`
	MBID     string          `json:"mbid,omitempty"`
}

func (c CreateRecord) Validate() error {
	switch {
	case c.Artist == "" || c.Album == "":
		return BadRequest("artist and album are required")
	case c.Price.IsNegative():
		return BadRequest("price must not be negative")
	case c.Quantity < 0:
		return BadRequest("qty must not be negative")
	case c.Quantity > MaxQuantity:
		return BadRequest("qty is out of range")
	case !c.Format.Valid():
		return BadRequest("unknown format " + string(c.Format))
	case !c.Category.Valid():
		return BadRequest("unknown category " + string(c.Category))
	}
	return nil
}

// UpdateRecord carries a partial update; nil fields are left untouched.
type UpdateRecord struct {
	Artist   *string          `json:"artist,omitempty"`
	Album    *string          `json:"album,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Quantity *int             `json:"qty,omitempty"`
	Format   *Format          `json:"format,omitempty"`
	Category *Category        `json:"category,omitempty"`
	MBID     *string          `json:"mbid,omitempty"`
}

func (u UpdateRecord) Validate() error {
	switch {
	case u.Artist != nil && *u.Artist == "":
		return BadRequest("artist must not be empty")
	case u.Album != nil && *u.Album == "":
		return BadRequest("album must not be empty")
	case u.Price != nil && u.Price.IsNegative():
		return BadRequest("price must not be negative")
	case u.Quantity != nil && *u.Quantity < 0:
		return BadRequest("qty must not be negative")
	case u.Quantity != nil && *u.Quantity > MaxQuantity:
		return BadRequest("qty is out of range")
	case u.Format != nil && !u.Format.Valid():
		return BadRequest("unknown format " + string(*u.Format))
	case u.Category != nil && !u.Category.Valid():
		return BadRequest("unknown category " + string(*u.Category))
	}
	return nil
}

// Apply copies every provided field onto r. Tracklist is not part of the
// payload; it only changes through enrichment.
func (u UpdateRecord) Apply(r *Record) {
	if u.Artist != nil {
		r.Artist = *u.Artist
	}
	if u.Album != nil {
		r.Album = *u.Album
	}
	if u.Price != nil {
		r.Price = *u.Price
	}
	if u.Quantity != nil {
		r.Quantity = *u.Quantity
	}
	if u.Format != nil {
		r.Format = *u.Format
	}
	if u.Category != nil {
		r.Category = *u.Category
	}
	if u.MBID != nil {
		r.MBID = *u.MBID
	}
}
