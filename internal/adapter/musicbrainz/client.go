// Package musicbrainz looks up release tracklists on the MusicBrainz web service.
package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL   = "https://musicbrainz.org"
	DefaultUserAgent = "record-catalog/1.0 ( ops@record-catalog.local )"
	DefaultTimeout   = 10 * time.Second
)

var ErrReleaseNotFound = errors.New("release not found")

type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.Timeout},
	}
}

type releaseResponse struct {
	Media []struct {
		Position int `json:"position"`
		Tracks   []struct {
			Position int    `json:"position"`
			Title    string `json:"title"`
		} `json:"tracks"`
	} `json:"media"`
}

// FetchTracklist returns the track titles of every medium of the release in
// the order MusicBrainz lists them.
func (c *Client) FetchTracklist(ctx context.Context, mbid string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/ws/2/release/%s?inc=recordings&fmt=json", c.baseURL, url.PathEscape(mbid))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request release %s: %w", mbid, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrReleaseNotFound, mbid)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("musicbrainz returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var release releaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("decode release %s: %w", mbid, err)
	}

	tracklist := []string{}
	for _, medium := range release.Media {
		for _, track := range medium.Tracks {
			tracklist = append(tracklist, track.Title)
		}
	}
	return tracklist, nil
}
