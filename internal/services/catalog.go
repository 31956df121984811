// TiVo music metadata catalog client
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discover/internal/models"
	"github.com/desertthunder/discover/internal/shared"
)

// DefaultCatalogURL is the TiVo music API root.
const DefaultCatalogURL = "https://tivomusicapi-staging-elb.digitalsmiths.net/sd/tivomusicapi/taps/v3"

const (
	discographyLimit = 10
	albumLimit       = 10
)

// catalogID accepts IDs encoded as either JSON strings or numbers.
type catalogID string

func (id *catalogID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = catalogID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = catalogID(n.String())
	return nil
}

type idHit struct {
	ID catalogID `json:"id"`
}

type albumHit struct {
	ID     catalogID               `json:"id"`
	Tracks []models.CandidateTrack `json:"tracks"`
}

type hits[T any] struct {
	Hits []T `json:"hits"`
}

// CatalogService queries the secondary catalog through a bounded, throttled [shared.Pool].
type CatalogService struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	pool       *shared.Pool
	logger     *log.Logger
}

// CatalogOption configures a [CatalogService].
type CatalogOption func(*CatalogService)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) CatalogOption {
	return func(s *CatalogService) { s.httpClient = c }
}

// WithPool sets the pool used for per-element requests.
func WithPool(p *shared.Pool) CatalogOption {
	return func(s *CatalogService) { s.pool = p }
}

// WithCatalogLogger sets the logger.
func WithCatalogLogger(l *log.Logger) CatalogOption {
	return func(s *CatalogService) { s.logger = l }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) CatalogOption {
	return func(s *CatalogService) { s.userAgent = ua }
}

// NewCatalogService creates a catalog client rooted at baseURL, defaulting to [DefaultCatalogURL].
func NewCatalogService(baseURL string, opts ...CatalogOption) *CatalogService {
	if baseURL == "" {
		baseURL = DefaultCatalogURL
	}

	s := &CatalogService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  "discover",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pool:       shared.NewPool(1, 0),
		logger:     shared.NewLogger(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewCatalogServiceFromConfig builds a client from the [catalog] config section.
func NewCatalogServiceFromConfig(cfg shared.CatalogConfig, logger *log.Logger) *CatalogService {
	opts := []CatalogOption{
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
		WithPool(shared.NewPool(cfg.Concurrency, cfg.RateLimit)),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, WithUserAgent(cfg.UserAgent))
	}
	if logger != nil {
		opts = append(opts, WithCatalogLogger(logger))
	}
	return NewCatalogService(cfg.BaseURL, opts...)
}

// APIResponse is a raw catalog response.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Get performs a GET request to path with params and returns the raw response regardless of status.
func (s *CatalogService) Get(ctx context.Context, path string, params url.Values) (*APIResponse, error) {
	resp, body, err := s.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}
	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}
	return apiResp, nil
}

func (s *CatalogService) get(ctx context.Context, path string, params url.Values) (*http.Response, []byte, error) {
	// spaces are encoded as "+" by url.Values
	fullURL := s.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, body, nil
}

// getHits performs a GET and decodes the body's hits array.
func getHits[T any](ctx context.Context, s *CatalogService, path string, params url.Values) ([]T, error) {
	resp, body, err := s.get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}

	var out hits[T]
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", path, err)
	}
	return out.Hits, nil
}

// runElements dispatches fetch for every key through the pool and joins element failures.
//
// The returned slice has one entry per key, in key order; ok is false where the element failed
// or produced nothing.
func runElements[T any](ctx context.Context, s *CatalogService, keys []string, onStep StepFunc, fetch func(context.Context, string) (T, bool, error)) ([]T, []bool, error) {
	type outcome struct {
		value T
		ok    bool
	}

	var onDone func(int)
	if onStep != nil {
		onDone = func(done int) { onStep(done, len(keys)) }
	}

	results, errs := shared.RunOrdered(ctx, s.pool, keys, func(ctx context.Context, key string) (outcome, error) {
		v, ok, err := fetch(ctx, key)
		return outcome{v, ok}, err
	}, onDone)

	values := make([]T, len(keys))
	oks := make([]bool, len(keys))
	var failures []error
	for i, r := range results {
		if errs[i] != nil {
			s.logger.Warn("catalog lookup failed", "key", keys[i], "err", errs[i])
			failures = append(failures, fmt.Errorf("%q: %w", keys[i], errs[i]))
			continue
		}
		values[i], oks[i] = r.value, r.ok
	}

	if err := ctx.Err(); err != nil {
		return values, oks, err
	}
	if len(failures) > 0 {
		return values, oks, fmt.Errorf("%w: %d of %d lookups failed: %w", shared.ErrCatalogRequest, len(failures), len(keys), errors.Join(failures...))
	}
	return values, oks, nil
}

// ArtistIDs resolves each artist name to the catalog ID of its first search hit.
// Names without hits are omitted; the rest keep input order.
func (s *CatalogService) ArtistIDs(ctx context.Context, names []string, onStep StepFunc) Result[[]string] {
	values, oks, err := runElements(ctx, s, names, onStep, func(ctx context.Context, name string) (string, bool, error) {
		params := url.Values{}
		params.Set("name", name)
		params.Set("limit", "1")
		params.Set("includeAllFields", "false")

		found, err := getHits[idHit](ctx, s, "search/artist", params)
		if err != nil || len(found) == 0 || found[0].ID == "" {
			return "", false, err
		}
		return string(found[0].ID), true, nil
	})

	ids := make([]string, 0, len(names))
	for i, v := range values {
		if oks[i] {
			ids = append(ids, v)
		}
	}

	s.logger.Info("resolved catalog artists", "requested", len(names), "found", len(ids))
	msg := fmt.Sprintf("Successfully retrieved catalog artists, total: %d artists", len(ids))
	if err != nil {
		return Partial(ids, err, "Failed to get some catalog artists")
	}
	return Ok(ids, msg)
}

// AlbumIDs maps each catalog artist ID to the IDs of its first two discography hits.
// Artists with no discography are absent from the map.
func (s *CatalogService) AlbumIDs(ctx context.Context, artistIDs []string, onStep StepFunc) Result[*models.AlbumMap] {
	values, oks, err := runElements(ctx, s, artistIDs, onStep, func(ctx context.Context, id string) ([]string, bool, error) {
		params := url.Values{}
		params.Set("nameId", id)
		params.Set("limit", strconv.Itoa(discographyLimit))
		params.Set("includeAllFields", "false")

		found, err := getHits[idHit](ctx, s, "lookup/discography", params)
		if err != nil {
			return nil, false, err
		}

		albums := make([]string, 0, models.MaxAlbumsPerArtist)
		for _, h := range found {
			if len(albums) == models.MaxAlbumsPerArtist {
				break
			}
			if h.ID != "" {
				albums = append(albums, string(h.ID))
			}
		}
		return albums, len(albums) > 0, nil
	})

	albums := models.NewAlbumMap()
	for i, v := range values {
		if oks[i] {
			albums.Set(artistIDs[i], v)
		}
	}

	s.logger.Info("resolved catalog albums", "artists", albums.Len(), "albums", len(albums.AlbumIDs()))
	if err != nil {
		return Partial(albums, err, "Failed to get some catalog albums")
	}
	return Ok(albums, fmt.Sprintf("Successfully retrieved catalog albums, total: %d artists", albums.Len()))
}

// Tracks expands each album into its track list, keeping at most ten per album chosen uniformly
// without replacement by rng. Output is album order, then sampled order within each album.
func (s *CatalogService) Tracks(ctx context.Context, albumIDs []string, rng *rand.Rand, onStep StepFunc) Result[[]models.CandidateTrack] {
	values, oks, err := runElements(ctx, s, albumIDs, onStep, func(ctx context.Context, id string) ([]models.CandidateTrack, bool, error) {
		params := url.Values{}
		params.Set("albumId", id)
		params.Set("limit", strconv.Itoa(albumLimit))

		found, err := getHits[albumHit](ctx, s, "lookup/album", params)
		if err != nil || len(found) == 0 || len(found[0].Tracks) == 0 {
			return nil, false, err
		}
		return found[0].Tracks, true, nil
	})

	if rng == nil {
		rng = shared.NewRand(0)
	}

	// sampling happens here, in album order, so a seeded rng gives the same output at any concurrency
	var tracks []models.CandidateTrack
	for i, v := range values {
		if !oks[i] {
			continue
		}
		if len(v) > models.MaxTracksPerAlbum {
			v = shared.Sample(rng, v, models.MaxTracksPerAlbum)
		}
		tracks = append(tracks, v...)
	}
	if tracks == nil {
		tracks = []models.CandidateTrack{}
	}

	s.logger.Info("expanded catalog albums", "albums", len(albumIDs), "tracks", len(tracks))
	if err != nil {
		return Partial(tracks, err, "Failed to get some catalog tracks")
	}
	return Ok(tracks, fmt.Sprintf("Successfully retrieved catalog tracks, total: %d tracks", len(tracks)))
}
