package tasks

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/discover/internal/models"
	"github.com/desertthunder/discover/internal/services"
	"github.com/desertthunder/discover/internal/shared"
	"github.com/zmb3/spotify/v2"
)

// FailurePolicy decides what a catalog failure does to a run.
type FailurePolicy int

const (
	// SkipFailures logs the failure and continues with whatever the stage produced.
	SkipFailures FailurePolicy = iota
	// AbortOnFailure stops the run and returns the failure.
	AbortOnFailure
)

func (p FailurePolicy) String() string {
	if p == AbortOnFailure {
		return "abort"
	}
	return "skip"
}

// ParseFailurePolicy parses "skip" or "abort"; empty means skip.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "skip":
		return SkipFailures, nil
	case "abort":
		return AbortOnFailure, nil
	}
	return SkipFailures, fmt.Errorf("%w: failure policy %q", shared.ErrInvalidArgument, s)
}

// RunRecorder persists finished runs. Recording errors are logged and never fail a run.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.RecallRun, artists []models.Artist, tracks []models.RunTrack) error
}

// RecallResult is the outcome of a track recall.
type RecallResult struct {
	Tracks      []spotify.FullTrack `json:"tracks"`
	TrackIDs    []string            `json:"track_ids,omitempty"`    // RandomFill only
	ArtistNames []string            `json:"artist_names,omitempty"` // RandomFill only, comma-joined per track
	Artists     []models.Artist     `json:"artists"`
	Candidates  int                 `json:"candidates"`
	Searched    int                 `json:"searched"`
	RunID       string              `json:"run_id,omitempty"`
	Message     string              `json:"message"`
}

// RecallEngine runs the recall pipeline against an account and a catalog.
//
// The engine holds no per-run state; each call draws a fresh generator from its factory.
type RecallEngine struct {
	account         services.Account
	catalog         services.Catalog
	logger          *log.Logger
	policy          FailurePolicy
	limits          ArtistLimits
	discoverArtists int
	minSimilarity   float64
	newRand         func() *rand.Rand
	recorder        RunRecorder
}

// EngineOption configures a [RecallEngine].
type EngineOption func(*RecallEngine)

// WithLogger sets the engine logger.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *RecallEngine) { e.logger = l }
}

// WithFailurePolicy sets how catalog failures are handled.
func WithFailurePolicy(p FailurePolicy) EngineOption {
	return func(e *RecallEngine) { e.policy = p }
}

// WithArtistLimits sets the pagination limits used by artist recall.
func WithArtistLimits(l ArtistLimits) EngineOption {
	return func(e *RecallEngine) { e.limits = l.withDefaults() }
}

// WithDiscoverArtists sets how many recalled artists RecallAllTracks expands.
func WithDiscoverArtists(n int) EngineOption {
	return func(e *RecallEngine) {
		if n > 0 {
			e.discoverArtists = n
		}
	}
}

// WithMinTitleSimilarity drops search hits whose name scores below threshold against the
// candidate title. Zero keeps the first hit unconditionally.
func WithMinTitleSimilarity(threshold float64) EngineOption {
	return func(e *RecallEngine) { e.minSimilarity = threshold }
}

// WithRandSource sets the generator factory called once per run.
func WithRandSource(fn func() *rand.Rand) EngineOption {
	return func(e *RecallEngine) { e.newRand = fn }
}

// WithSeed makes every run use a generator seeded with seed. Zero keeps clock seeding.
func WithSeed(seed uint64) EngineOption {
	return func(e *RecallEngine) {
		if seed != 0 {
			e.newRand = func() *rand.Rand { return shared.NewRand(seed) }
		}
	}
}

// WithRecorder persists every finished run through r.
func WithRecorder(r RunRecorder) EngineOption {
	return func(e *RecallEngine) { e.recorder = r }
}

// NewRecallEngine creates a new engine over account and catalog.
func NewRecallEngine(account services.Account, catalog services.Catalog, opts ...EngineOption) *RecallEngine {
	e := &RecallEngine{
		account:         account,
		catalog:         catalog,
		logger:          shared.NewLogger(io.Discard),
		limits:          DefaultArtistLimits(),
		discoverArtists: 3,
		newRand:         func() *rand.Rand { return shared.NewRand(0) },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewRecallEngineFromConfig applies the [recall] and [catalog] config sections.
func NewRecallEngineFromConfig(account services.Account, catalog services.Catalog, cfg *shared.Config, opts ...EngineOption) (*RecallEngine, error) {
	policy, err := ParseFailurePolicy(cfg.Catalog.FailurePolicy)
	if err != nil {
		return nil, err
	}

	base := []EngineOption{
		WithFailurePolicy(policy),
		WithArtistLimits(ArtistLimits{
			Top:         cfg.Recall.TopLimit,
			Recent:      cfg.Recall.RecentLimit,
			Playlist:    cfg.Recall.PlaylistLimit,
			Album:       cfg.Recall.AlbumLimit,
			SavedTracks: cfg.Recall.SavedTracksLimit,
		}),
		WithDiscoverArtists(cfg.Recall.DiscoverArtists),
		WithMinTitleSimilarity(cfg.Recall.MinTitleSimilarity),
		WithSeed(cfg.Recall.Seed),
	}
	return NewRecallEngine(account, catalog, append(base, opts...)...), nil
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func stepper(progress chan<- ProgressUpdate, phase Phase) services.StepFunc {
	if progress == nil {
		return nil
	}
	return func(done, total int) { sendProgress(progress, catalogUpdate(phase, done, total)) }
}

// stageErr applies the failure policy to a catalog stage outcome.
// Cancellation always aborts.
func (e *RecallEngine) stageErr(ctx context.Context, stage string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err == nil {
		return nil
	}
	if e.policy == AbortOnFailure {
		return fmt.Errorf("%s: %w", stage, err)
	}
	e.logger.Warn("catalog stage degraded, continuing", "stage", stage, "err", err)
	return nil
}

// candidates expands artist names into catalog tracks: names → artist IDs → albums → tracks.
func (e *RecallEngine) candidates(ctx context.Context, names []string, rng *rand.Rand, progress chan<- ProgressUpdate) ([]models.CandidateTrack, error) {
	ids := e.catalog.ArtistIDs(ctx, names, stepper(progress, ResolveArtists))
	if err := e.stageErr(ctx, "artist lookup", ids.Err); err != nil {
		return nil, err
	}

	albums := e.catalog.AlbumIDs(ctx, ids.Data, stepper(progress, FetchAlbums))
	if err := e.stageErr(ctx, "discography lookup", albums.Err); err != nil {
		return nil, err
	}
	albumIDs := []string{}
	if albums.Data != nil {
		albumIDs = albums.Data.AlbumIDs()
	}

	tracks := e.catalog.Tracks(ctx, albumIDs, rng, stepper(progress, ExpandTracks))
	if err := e.stageErr(ctx, "album lookup", tracks.Err); err != nil {
		return nil, err
	}

	e.logger.Info("expanded candidates", "artists", len(names), "catalog_artists", len(ids.Data), "albums", len(albumIDs), "candidates", len(tracks.Data))
	return tracks.Data, nil
}

// titleMatches reports whether hit is close enough to title under the similarity gate.
func (e *RecallEngine) titleMatches(title string, hit spotify.FullTrack) bool {
	if e.minSimilarity <= 0 {
		return true
	}
	score := strutil.Similarity(shared.NormalizeTitle(title), shared.NormalizeTitle(hit.Name), metrics.NewJaroWinkler())
	return score >= e.minSimilarity
}

// search resolves one title to its first Spotify hit. Failed searches count as no hit.
func (e *RecallEngine) search(ctx context.Context, title string) (*spotify.FullTrack, error) {
	res := e.account.SearchTracks(ctx, title, 1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !res.Success() {
		e.logger.Warn("search failed, skipping title", "title", title, "err", res.Err)
		return nil, nil
	}
	if len(res.Data) == 0 {
		return nil, nil
	}

	hit := res.Data[0]
	if !e.titleMatches(title, hit) {
		e.logger.Debug("search hit below similarity threshold", "title", title, "hit", hit.Name)
		return nil, nil
	}
	return &hit, nil
}

// RecallAllTracks recalls artists, expands the first few through the catalog, and resolves
// every candidate title on Spotify. The result has no duplicate track IDs and is shuffled.
//
// Empty stages are not errors: the result is Ok even with zero tracks. Fail is returned only
// for cancellation, or a catalog failure under [AbortOnFailure].
func (e *RecallEngine) RecallAllTracks(ctx context.Context, progress chan<- ProgressUpdate) services.Result[*RecallResult] {
	rng := e.newRand()

	recalled := e.RecallArtists(ctx, e.limits, progress)
	if !recalled.Success() {
		return services.Fail[*RecallResult](recalled.Err, "Failed to recall tracks")
	}
	artists := recalled.Data

	names := models.ArtistNames(artists)
	if len(names) > e.discoverArtists {
		names = names[:e.discoverArtists]
	}

	cands, err := e.candidates(ctx, names, rng, progress)
	if err != nil {
		return services.Fail[*RecallResult](err, "Failed to recall tracks")
	}

	titles := models.Titles(cands)
	shared.Shuffle(rng, titles)

	tracks := []spotify.FullTrack{}
	seen := make(map[spotify.ID]bool)
	for i, title := range titles {
		hit, err := e.search(ctx, title)
		if err != nil {
			return services.Fail[*RecallResult](err, "Failed to recall tracks")
		}
		sendProgress(progress, searchUpdate(i+1, len(titles), title, hit))
		if hit == nil || seen[hit.ID] {
			continue
		}
		seen[hit.ID] = true
		tracks = append(tracks, *hit)
	}
	shared.Shuffle(rng, tracks)

	result := &RecallResult{
		Tracks:     tracks,
		Artists:    artists,
		Candidates: len(cands),
		Searched:   len(titles),
		Message:    fmt.Sprintf("Successfully recalled %d tracks from %d artists", len(tracks), len(names)),
	}
	e.record(ctx, models.RunTracks, result)

	e.logger.Info("recalled tracks", "artists", len(names), "candidates", len(cands), "tracks", len(tracks))
	sendProgress(progress, completeUpdate(result.Message, result))
	return services.Ok(result, result.Message)
}

// RandomFill recalls artists, expands all of them through the catalog, samples numTracks
// candidates, and resolves each sampled title on Spotify.
//
// Exactly min(numTracks, candidates) searches are made. Results keep sampling order and may
// contain duplicates. TrackIDs and ArtistNames are parallel to Tracks.
func (e *RecallEngine) RandomFill(ctx context.Context, numTracks int, progress chan<- ProgressUpdate) services.Result[*RecallResult] {
	rng := e.newRand()

	recalled := e.RecallArtists(ctx, e.limits, progress)
	if !recalled.Success() {
		return services.Fail[*RecallResult](recalled.Err, "Failed to fill tracks")
	}
	artists := recalled.Data

	cands, err := e.candidates(ctx, models.ArtistNames(artists), rng, progress)
	if err != nil {
		return services.Fail[*RecallResult](err, "Failed to fill tracks")
	}

	sample := shared.Sample(rng, cands, numTracks)

	result := &RecallResult{
		Tracks:      []spotify.FullTrack{},
		TrackIDs:    []string{},
		ArtistNames: []string{},
		Artists:     artists,
		Candidates:  len(cands),
		Searched:    len(sample),
	}
	for i, cand := range sample {
		hit, err := e.search(ctx, cand.Title)
		if err != nil {
			return services.Fail[*RecallResult](err, "Failed to fill tracks")
		}
		sendProgress(progress, searchUpdate(i+1, len(sample), cand.Title, hit))
		if hit == nil {
			continue
		}
		result.Tracks = append(result.Tracks, *hit)
		result.TrackIDs = append(result.TrackIDs, string(hit.ID))
		result.ArtistNames = append(result.ArtistNames, joinArtists(hit.Artists))
	}
	result.Message = fmt.Sprintf("Successfully filled %d of %d tracks", len(result.Tracks), len(sample))
	e.record(ctx, models.RunFill, result)

	e.logger.Info("random fill", "requested", numTracks, "candidates", len(cands), "sampled", len(sample), "tracks", len(result.Tracks))
	sendProgress(progress, completeUpdate(result.Message, result))
	return services.Ok(result, result.Message)
}

func joinArtists(artists []spotify.SimpleArtist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// RunTracks converts resolved tracks into their persisted form, in order.
func RunTracks(tracks []spotify.FullTrack) []models.RunTrack {
	out := make([]models.RunTrack, len(tracks))
	for i, t := range tracks {
		var image string
		if len(t.Album.Images) > 0 {
			image = t.Album.Images[0].URL
		}
		out[i] = models.RunTrack{
			Position:   i,
			SpotifyID:  string(t.ID),
			Title:      t.Name,
			Artists:    joinArtists(t.Artists),
			Album:      t.Album.Name,
			URI:        string(t.URI),
			DurationMS: int(t.Duration),
			ImageURL:   image,
		}
	}
	return out
}

// record persists result when a recorder is configured, setting RunID on success.
func (e *RecallEngine) record(ctx context.Context, kind models.RunKind, result *RecallResult) {
	if e.recorder == nil {
		return
	}

	run := models.NewRecallRun(kind, result.Message)
	run.SetArtistCount(len(result.Artists))
	run.SetCandidateCount(result.Candidates)
	run.SetTrackCount(len(result.Tracks))

	if err := e.recorder.RecordRun(ctx, run, result.Artists, RunTracks(result.Tracks)); err != nil {
		e.logger.Warn("failed to record run", "kind", kind, "err", err)
		return
	}
	result.RunID = run.ID()
}
