package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"golang.org/x/oauth2"

	"runtopsy/internal/auth"
	"runtopsy/internal/store"
	"runtopsy/internal/strava"
)

// Metadata keys of the Strava importer
const (
	metaRefreshToken  = "refresh_token"
	metaLastStartTime = "last_activity_start_time"
	metaAthleteID     = "athlete_id"
)

// StravaOptions configures a StravaImporter
type StravaOptions struct {
	ClientID     string
	ClientSecret string
	// Provider runs the interactive authorization. Without one the
	// importer can only use a stored refresh token.
	Provider auth.AuthorizationProvider

	// Endpoint overrides, empty means Strava
	BaseURL  string
	AuthURL  string
	TokenURL string

	RateLimiter *strava.RateLimiter
}

// StravaImporter downloads activities and their streams from Strava.
// Raw responses are kept under <configDir>/strava so the store can be
// rebuilt offline.
type StravaImporter struct {
	opts          StravaOptions
	activitiesDir string
	streamsDir    string
	meta          *store.MetadataStore
	store         *store.Store
	oauth         *oauth2.Config

	client *strava.Client
}

// NewStravaImporter keeps its raw cache and metadata under <configDir>/strava
func NewStravaImporter(configDir string, st *store.Store, opts StravaOptions) *StravaImporter {
	dir := filepath.Join(configDir, "strava")
	return &StravaImporter{
		opts:          opts,
		activitiesDir: filepath.Join(dir, "activities"),
		streamsDir:    filepath.Join(dir, "streams"),
		meta:          store.NewMetadataStore(filepath.Join(dir, "metadata.json")),
		store:         st,
		oauth: auth.NewOAuthConfig(auth.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			AuthURL:      opts.AuthURL,
			TokenURL:     opts.TokenURL,
		}),
	}
}

func (s *StravaImporter) Name() string { return "strava" }

// Import reconciles the raw cache, then fetches new activities and any
// missing streams
func (s *StravaImporter) Import(ctx context.Context, log *slog.Logger) (Result, error) {
	if s.opts.ClientID == "" || s.opts.ClientSecret == "" {
		return Result{}, &ConfigError{Importer: s.Name(), Msg: "client_id and client_secret are required"}
	}

	res, err := s.Reconcile(ctx, log)
	if err != nil {
		return res, err
	}

	client, err := s.ensureClient(ctx, log)
	if err != nil {
		return res, err
	}

	r, err := s.requestActivities(ctx, log, client)
	res.add(r)
	if err != nil {
		return res, fmt.Errorf("requesting activities: %w", err)
	}

	r, err = s.backfillStreams(ctx, log, client)
	res.add(r)
	if err != nil {
		return res, fmt.Errorf("requesting streams: %w", err)
	}
	return res, nil
}

// Reconcile loads raw activities and streams that are on disk but not yet
// in the store
func (s *StravaImporter) Reconcile(ctx context.Context, log *slog.Logger) (Result, error) {
	res := Result{Importer: s.Name()}

	ids, err := store.ListJSONIDs(s.activitiesDir)
	if err != nil {
		return res, err
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if s.store.Has(stravaActivityID(id)) {
			continue
		}
		var a strava.Activity
		if _, err := store.ReadJSON(filepath.Join(s.activitiesDir, id+".json"), &a); err != nil {
			log.Warn("skipping raw activity", "id", id, "err", err)
			res.Failed++
			continue
		}
		if _, err := s.store.Upsert(extractStravaActivity(a)); err != nil {
			return res, err
		}
		res.Upserted++
	}

	ids, err = store.ListJSONIDs(s.streamsDir)
	if err != nil {
		return res, err
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if s.store.HasRecords(stravaActivityID(id)) {
			continue
		}
		var streams strava.Streams
		if _, err := store.ReadJSON(filepath.Join(s.streamsDir, id+".json"), &streams); err != nil {
			log.Warn("skipping raw streams", "id", id, "err", err)
			res.Failed++
			continue
		}
		if err := s.store.PutRecords(stravaActivityID(id), extractStravaRecords(&streams)); err != nil {
			return res, err
		}
		res.Records++
	}

	if res.Upserted > 0 || res.Records > 0 {
		log.Info("reconciled strava cache", "activities", res.Upserted, "records", res.Records)
	}
	return res, nil
}

// ensureClient returns the client of an earlier run, or authenticates:
// first with the stored refresh token, then interactively
func (s *StravaImporter) ensureClient(ctx context.Context, log *slog.Logger) (*strava.Client, error) {
	if s.client != nil {
		return s.client, nil
	}

	meta, err := s.meta.Read()
	if err != nil {
		return nil, err
	}

	// token refreshes outlive the run that created the client
	tokenCtx := context.WithoutCancel(ctx)

	var ts *auth.TokenSource
	if refresh := meta.String(metaRefreshToken); refresh != "" {
		ts = auth.NewTokenSource(tokenCtx, s.oauth, &oauth2.Token{RefreshToken: refresh}, s.persistRefreshToken)
		_, err := ts.Token()
		var retrieveErr *oauth2.RetrieveError
		switch {
		case errors.As(err, &retrieveErr) && s.opts.Provider != nil:
			log.Warn("stored refresh token rejected, authorizing again", "code", retrieveErr.ErrorCode)
			ts = nil
		case errors.As(err, &retrieveErr):
			return nil, &ConfigError{Importer: s.Name(), Msg: fmt.Sprintf("stored refresh token rejected (%s) and no interactive authorization available", retrieveErr.ErrorCode)}
		case err != nil:
			return nil, fmt.Errorf("refreshing access token: %w", err)
		}
	}

	if ts == nil {
		if s.opts.Provider == nil {
			return nil, &ConfigError{Importer: s.Name(), Msg: "not authorized and no interactive authorization available"}
		}
		log.Info("authorizing with strava")
		result, err := auth.Authenticate(ctx, s.oauth, s.opts.Provider)
		if err != nil {
			return nil, fmt.Errorf("authentication: %w", err)
		}
		if _, err := s.meta.Update(map[string]any{
			metaRefreshToken: result.Token.RefreshToken,
			metaAthleteID:    result.AthleteID,
		}); err != nil {
			return nil, fmt.Errorf("saving refresh token: %w", err)
		}
		log.Info("authorized", "athlete", result.AthleteID)
		ts = auth.NewTokenSource(tokenCtx, s.oauth, result.Token, s.persistRefreshToken)
	}

	var opts []strava.Option
	if s.opts.BaseURL != "" {
		opts = append(opts, strava.WithBaseURL(s.opts.BaseURL))
	}
	if s.opts.RateLimiter != nil {
		opts = append(opts, strava.WithRateLimiter(s.opts.RateLimiter))
	}
	s.client = strava.NewClient(tokenCtx, ts, opts...)
	return s.client, nil
}

// persistRefreshToken stores a rotated refresh token
func (s *StravaImporter) persistRefreshToken(tok *oauth2.Token) error {
	meta, err := s.meta.Read()
	if err != nil {
		return err
	}
	if tok.RefreshToken == "" || tok.RefreshToken == meta.String(metaRefreshToken) {
		return nil
	}
	_, err = s.meta.Update(map[string]any{metaRefreshToken: tok.RefreshToken})
	return err
}

// requestActivities pages through activities newer than the watermark
func (s *StravaImporter) requestActivities(ctx context.Context, log *slog.Logger, client *strava.Client) (Result, error) {
	var res Result

	meta, err := s.meta.Read()
	if err != nil {
		return res, err
	}
	after, _ := meta.Int64(metaLastStartTime)
	log.Info("requesting activities", "after", after)

	for page := 1; ; page++ {
		raws, err := client.ListActivitiesRaw(ctx, after, page, strava.MaxPerPage)
		if err != nil {
			return res, fmt.Errorf("page %d: %w", page, err)
		}
		log.Info("received activities", "page", page, "count", len(raws))

		var latest int64
		for _, raw := range raws {
			var a strava.Activity
			if err := json.Unmarshal(raw, &a); err != nil {
				return res, fmt.Errorf("decoding activity: %w", err)
			}
			if a.ID == 0 {
				return res, errors.New("activity without id in response")
			}
			id := strconv.FormatInt(a.ID, 10)
			if err := store.WriteFileAtomic(filepath.Join(s.activitiesDir, id+".json"), raw); err != nil {
				return res, err
			}
			changed, err := s.store.Upsert(extractStravaActivity(a))
			if err != nil {
				return res, err
			}
			if changed {
				res.Upserted++
			} else {
				res.Unchanged++
			}
			if ts := a.StartDate.Unix(); ts > latest {
				latest = ts
			}
		}
		if len(raws) > 0 {
			if err := s.advanceWatermark(latest); err != nil {
				return res, err
			}
		}

		if len(raws) != strava.MaxPerPage {
			return res, nil
		}
	}
}

// advanceWatermark moves last_activity_start_time forward only
func (s *StravaImporter) advanceWatermark(latest int64) error {
	meta, err := s.meta.Read()
	if err != nil {
		return err
	}
	if prev, ok := meta.Int64(metaLastStartTime); ok && prev >= latest {
		return nil
	}
	_, err = s.meta.Update(map[string]any{metaLastStartTime: latest})
	return err
}

// backfillStreams fetches streams for every raw activity that has none.
// Progress is tracked by file presence so an interrupted backfill resumes
// where it stopped.
func (s *StravaImporter) backfillStreams(ctx context.Context, log *slog.Logger, client *strava.Client) (Result, error) {
	var res Result

	missing, err := s.missingStreams()
	if err != nil {
		return res, err
	}
	for i, id := range missing {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		log.Info("requesting streams", "activity", id, "progress", fmt.Sprintf("%d of %d", i+1, len(missing)))

		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			log.Warn("skipping raw activity with non-numeric id", "id", id)
			continue
		}
		raw, err := client.GetStreamsRaw(ctx, n)
		if err != nil {
			return res, err
		}
		if err := store.WriteFileAtomic(filepath.Join(s.streamsDir, id+".json"), raw); err != nil {
			return res, err
		}

		var streams strava.Streams
		if err := json.Unmarshal(raw, &streams); err != nil {
			return res, fmt.Errorf("decoding streams for %s: %w", id, err)
		}
		if err := s.store.PutRecords(stravaActivityID(id), extractStravaRecords(&streams)); err != nil {
			return res, err
		}
		res.Records++
	}
	if len(missing) > 0 {
		short, daily := client.RateLimitStatus()
		log.Debug("rate limit remaining", "short", short, "daily", daily)
	}
	return res, nil
}

// missingStreams lists raw activity ids without a raw stream file, sorted
func (s *StravaImporter) missingStreams() ([]string, error) {
	activities, err := store.ListJSONIDs(s.activitiesDir)
	if err != nil {
		return nil, err
	}
	streams, err := store.ListJSONIDs(s.streamsDir)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(streams))
	for _, id := range streams {
		have[id] = true
	}

	var missing []string
	for _, id := range activities {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
