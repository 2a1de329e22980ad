package resolve

import (
	"context"

	"github.com/relata-hq/location-cli/internal/gazetteer"
	"github.com/relata-hq/location-cli/pkg/geodb"
	"github.com/relata-hq/location-cli/pkg/nominatim"
)

// NewGeoDBTier wraps the metered GeoDB Cities client as the primary tier.
func NewGeoDBTier(client *geodb.Client) Tier {
	return &geodbTier{client: client}
}

type geodbTier struct {
	client *geodb.Client
}

func (t *geodbTier) Name() string    { return "geodb" }
func (t *geodbTier) Available() bool { return t.client != nil && t.client.Configured() }
func (t *geodbTier) Network() bool   { return true }

func (t *geodbTier) Resolve(ctx context.Context, q Query) (TierResult, error) {
	results, err := t.client.Search(ctx, q.Text, q.Language, q.Limit, q.Page*q.Limit)
	if err != nil {
		return TierResult{}, err
	}
	return TierResult{Candidates: results}, nil
}

// NewNominatimTier wraps the public Nominatim client as the keyless
// secondary tier.
func NewNominatimTier(client *nominatim.Client) Tier {
	return &nominatimTier{client: client}
}

type nominatimTier struct {
	client *nominatim.Client
}

func (t *nominatimTier) Name() string    { return "nominatim" }
func (t *nominatimTier) Available() bool { return t.client != nil }
func (t *nominatimTier) Network() bool   { return true }

func (t *nominatimTier) Resolve(ctx context.Context, q Query) (TierResult, error) {
	results, err := t.client.Search(ctx, q.Text, q.Language, q.Limit, q.Page)
	if err != nil {
		return TierResult{}, err
	}
	return TierResult{Candidates: results}, nil
}

// NewGazetteerTier wraps the embedded fuzzy index as the offline fallback.
func NewGazetteerTier(ix *gazetteer.Index) Tier {
	return &gazetteerTier{ix: ix}
}

type gazetteerTier struct {
	ix *gazetteer.Index
}

func (t *gazetteerTier) Name() string    { return "gazetteer" }
func (t *gazetteerTier) Available() bool { return t.ix != nil }
func (t *gazetteerTier) Network() bool   { return false }

func (t *gazetteerTier) Resolve(_ context.Context, q Query) (TierResult, error) {
	// The index has no cursor, so paging is over-fetch and slice.
	results := t.ix.Search(q.Text, (q.Page+1)*q.Limit)
	start := q.Page * q.Limit
	if start >= len(results) {
		return TierResult{Skipped: true}, nil
	}
	return TierResult{Candidates: results[start:]}, nil
}

// NewStaticTier returns the last-resort tier backed by a fixed list of
// major cities. It matches by case-insensitive substring only and never
// fails.
func NewStaticTier() Tier {
	return &staticTier{}
}

type staticTier struct{}

func (t *staticTier) Name() string    { return "static" }
func (t *staticTier) Available() bool { return true }
func (t *staticTier) Network() bool   { return false }

func (t *staticTier) Resolve(_ context.Context, q Query) (TierResult, error) {
	if q.Page > 0 {
		return TierResult{Skipped: true}, nil
	}
	return TierResult{Candidates: staticMatches(q.Text)}, nil
}
