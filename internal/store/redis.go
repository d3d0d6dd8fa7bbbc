package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

const (
	reportsGeoKey      = "community_reports:geo"
	reportsCreatedKey  = "community_reports:created"
	reportMemberFormat = "community_report:%s"

	kmPerDegree = 111.32

	// maxGeoLatitude is the largest latitude Redis GEO commands accept (Web Mercator limit).
	maxGeoLatitude = 85.05112878
)

// RedisStore indexes reports with GEOADD and keeps each report body as a JSON
// value that expires after ttl. A sorted set by creation time drives pruning.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a store on an existing client. ttl <= 0 keeps bodies until pruned.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) SaveReport(ctx context.Context, r weather.CommunityReport) error {
	if err := checkReport(r); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report %s: %w", r.ID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		// Polar reports stay out of the geo index; they are found by creation time.
		if geoIndexable(r.Latitude) {
			pipe.GeoAdd(ctx, reportsGeoKey, &redis.GeoLocation{
				Name:      r.ID,
				Latitude:  r.Latitude,
				Longitude: r.Longitude,
			})
		}
		pipe.ZAdd(ctx, reportsCreatedKey, &redis.Z{
			Score:  float64(r.CreatedAt.UnixMilli()),
			Member: r.ID,
		})
		pipe.Set(ctx, fmt.Sprintf(reportMemberFormat, r.ID), data, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store report %s: %w", r.ID, err)
	}
	return nil
}

// RecentReports runs GEORADIUS over the circle enclosing the box, then filters
// exactly by box, window and status. Boxes reaching past the GEO latitude limit
// are served from the creation-time index instead.
func (s *RedisStore) RecentReports(ctx context.Context, q weather.ReportQuery) ([]weather.CommunityReport, error) {
	var (
		ids []string
		err error
	)
	if geoIndexable(q.Box.MinLat) && geoIndexable(q.Box.MaxLat) {
		ids, err = s.nearbyIDs(ctx, q.Box)
	} else {
		ids, err = s.createdSinceIDs(ctx, q.Since)
	}
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf(reportMemberFormat, id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}

	var reports []weather.CommunityReport
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Body expired; the index entry goes at the next prune.
			continue
		}
		var r weather.CommunityReport
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			log.Printf("ERROR: skipping report %s: %v", ids[i], err)
			continue
		}
		if q.Matches(r) {
			reports = append(reports, r)
		}
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].CreatedAt.Before(reports[j].CreatedAt)
	})
	return reports, nil
}

func (s *RedisStore) nearbyIDs(ctx context.Context, box weather.BoundingBox) ([]string, error) {
	lat, lon := box.Center()
	hits, err := s.client.GeoRadius(ctx, reportsGeoKey, lon, lat, &redis.GeoRadiusQuery{
		Radius: enclosingRadiusKm(box),
		Unit:   "km",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get nearby reports: %w", err)
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.Name
	}
	return ids, nil
}

func (s *RedisStore) createdSinceIDs(ctx context.Context, since time.Time) ([]string, error) {
	from := "-inf"
	if !since.IsZero() {
		from = strconv.FormatInt(since.UnixMilli(), 10)
	}
	ids, err := s.client.ZRangeByScore(ctx, reportsCreatedKey, &redis.ZRangeBy{
		Min: from,
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recent reports: %w", err)
	}
	return ids, nil
}

// GetReport returns a single report by ID.
func (s *RedisStore) GetReport(ctx context.Context, id string) (weather.CommunityReport, error) {
	raw, err := s.client.Get(ctx, fmt.Sprintf(reportMemberFormat, id)).Result()
	if err == redis.Nil {
		return weather.CommunityReport{}, ErrNotFound
	}
	if err != nil {
		return weather.CommunityReport{}, fmt.Errorf("failed to get report %s: %w", id, err)
	}
	var r weather.CommunityReport
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return weather.CommunityReport{}, fmt.Errorf("failed to unmarshal report %s: %w", id, err)
	}
	return r, nil
}

func (s *RedisStore) PruneReports(ctx context.Context, before time.Time) (int, error) {
	ids, err := s.client.ZRangeByScore(ctx, reportsCreatedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list expired reports: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	members := make([]interface{}, len(ids))
	keys := make([]string, len(ids))
	for i, id := range ids {
		members[i] = id
		keys[i] = fmt.Sprintf(reportMemberFormat, id)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, reportsGeoKey, members...)
		pipe.ZRem(ctx, reportsCreatedKey, members...)
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports: %w", err)
	}
	return len(ids), nil
}

// enclosingRadiusKm is the half-diagonal of the box, with a small margin for
// the spherical approximation.
func enclosingRadiusKm(b weather.BoundingBox) float64 {
	lat, _ := b.Center()
	dLat := (b.MaxLat - b.MinLat) / 2 * kmPerDegree
	dLon := (b.MaxLon - b.MinLon) / 2 * kmPerDegree * math.Cos(lat*math.Pi/180)
	return math.Hypot(dLat, dLon)*1.05 + 0.1
}

func geoIndexable(lat float64) bool {
	return math.Abs(lat) <= maxGeoLatitude
}
