// Package profile derives behavior profiles from a tourist's fix history.
//
// Profiles are rebuilt wholesale from the full history window and replace the
// prior profile atomically; nothing here mutates an existing profile. Given
// the same ordered fix sequence the builder always produces the same profile.
package profile

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pathwatch/pathwatch/internal/geo"
	"github.com/pathwatch/pathwatch/internal/models"
)

// stationarySpeedKmh is 0.1 m/s expressed in km/h; fixes below it count as
// stationary for the stationary_periods tag.
const stationarySpeedKmh = 0.36

// Config holds the profile builder parameters.
type Config struct {
	// ClusterRadiusMeters groups fixes into common-location clusters.
	ClusterRadiusMeters float64

	// MinFixes is the minimum history size; below it Build returns nil.
	MinFixes int

	// MaxClusters caps how many common locations a profile keeps.
	MaxClusters int
}

// DefaultConfig returns the canonical builder parameters.
func DefaultConfig() Config {
	return Config{
		ClusterRadiusMeters: 200,
		MinFixes:            10,
		MaxClusters:         5,
	}
}

// Builder derives behavior profiles from fix history.
type Builder struct {
	config Config
}

// NewBuilder creates a builder with the given configuration. Zero values
// fall back to defaults.
func NewBuilder(config Config) *Builder {
	defaults := DefaultConfig()
	if config.ClusterRadiusMeters <= 0 {
		config.ClusterRadiusMeters = defaults.ClusterRadiusMeters
	}
	if config.MinFixes <= 0 {
		config.MinFixes = defaults.MinFixes
	}
	if config.MaxClusters <= 0 {
		config.MaxClusters = defaults.MaxClusters
	}
	return &Builder{config: config}
}

// Build derives a profile from the fix history, oldest first. Returns nil
// when the history is too small to say anything useful.
func (b *Builder) Build(fixes []models.LocationFix) *models.BehaviorProfile {
	if len(fixes) < b.config.MinFixes {
		return nil
	}

	return &models.BehaviorProfile{
		AverageSpeedKmh: averageSpeed(fixes),
		CommonLocations: b.clusterLocations(fixes),
		TypicalHours:    typicalHours(fixes),
		Patterns:        b.patterns(fixes),
		FixCount:        len(fixes),
		BuiltAt:         time.Now().UTC(),
	}
}

func averageSpeed(fixes []models.LocationFix) float64 {
	speeds := make([]float64, len(fixes))
	for i, fix := range fixes {
		speeds[i] = fix.Speed()
	}
	return stat.Mean(speeds, nil)
}

// cluster is the working representation during greedy clustering. The
// centroid stays where the founding fix landed; later members only raise
// the count.
type cluster struct {
	center geo.Point
	count  int
	order  int
}

func (b *Builder) buildClusters(fixes []models.LocationFix) []cluster {
	var clusters []cluster
	for _, fix := range fixes {
		point := fix.Point()
		found := false
		for i := range clusters {
			if geo.DistanceMeters(clusters[i].center, point) <= b.config.ClusterRadiusMeters {
				clusters[i].count++
				found = true
				break
			}
		}
		if !found {
			clusters = append(clusters, cluster{center: point, count: 1, order: len(clusters)})
		}
	}
	return clusters
}

// clusterLocations returns the top clusters by count, most frequent first.
// Ties break on creation order so repeated builds stay identical.
func (b *Builder) clusterLocations(fixes []models.LocationFix) []models.LocationCluster {
	clusters := b.buildClusters(fixes)

	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].count != clusters[j].count {
			return clusters[i].count > clusters[j].count
		}
		return clusters[i].order < clusters[j].order
	})

	limit := b.config.MaxClusters
	if len(clusters) < limit {
		limit = len(clusters)
	}

	total := float64(len(fixes))
	locations := make([]models.LocationCluster, 0, limit)
	for _, c := range clusters[:limit] {
		locations = append(locations, models.LocationCluster{
			Center:    c.center,
			Count:     c.count,
			Frequency: float64(c.count) / total,
		})
	}
	return locations
}

// typicalHours marks an hour typical when its fix count exceeds half of a
// uniform spread across the day.
func typicalHours(fixes []models.LocationFix) map[int]bool {
	var counts [24]int
	for _, fix := range fixes {
		counts[fix.Timestamp.Hour()]++
	}

	threshold := 0.5 * float64(len(fixes)) / 24.0
	hours := make(map[int]bool)
	for hour, count := range counts {
		if float64(count) > threshold {
			hours[hour] = true
		}
	}
	return hours
}

func (b *Builder) patterns(fixes []models.LocationFix) []models.MovementPattern {
	clusters := b.buildClusters(fixes)

	topFrequency := 0.0
	for _, c := range clusters {
		if f := float64(c.count) / float64(len(fixes)); f > topFrequency {
			topFrequency = f
		}
	}

	stationary := 0
	for _, fix := range fixes {
		if fix.Speed() < stationarySpeedKmh {
			stationary++
		}
	}
	stationaryShare := float64(stationary) / float64(len(fixes))

	var tags []models.MovementPattern
	if len(clusters) >= 2 && topFrequency > 0.3 {
		tags = append(tags, models.PatternRegularCommuter)
	}
	if len(clusters) > 5 && topFrequency < 0.2 {
		tags = append(tags, models.PatternTouristExplorer)
	}
	if stationaryShare > 0.3 {
		tags = append(tags, models.PatternStationaryPeriods)
	}
	return tags
}
