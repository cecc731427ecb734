package scoring

import (
	"github.com/pathwatch/pathwatch/internal/geo"
	"github.com/pathwatch/pathwatch/internal/models"
)

// ZoneIndex holds the read-only geofence reference data loaded at startup.
// Lookups scan in configuration order, which also breaks overlap ties.
type ZoneIndex struct {
	zones []models.GeoZone
}

// NewZoneIndex builds an index over the configured zones.
func NewZoneIndex(zones []models.GeoZone) *ZoneIndex {
	return &ZoneIndex{zones: zones}
}

// Locate returns the first configured zone containing the point, or nil.
func (idx *ZoneIndex) Locate(p geo.Point) *models.GeoZone {
	for i := range idx.zones {
		if idx.zones[i].Contains(p) {
			return &idx.zones[i]
		}
	}
	return nil
}

// NearbyIncidents sums the incident counts of every zone whose center lies
// within radiusMeters of the point.
func (idx *ZoneIndex) NearbyIncidents(p geo.Point, radiusMeters float64) int {
	total := 0
	for i := range idx.zones {
		if geo.DistanceMeters(idx.zones[i].Center, p) <= radiusMeters {
			total += idx.zones[i].IncidentCount
		}
	}
	return total
}

// Zones returns a copy of the configured zone list.
func (idx *ZoneIndex) Zones() []models.GeoZone {
	out := make([]models.GeoZone, len(idx.zones))
	copy(out, idx.zones)
	return out
}
