package telemetry

import "github.com/pathwatch/pathwatch/internal/models"

// FixHistory is a bounded, oldest-first window of accepted location fixes.
// When full, appending evicts the oldest fix. Not safe for concurrent use;
// each tourist's session worker owns its history exclusively.
type FixHistory struct {
	fixes    []models.LocationFix
	capacity int
}

// NewFixHistory creates a history window holding at most capacity fixes.
func NewFixHistory(capacity int) *FixHistory {
	if capacity <= 0 {
		capacity = 1
	}
	return &FixHistory{
		fixes:    make([]models.LocationFix, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a fix, evicting the oldest when the window is full.
func (h *FixHistory) Append(fix models.LocationFix) {
	if len(h.fixes) == h.capacity {
		copy(h.fixes, h.fixes[1:])
		h.fixes[len(h.fixes)-1] = fix
		return
	}
	h.fixes = append(h.fixes, fix)
}

// Len returns the number of fixes currently held.
func (h *FixHistory) Len() int {
	return len(h.fixes)
}

// Last returns the most recent fix, or false when the window is empty.
func (h *FixHistory) Last() (models.LocationFix, bool) {
	if len(h.fixes) == 0 {
		return models.LocationFix{}, false
	}
	return h.fixes[len(h.fixes)-1], true
}

// Recent returns a copy of the newest n fixes, oldest first.
func (h *FixHistory) Recent(n int) []models.LocationFix {
	if n > len(h.fixes) {
		n = len(h.fixes)
	}
	out := make([]models.LocationFix, n)
	copy(out, h.fixes[len(h.fixes)-n:])
	return out
}

// Snapshot returns a copy of the full window, oldest first.
func (h *FixHistory) Snapshot() []models.LocationFix {
	out := make([]models.LocationFix, len(h.fixes))
	copy(out, h.fixes)
	return out
}

// Restore replaces the window contents, keeping only the newest fixes when
// the input exceeds capacity. Used when rehydrating a session from storage.
func (h *FixHistory) Restore(fixes []models.LocationFix) {
	if len(fixes) > h.capacity {
		fixes = fixes[len(fixes)-h.capacity:]
	}
	h.fixes = h.fixes[:0]
	h.fixes = append(h.fixes, fixes...)
}
