package types

import (
	"fmt"
	"time"
)

// Tier represents an age-based retention regime for raw probe results.
// Results stay at full resolution inside the raw window, are reduced to
// hourly-bucket density until the hourly window ends, and to
// daily-bucket density beyond that until the hard cutoff deletes them.
type Tier int

const (
	// TierRaw keeps every result at full resolution.
	// Window: newest 30 days.
	TierRaw Tier = iota

	// TierHourly reduces each hour of results to a representative subset.
	// Window: 30 to 90 days of age.
	TierHourly

	// TierDaily reduces each day of results to a representative subset.
	// Window: older than 90 days, until the hard cutoff.
	TierDaily
)

// Fixed tier boundaries. These are design constants, deliberately not
// admin-configurable; only the hard cutoff (dataRetentionDays) is.
const (
	// RawWindowDays is the age below which results are never reduced.
	RawWindowDays = 30

	// HourlyWindowDays is the age below which results are reduced to
	// hourly density, and beyond which to daily density.
	HourlyWindowDays = 90

	// DefaultRetentionDays is the hard cutoff used when the admin
	// settings store has no explicit value.
	DefaultRetentionDays = 30
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierRaw:
		return "raw"
	case TierHourly:
		return "hourly"
	case TierDaily:
		return "daily"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// BucketDuration returns the reduction bucket size for this tier.
func (t Tier) BucketDuration() time.Duration {
	switch t {
	case TierHourly:
		return time.Hour
	case TierDaily:
		return 24 * time.Hour
	default:
		return 0
	}
}

// KeepThreshold returns the bucket size at or below which no reduction
// happens for this tier.
func (t Tier) KeepThreshold() int {
	switch t {
	case TierHourly:
		return 10
	case TierDaily:
		return 5
	default:
		return 0
	}
}

// KeepTarget returns the approximate number of stride samples kept per
// bucket for this tier.
func (t Tier) KeepTarget() int {
	switch t {
	case TierHourly:
		return 8
	case TierDaily:
		return 4
	default:
		return 0
	}
}

// TruncateToBucket truncates a timestamp to the start of its bucket.
func (t Tier) TruncateToBucket(ts time.Time) time.Time {
	switch t {
	case TierHourly:
		return ts.UTC().Truncate(time.Hour)
	case TierDaily:
		return TruncateToDay(ts)
	default:
		return ts
	}
}

// ParseTier parses a string into a Tier.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "raw":
		return TierRaw, nil
	case "hourly":
		return TierHourly, nil
	case "daily":
		return TierDaily, nil
	default:
		return TierRaw, fmt.Errorf("unknown tier: %s", s)
	}
}

// ReducedTiers returns the tiers that undergo bucket reduction, in the
// order the tiering engine processes them.
func ReducedTiers() []Tier {
	return []Tier{TierHourly, TierDaily}
}
