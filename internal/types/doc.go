// Package types defines the core data model shared across the
// retention and statistics engine: probe results, daily stat rollups,
// and the age-based retention tiers.
package types
