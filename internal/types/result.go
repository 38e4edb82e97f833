package types

import (
	"fmt"
	"time"
)

// Protocol identifies the probe mechanism that produced a result.
type Protocol string

const (
	ProtocolICMP  Protocol = "icmp"
	ProtocolTCP   Protocol = "tcp"
	ProtocolUDP   Protocol = "udp"
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
)

// ParseProtocol parses a string into a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(s) {
	case ProtocolICMP, ProtocolTCP, ProtocolUDP, ProtocolHTTP, ProtocolHTTPS:
		return Protocol(s), nil
	default:
		return "", fmt.Errorf("unknown protocol: %s", s)
	}
}

// ProbeResult is a single immutable connectivity check outcome.
// Rows are written once by the prober and removed only by retention.
type ProbeResult struct {
	ID       string
	TargetID string

	Timestamp time.Time

	Success bool

	// ResponseTimeMs is nil when the probe produced no timing,
	// which is the normal case for failures.
	ResponseTimeMs *int64

	// StatusCode is set for HTTP(S) probes only.
	StatusCode *int

	// Error holds the failure reason, empty on success.
	Error string

	Protocol Protocol
}

// Day returns the UTC calendar day this result belongs to.
func (r *ProbeResult) Day() time.Time {
	return time.Date(r.Timestamp.Year(), r.Timestamp.Month(), r.Timestamp.Day(), 0, 0, 0, 0, time.UTC)
}

// Validate checks that the result is well-formed enough to ingest.
func (r *ProbeResult) Validate() error {
	if r.TargetID == "" {
		return fmt.Errorf("probe result: missing target id")
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("probe result: missing timestamp")
	}
	if _, err := ParseProtocol(string(r.Protocol)); err != nil {
		return fmt.Errorf("probe result: %w", err)
	}
	return nil
}

// Target is a monitored host as known to the target configuration store.
// This core only reads targets; it never creates or modifies them.
type Target struct {
	ID      string
	Name    string
	Enabled bool
}
