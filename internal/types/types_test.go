package types

import (
	"testing"
	"time"
)

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		input    string
		expected Protocol
		hasError bool
	}{
		{"icmp", ProtocolICMP, false},
		{"tcp", ProtocolTCP, false},
		{"udp", ProtocolUDP, false},
		{"http", ProtocolHTTP, false},
		{"https", ProtocolHTTPS, false},
		{"gopher", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParseProtocol(tt.input)
			if tt.hasError {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, p)
			}
		})
	}
}

func TestProbeResult_Validate(t *testing.T) {
	valid := ProbeResult{
		TargetID:  "t1",
		Timestamp: time.Now(),
		Success:   true,
		Protocol:  ProtocolICMP,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	missing := valid
	missing.TargetID = ""
	if err := missing.Validate(); err == nil {
		t.Error("expected error for missing target id")
	}

	noTime := valid
	noTime.Timestamp = time.Time{}
	if err := noTime.Validate(); err == nil {
		t.Error("expected error for zero timestamp")
	}

	badProto := valid
	badProto.Protocol = "carrier-pigeon"
	if err := badProto.Validate(); err == nil {
		t.Error("expected error for bad protocol")
	}
}

func TestTruncateToDay(t *testing.T) {
	ts := time.Date(2026, 3, 14, 15, 9, 26, 535000000, time.UTC)
	day := TruncateToDay(ts)

	expected := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if !day.Equal(expected) {
		t.Errorf("expected %v, got %v", expected, day)
	}

	// Non-UTC input truncates in UTC, not local time.
	loc := time.FixedZone("UTC+10", 10*3600)
	late := time.Date(2026, 3, 15, 5, 0, 0, 0, loc) // 2026-03-14 19:00 UTC
	if got := TruncateToDay(late); !got.Equal(expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestTier_TruncateToBucket(t *testing.T) {
	ts := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	tests := []struct {
		tier     Tier
		expected time.Time
	}{
		{TierHourly, time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)},
		{TierDaily, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			if got := tt.tier.TruncateToBucket(ts); !got.Equal(tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestTier_Parameters(t *testing.T) {
	if TierHourly.KeepThreshold() != 10 || TierHourly.KeepTarget() != 8 {
		t.Errorf("hourly tier parameters wrong: threshold=%d target=%d",
			TierHourly.KeepThreshold(), TierHourly.KeepTarget())
	}
	if TierDaily.KeepThreshold() != 5 || TierDaily.KeepTarget() != 4 {
		t.Errorf("daily tier parameters wrong: threshold=%d target=%d",
			TierDaily.KeepThreshold(), TierDaily.KeepTarget())
	}
	if TierHourly.BucketDuration() != time.Hour {
		t.Errorf("hourly bucket duration: %v", TierHourly.BucketDuration())
	}
	if TierDaily.BucketDuration() != 24*time.Hour {
		t.Errorf("daily bucket duration: %v", TierDaily.BucketDuration())
	}
}

func TestParseTier(t *testing.T) {
	for _, tier := range append(ReducedTiers(), TierRaw) {
		parsed, err := ParseTier(tier.String())
		if err != nil {
			t.Fatalf("parse %s: %v", tier, err)
		}
		if parsed != tier {
			t.Errorf("round trip %s: got %s", tier, parsed)
		}
	}

	if _, err := ParseTier("weekly"); err == nil {
		t.Error("expected error for unknown tier")
	}
}
