package contracts

import (
	"encoding/json"
	"testing"
)

func TestRecommendationPacket_TotalWeight(t *testing.T) {
	packet := &RecommendationPacket{
		AsOf:      "2026-08-31",
		Benchmark: "VIG",
		TargetPortfolio: []PortfolioItem{
			{Ticker: "MSFT", Weight: 0.40},
			{Ticker: "JNJ", Weight: 0.35},
			{Ticker: "KO", Weight: 0.25},
		},
	}

	expected := 0.40 + 0.35 + 0.25
	if total := packet.TotalWeight(); total != expected {
		t.Errorf("TotalWeight() = %v, want %v", total, expected)
	}
}

func TestRecommendationPacket_Count(t *testing.T) {
	packet := &RecommendationPacket{
		TargetPortfolio: []PortfolioItem{
			{Ticker: "MSFT", Weight: 0.60},
			{Ticker: "JNJ", Weight: 0.40},
		},
	}

	if count := packet.Count(); count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}

func TestRecommendationPacket_WireFieldNames(t *testing.T) {
	// Field names are the canonical contract shared with persisted data
	packet := &RecommendationPacket{
		AsOf:      "2026-08-31",
		Benchmark: "VIG",
		TargetPortfolio: []PortfolioItem{
			{Ticker: "MSFT", Weight: 1.0, Rationale: "core holding"},
		},
		Metrics: PacketMetrics{Yield: 0.028, Beta: 0.85},
	}

	data, err := json.Marshal(packet)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	for _, field := range []string{"asOf", "benchmark", "targetPortfolio", "metrics"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("Expected wire field %q to be present", field)
		}
	}
}

func TestRecommendationStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status RecommendationStatus
		want   bool
	}{
		{StatusPending, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestIsValidTicker(t *testing.T) {
	tests := []struct {
		ticker string
		want   bool
	}{
		{"MSFT", true},
		{"A", true},
		{"GOOGL", true},
		{"", false},
		{"msft", false},
		{"TOOLONG", false},
		{"BRK.B", false},
		{"123", false},
	}

	for _, tt := range tests {
		if got := IsValidTicker(tt.ticker); got != tt.want {
			t.Errorf("IsValidTicker(%q) = %v, want %v", tt.ticker, got, tt.want)
		}
	}
}
