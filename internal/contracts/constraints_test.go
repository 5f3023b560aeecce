package contracts

import (
	"errors"
	"testing"
)

func TestConstraints_Validate(t *testing.T) {
	tests := []struct {
		name        string
		constraints Constraints
		wantErr     bool
	}{
		{
			name:        "defaults are valid",
			constraints: DefaultConstraints(),
			wantErr:     false,
		},
		{
			name: "zero max holdings",
			constraints: Constraints{
				MaxHoldings:     0,
				PayoutCeiling:   0.8,
				LeverageCeiling: 2.0,
				BenchmarkTicker: "VIG",
			},
			wantErr: true,
		},
		{
			name: "max holdings above ceiling",
			constraints: Constraints{
				MaxHoldings:     101,
				PayoutCeiling:   0.8,
				LeverageCeiling: 2.0,
				BenchmarkTicker: "VIG",
			},
			wantErr: true,
		},
		{
			name: "payout ceiling above 1",
			constraints: Constraints{
				MaxHoldings:     40,
				PayoutCeiling:   1.2,
				LeverageCeiling: 2.0,
				BenchmarkTicker: "VIG",
			},
			wantErr: true,
		},
		{
			name: "payout ceiling exactly 1 is allowed",
			constraints: Constraints{
				MaxHoldings:     40,
				PayoutCeiling:   1.0,
				LeverageCeiling: 2.0,
				BenchmarkTicker: "VIG",
			},
			wantErr: false,
		},
		{
			name: "negative leverage ceiling",
			constraints: Constraints{
				MaxHoldings:     40,
				PayoutCeiling:   0.8,
				LeverageCeiling: -1,
				BenchmarkTicker: "VIG",
			},
			wantErr: true,
		},
		{
			name: "lowercase benchmark",
			constraints: Constraints{
				MaxHoldings:     40,
				PayoutCeiling:   0.8,
				LeverageCeiling: 2.0,
				BenchmarkTicker: "vig",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.constraints.Validate(100)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}

			if err != nil {
				var pe *PipelineError
				if !errors.As(err, &pe) {
					t.Fatalf("Expected *PipelineError, got %T", err)
				}
				if pe.Kind != ErrInvalidConstraints {
					t.Errorf("Expected kind %s, got %s", ErrInvalidConstraints, pe.Kind)
				}
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	rejection := NewRejection(RejectUnknownTicker, "TSLA not in universe")
	if KindOf(rejection) != ErrInvalidModelOutput {
		t.Errorf("KindOf(rejection) = %s, want %s", KindOf(rejection), ErrInvalidModelOutput)
	}
	if ReasonOf(rejection) != RejectUnknownTicker {
		t.Errorf("ReasonOf(rejection) = %s, want %s", ReasonOf(rejection), RejectUnknownTicker)
	}

	// Unclassified errors are treated as transient
	if KindOf(errors.New("socket reset")) != ErrUpstreamUnavailable {
		t.Errorf("Expected unclassified error to map to %s", ErrUpstreamUnavailable)
	}

	// Wrapped PipelineError is still found
	wrapped := WrapError(ErrTimeout, StageSnapshot, "lookup deadline", errors.New("context deadline exceeded"))
	if KindOf(wrapped) != ErrTimeout {
		t.Errorf("KindOf(wrapped) = %s, want %s", KindOf(wrapped), ErrTimeout)
	}
}

func TestMarketSnapshot_Universe(t *testing.T) {
	price := 420.0
	snapshot := &MarketSnapshot{
		Entries: []TickerSnapshot{
			{Ticker: "AAPL", Price: &price},
			{Ticker: "MSFT"},
		},
	}

	universe := snapshot.Universe()
	if len(universe) != 2 {
		t.Fatalf("Universe() size = %d, want 2", len(universe))
	}
	if _, ok := universe["AAPL"]; !ok {
		t.Error("Expected AAPL in universe")
	}
	if _, ok := universe["TSLA"]; ok {
		t.Error("TSLA must not be in universe")
	}
}
