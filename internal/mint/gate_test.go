package mint

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestGateLabels(t *testing.T) {
	oneEther := QuoteOf(uint256.NewInt(1_000_000_000_000_000_000))

	cases := map[string]struct {
		in          GateInput
		wantLabel   string
		wantEnabled bool
	}{
		"disconnected wins over everything": {
			in:        GateInput{Connected: false, State: StateAwaitingSignature, Price: oneEther},
			wantLabel: LabelConnectWallet,
		},
		"disconnected with price": {
			in:        GateInput{Connected: false, Price: oneEther},
			wantLabel: LabelConnectWallet,
		},
		"awaiting signature": {
			in:        GateInput{Connected: true, State: StateAwaitingSignature, Price: oneEther},
			wantLabel: LabelConfirming,
		},
		"submitted": {
			in:        GateInput{Connected: true, State: StateSubmitted, Price: oneEther},
			wantLabel: LabelProcessing,
		},
		"confirming": {
			in:        GateInput{Connected: true, State: StateConfirming, Price: oneEther},
			wantLabel: LabelProcessing,
		},
		"loading price": {
			in:        GateInput{Connected: true, Price: LoadingQuote()},
			wantLabel: LabelLoadingPrice,
		},
		"zero price": {
			in:        GateInput{Connected: true, Price: QuoteOf(uint256.NewInt(0))},
			wantLabel: LabelNotForSale,
		},
		"unknown price": {
			in:        GateInput{Connected: true, Price: PriceQuote{Status: PriceUnknown}},
			wantLabel: LabelMint,
		},
		"ready": {
			in:          GateInput{Connected: true, Price: oneEther},
			wantLabel:   LabelMint,
			wantEnabled: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			label, enabled := Gate(tc.in)
			if label != tc.wantLabel || enabled != tc.wantEnabled {
				t.Fatalf("expected (%q, %v) got (%q, %v)", tc.wantLabel, tc.wantEnabled, label, enabled)
			}

			again, enabledAgain := Gate(tc.in)
			if again != label || enabledAgain != enabled {
				t.Fatalf("gate is not idempotent: (%q, %v) then (%q, %v)", label, enabled, again, enabledAgain)
			}
		})
	}
}

func TestQuoteOf(t *testing.T) {
	if q := QuoteOf(nil); q.Status != PriceUnknown || q.Display() != "N/A" {
		t.Fatalf("nil price: %+v %q", q, q.Display())
	}
	if q := QuoteOf(uint256.NewInt(0)); q.Status != PriceZero || q.Mintable() || q.Display() != "0" {
		t.Fatalf("zero price: %+v %q", q, q.Display())
	}
	q := QuoteOf(uint256.NewInt(1_500_000_000_000_000_000))
	if q.Status != PriceValue || !q.Mintable() || q.Display() != "1.5" {
		t.Fatalf("value price: %+v %q", q, q.Display())
	}
	if LoadingQuote().Display() != "N/A" || LoadingQuote().Mintable() {
		t.Fatalf("loading quote must not be mintable")
	}
}

func TestQuoteOfCopiesInput(t *testing.T) {
	raw := uint256.NewInt(10)
	q := QuoteOf(raw)
	raw.SetUint64(0)
	if q.Raw.Uint64() != 10 {
		t.Fatalf("quote aliases caller value")
	}
}

func TestStateInFlight(t *testing.T) {
	for _, s := range []State{StateAwaitingSignature, StateSubmitted, StateConfirming} {
		if !s.InFlight() {
			t.Fatalf("%s should be in flight", s)
		}
	}
	for _, s := range []State{StateIdle, StateConfirmed, StateRejected, StateFailed} {
		if s.InFlight() {
			t.Fatalf("%s should not be in flight", s)
		}
	}
}
