package greeks

import (
	"errors"
	"math"
	"testing"
)

// Reference values for S=100, K=100, T=1y, sigma=20%, r=5%, q=0:
// d1 = 0.35, d2 = 0.15.
var atmInputs = Inputs{
	Spot:         100,
	Strike:       100,
	TimeToExpiry: 1,
	Volatility:   0.2,
	RiskFreeRate: 0.05,
}

func approx(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %f, want %f (±%g)", name, got, want, tol)
	}
}

func TestGreeks_KnownValues(t *testing.T) {
	g, err := All(atmInputs, Call)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}

	approx(t, "Delta", g.Delta, 0.63683, 1e-4)
	approx(t, "Gamma", g.Gamma, 0.018762, 1e-5)
	approx(t, "Vega", g.Vega, 37.52403, 1e-3)
	approx(t, "Theta", g.Theta, -6.41403, 1e-2)
	approx(t, "Rho", g.Rho, 53.23248, 1e-2)
}

func TestGreeks_PutCallParity(t *testing.T) {
	call, err := All(atmInputs, Call)
	if err != nil {
		t.Fatalf("All(call) failed: %v", err)
	}
	put, err := All(atmInputs, Put)
	if err != nil {
		t.Fatalf("All(put) failed: %v", err)
	}

	// delta_call - delta_put = e^(-qT)
	approx(t, "delta parity", call.Delta-put.Delta, 1, 1e-9)

	// Gamma and vega identical for calls and puts
	approx(t, "gamma parity", call.Gamma-put.Gamma, 0, 1e-12)
	approx(t, "vega parity", call.Vega-put.Vega, 0, 1e-12)

	if put.Delta >= 0 {
		t.Errorf("put Delta = %f, want negative", put.Delta)
	}
	if put.Rho >= 0 {
		t.Errorf("put Rho = %f, want negative", put.Rho)
	}
}

func TestGreeks_DividendYieldDampensDelta(t *testing.T) {
	withDividend := atmInputs
	withDividend.DividendYield = 0.03

	base, _ := Delta(atmInputs, Call)
	damped, err := Delta(withDividend, Call)
	if err != nil {
		t.Fatalf("Delta failed: %v", err)
	}
	if damped >= base {
		t.Errorf("Delta with dividend %f, want < %f", damped, base)
	}
}

func TestGreeks_InvalidInputs(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
	}{
		{"zero spot", Inputs{Strike: 100, TimeToExpiry: 1, Volatility: 0.2}},
		{"zero strike", Inputs{Spot: 100, TimeToExpiry: 1, Volatility: 0.2}},
		{"zero expiry", Inputs{Spot: 100, Strike: 100, Volatility: 0.2}},
		{"zero volatility", Inputs{Spot: 100, Strike: 100, TimeToExpiry: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := All(tt.in, Call); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestNormCDF(t *testing.T) {
	approx(t, "N(0)", normCDF(0), 0.5, 1e-12)
	approx(t, "N(1.96)", normCDF(1.96), 0.975, 1e-3)
	approx(t, "N(-1.96)", normCDF(-1.96), 0.025, 1e-3)
}
