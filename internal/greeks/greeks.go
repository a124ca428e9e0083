// Package greeks computes Black-Scholes option sensitivities. Pure
// closed-form math, no state.
package greeks

import (
	"errors"
	"fmt"
	"math"
)

// OptionType selects call or put formulas.
type OptionType string

// Option type constants.
const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// ErrInvalidInput is returned for inputs outside the model's domain.
var ErrInvalidInput = errors.New("invalid input")

// Inputs are the Black-Scholes model inputs. Rates and volatility are
// annualized; time to expiry is in years.
type Inputs struct {
	Spot          float64 // current price of the underlying
	Strike        float64 // option strike price
	TimeToExpiry  float64 // years
	Volatility    float64 // implied volatility
	RiskFreeRate  float64
	DividendYield float64 // continuous dividend yield
}

// Greeks holds all five sensitivities. Theta is per year.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

func (in Inputs) validate() error {
	if in.Spot <= 0 || in.Strike <= 0 {
		return fmt.Errorf("%w: spot and strike must be positive", ErrInvalidInput)
	}
	if in.TimeToExpiry <= 0 {
		return fmt.Errorf("%w: time to expiry must be positive", ErrInvalidInput)
	}
	if in.Volatility <= 0 {
		return fmt.Errorf("%w: volatility must be positive", ErrInvalidInput)
	}
	return nil
}

func (in Inputs) d1() float64 {
	return (math.Log(in.Spot/in.Strike) + (in.RiskFreeRate-in.DividendYield+0.5*in.Volatility*in.Volatility)*in.TimeToExpiry) /
		(in.Volatility * math.Sqrt(in.TimeToExpiry))
}

func (in Inputs) d2() float64 {
	return in.d1() - in.Volatility*math.Sqrt(in.TimeToExpiry)
}

// Delta is the rate of change of option price with respect to the
// underlying price.
func Delta(in Inputs, typ OptionType) (float64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}
	d1 := in.d1()
	disc := math.Exp(-in.DividendYield * in.TimeToExpiry)
	if typ == Put {
		return disc * (normCDF(d1) - 1), nil
	}
	return disc * normCDF(d1), nil
}

// Gamma is the rate of change of delta; identical for calls and puts.
func Gamma(in Inputs) (float64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}
	d1 := in.d1()
	return math.Exp(-in.DividendYield*in.TimeToExpiry) * normPDF(d1) /
		(in.Spot * in.Volatility * math.Sqrt(in.TimeToExpiry)), nil
}

// Vega is the sensitivity to volatility; identical for calls and puts.
func Vega(in Inputs) (float64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}
	d1 := in.d1()
	return in.Spot * math.Exp(-in.DividendYield*in.TimeToExpiry) * normPDF(d1) * math.Sqrt(in.TimeToExpiry), nil
}

// Theta is the time decay of the option, per year.
func Theta(in Inputs, typ OptionType) (float64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}
	d1, d2 := in.d1(), in.d2()
	discQ := math.Exp(-in.DividendYield * in.TimeToExpiry)
	discR := math.Exp(-in.RiskFreeRate * in.TimeToExpiry)

	term1 := -(in.Spot * discQ * normPDF(d1) * in.Volatility) / (2 * math.Sqrt(in.TimeToExpiry))
	if typ == Put {
		term2 := -in.DividendYield * in.Spot * discQ * normCDF(-d1)
		term3 := in.RiskFreeRate * in.Strike * discR * normCDF(-d2)
		return term1 + term2 + term3, nil
	}
	term2 := in.DividendYield * in.Spot * discQ * normCDF(d1)
	term3 := -in.RiskFreeRate * in.Strike * discR * normCDF(d2)
	return term1 + term2 + term3, nil
}

// Rho is the sensitivity to the risk-free rate.
func Rho(in Inputs, typ OptionType) (float64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}
	d2 := in.d2()
	discR := math.Exp(-in.RiskFreeRate * in.TimeToExpiry)
	if typ == Put {
		return -in.Strike * in.TimeToExpiry * discR * normCDF(-d2), nil
	}
	return in.Strike * in.TimeToExpiry * discR * normCDF(d2), nil
}

// All computes all five greeks at once.
func All(in Inputs, typ OptionType) (Greeks, error) {
	if err := in.validate(); err != nil {
		return Greeks{}, err
	}
	delta, _ := Delta(in, typ)
	gamma, _ := Gamma(in)
	vega, _ := Vega(in)
	theta, _ := Theta(in, typ)
	rho, _ := Rho(in, typ)
	return Greeks{Delta: delta, Gamma: gamma, Vega: vega, Theta: theta, Rho: rho}, nil
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// normPDF is the standard normal probability density function.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
