// optiq-price prices a single option contract from the command line, or
// solves for the volatility implied by a market price.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"optiq/internal/pricing"
)

func main() {
	var (
		right  = flag.String("right", "call", "contract right: call or put")
		spot   = flag.Float64("spot", 0, "underlying spot price")
		strike = flag.Float64("strike", 0, "strike price")
		rate   = flag.Float64("rate", 0.05, "annualized risk-free rate")
		vol    = flag.Float64("vol", 0, "annualized volatility (ignored with -market-price)")
		expiry = flag.Float64("expiry", 0, "time to expiry in years")
		market = flag.Float64("market-price", 0, "observed market price; solve for implied vol")
	)
	flag.Parse()

	call := strings.ToLower(*right) == "call"
	if !call && strings.ToLower(*right) != "put" {
		log.Fatalf("right must be call or put, got %q", *right)
	}
	if *spot <= 0 || *strike <= 0 {
		log.Fatal("spot and strike must be positive")
	}

	sigma := *vol
	if *market > 0 {
		solve := pricing.CallImpliedVol
		if !call {
			solve = pricing.PutImpliedVol
		}
		iv, err := solve(*market, *spot, *strike, *rate, *expiry, 1e-6, 100)
		if err != nil {
			switch {
			case errors.Is(err, pricing.ErrInvalidInput):
				log.Fatalf("implied vol: invalid input: %v", err)
			case errors.Is(err, pricing.ErrNoConvergence):
				log.Fatalf("implied vol: solver did not converge: %v", err)
			default:
				log.Fatalf("implied vol: %v", err)
			}
		}
		sigma = iv
		fmt.Printf("implied_vol  %.6f\n", iv)
	} else if sigma <= 0 {
		fmt.Fprintln(os.Stderr, "either -vol or -market-price is required")
		flag.Usage()
		os.Exit(2)
	}

	var price float64
	var greeks pricing.Greeks
	if call {
		price = pricing.CallPrice(*spot, *strike, *rate, sigma, *expiry)
		greeks = pricing.CallGreeks(*spot, *strike, *rate, sigma, *expiry)
	} else {
		price = pricing.PutPrice(*spot, *strike, *rate, sigma, *expiry)
		greeks = pricing.PutGreeks(*spot, *strike, *rate, sigma, *expiry)
	}

	fmt.Printf("price        %.6f\n", price)
	fmt.Printf("delta        %.6f\n", greeks.Delta)
	fmt.Printf("gamma        %.6f\n", greeks.Gamma)
	fmt.Printf("vega         %.6f\n", greeks.Vega)
	fmt.Printf("theta        %.6f\n", greeks.Theta)
	fmt.Printf("rho          %.6f\n", greeks.Rho)
}
