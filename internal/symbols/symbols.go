// Package symbols translates internal asset symbols into the ticker
// formats the upstream vendors expect. Pure string logic, no I/O.
package symbols

import "strings"

// quoteSuffix is the quote currency appended to crypto pairs.
const quoteSuffix = "-USD"

// knownCryptoBases are the base currency codes we map to a -USD pair.
// Symbols outside this list are passed through untouched.
var knownCryptoBases = map[string]struct{}{
	"BTC":  {},
	"ETH":  {},
	"SOL":  {},
	"XRP":  {},
	"ADA":  {},
	"DOGE": {},
	"LTC":  {},
	"BCH":  {},
	"DOT":  {},
	"LINK": {},
}

// Map returns the vendor ticker for a symbol and asset class, in the
// pair format used by chart-style APIs ("BTC" + crypto -> "BTC-USD").
// Stock and unknown classes return the upper-cased symbol unchanged.
// Always returns a usable string; no error conditions.
func Map(symbol, assetClass string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if !strings.EqualFold(assetClass, "crypto") {
		return s
	}
	if _, ok := knownCryptoBases[s]; ok {
		return s + quoteSuffix
	}
	// Tolerate symbols that already carry a quote suffix: strip it,
	// re-check the base, and re-suffix on a match.
	if base := stripQuote(s); base != s {
		if _, ok := knownCryptoBases[base]; ok {
			return base + quoteSuffix
		}
	}
	return s
}

// CryptoBase strips any quote-currency suffix and reports whether the
// remaining base code is a known crypto base. Used for vendors that
// want the bare base (e.g. an exchange-rate endpoint).
func CryptoBase(symbol string) (string, bool) {
	base := stripQuote(strings.ToUpper(strings.TrimSpace(symbol)))
	_, ok := knownCryptoBases[base]
	return base, ok
}

func stripQuote(s string) string {
	for _, suf := range []string{"-USD", "USDT", "USD"} {
		if strings.HasSuffix(s, suf) && len(s) > len(suf) {
			return strings.TrimSuffix(s, suf)
		}
	}
	return s
}
