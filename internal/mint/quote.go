package mint

import (
	"github.com/holiman/uint256"

	"wastelive/internal/units"
)

type PriceStatus int

const (
	// PriceUnknown: no read outstanding and no usable value (the last read failed).
	PriceUnknown PriceStatus = iota
	PriceLoading
	// PriceZero: the contract reports 0, meaning the item is not for sale.
	PriceZero
	PriceValue
)

func (s PriceStatus) String() string {
	switch s {
	case PriceLoading:
		return "loading"
	case PriceZero:
		return "zero"
	case PriceValue:
		return "value"
	}
	return "unknown"
}

// PriceQuote is the latest known on-chain price of one item.
type PriceQuote struct {
	Status PriceStatus
	Raw    *uint256.Int
}

func LoadingQuote() PriceQuote {
	return PriceQuote{Status: PriceLoading}
}

// QuoteOf classifies a price read result.
func QuoteOf(raw *uint256.Int) PriceQuote {
	switch {
	case raw == nil:
		return PriceQuote{Status: PriceUnknown}
	case raw.IsZero():
		return PriceQuote{Status: PriceZero, Raw: new(uint256.Int)}
	}
	return PriceQuote{Status: PriceValue, Raw: raw.Clone()}
}

// Mintable reports whether the price is known and strictly positive.
func (q PriceQuote) Mintable() bool {
	return q.Status == PriceValue && q.Raw != nil && !q.Raw.IsZero()
}

// Display renders the price in whole currency units, or "N/A".
func (q PriceQuote) Display() string {
	switch q.Status {
	case PriceZero, PriceValue:
		return units.FormatEther(q.Raw)
	}
	return units.NotAvailable
}
