package availability

import (
	"errors"
	"time"
)

// Leg is the direction of a courier shipment.
type Leg string

const (
	LegForward Leg = "forward"
	LegReverse Leg = "reverse"
)

// TransitQuote is one courier's offer for one leg.
type TransitQuote struct {
	Leg         Leg        `json:"leg"`
	CarrierName string     `json:"carrier_name"`
	EtaDate     *time.Time `json:"eta_date,omitempty"`
	EtaDays     int        `json:"eta_days"`
	Price       float64    `json:"price"`
}

var ErrNoQuotes = errors.New("no courier quotes")

// Fastest picks the quote with the fewest transit days. The earliest entry
// wins ties.
func Fastest(quotes []TransitQuote) (TransitQuote, bool) {
	if len(quotes) == 0 {
		return TransitQuote{}, false
	}
	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.EtaDays < best.EtaDays {
			best = q
		}
	}
	return best, true
}

// Cheapest picks the lowest priced quote. The earliest entry wins ties.
func Cheapest(quotes []TransitQuote) (TransitQuote, bool) {
	if len(quotes) == 0 {
		return TransitQuote{}, false
	}
	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.Price < best.Price {
			best = q
		}
	}
	return best, true
}

// LegSelection holds both picks for one leg.
type LegSelection struct {
	Fastest  TransitQuote `json:"fastest"`
	Cheapest TransitQuote `json:"cheapest"`
}

// SelectLeg applies both strategies to one leg's quotes.
func SelectLeg(quotes []TransitQuote) (LegSelection, error) {
	fastest, ok := Fastest(quotes)
	if !ok {
		return LegSelection{}, ErrNoQuotes
	}
	cheapest, _ := Cheapest(quotes)
	return LegSelection{Fastest: fastest, Cheapest: cheapest}, nil
}

// OptionName names a combined forward+reverse delivery option.
type OptionName string

const (
	OptionFastest  OptionName = "fastest"
	OptionCheapest OptionName = "cheapest"
)

// DeliveryOption pairs a forward and reverse quote.
type DeliveryOption struct {
	Name       OptionName   `json:"name"`
	Forward    TransitQuote `json:"forward"`
	Reverse    TransitQuote `json:"reverse"`
	TotalPrice float64      `json:"total_price"`
	TotalDays  int          `json:"total_days"`
}

func newOption(name OptionName, fwd, rev TransitQuote) DeliveryOption {
	return DeliveryOption{
		Name:       name,
		Forward:    fwd,
		Reverse:    rev,
		TotalPrice: roundMoney(fwd.Price + rev.Price),
		TotalDays:  fwd.EtaDays + rev.EtaDays,
	}
}

// DeliveryOptions always offers the combined fastest option. The combined
// cheapest option is added only when its total price or total days differ.
func DeliveryOptions(forward, reverse LegSelection) []DeliveryOption {
	fastest := newOption(OptionFastest, forward.Fastest, reverse.Fastest)
	cheapest := newOption(OptionCheapest, forward.Cheapest, reverse.Cheapest)

	opts := []DeliveryOption{fastest}
	if cheapest.TotalPrice != fastest.TotalPrice || cheapest.TotalDays != fastest.TotalDays {
		opts = append(opts, cheapest)
	}
	return opts
}

// FindOption looks up an option by name.
func FindOption(opts []DeliveryOption, name OptionName) (DeliveryOption, bool) {
	for _, o := range opts {
		if o.Name == name {
			return o, true
		}
	}
	return DeliveryOption{}, false
}
