// README: Offer child entity and ranking rules.
package trip

import (
	"sort"
	"time"

	"rumbo/internal/types"
)

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

// Offer is a driver's price proposal for a trip. Offers are never deleted
// individually; they only disappear when the parent trip does.
type Offer struct {
	ID          types.ID    `json:"id"`
	TripID      types.ID    `json:"trip_id"`
	DriverID    types.ID    `json:"driver_id"`
	DriverName  string      `json:"driver_name"`
	VehicleType string      `json:"vehicle_type"`
	Rating      float64     `json:"rating"`
	Price       float64     `json:"price"`
	Status      OfferStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

// SentOffer is an offer joined with its parent trip, for a driver's own
// outstanding/rejected offers view.
type SentOffer struct {
	Offer *Offer `json:"offer"`
	Trip  *Trip  `json:"trip"`
}

type OfferSort string

const (
	SortPriceAsc   OfferSort = "price_asc"
	SortPriceDesc  OfferSort = "price_desc"
	SortRatingDesc OfferSort = "rating_desc"
)

// SortOffers orders offers in place. Sorting is stable so ties keep
// submission order.
func SortOffers(offers []*Offer, mode OfferSort) {
	switch mode {
	case SortPriceAsc:
		sort.SliceStable(offers, func(i, j int) bool { return offers[i].Price < offers[j].Price })
	case SortPriceDesc:
		sort.SliceStable(offers, func(i, j int) bool { return offers[i].Price > offers[j].Price })
	case SortRatingDesc:
		sort.SliceStable(offers, func(i, j int) bool { return offers[i].Rating > offers[j].Rating })
	}
}
