// README: Offer submission and listing on top of the trip store.
package trip

import (
	"context"

	"rumbo/internal/observability"
	"rumbo/internal/types"
)

type SubmitOfferCommand struct {
	TripID   types.ID
	DriverID types.ID
	Price    float64
	// Override acknowledges a capacity-mismatch warning and submits anyway.
	Override bool
}

// SubmitOffer creates a pending offer while the trip is still collecting
// them. A passenger trip whose headcount exceeds the driver's capacity yields
// ErrCapacityMismatch unless the driver overrides; the same driver may not
// offer twice on one trip, even after a rejection.
func (s *Service) SubmitOffer(ctx context.Context, cmd SubmitOfferCommand) (*Offer, error) {
	if cmd.Price <= 0 {
		return nil, ErrValidation
	}
	t, err := s.store.GetTrip(ctx, cmd.TripID)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusSearching {
		return nil, ErrInvalidState
	}
	if t.PassengerID == cmd.DriverID {
		return nil, ErrForbidden
	}
	prof, err := s.profiles.Get(ctx, cmd.DriverID)
	if err != nil {
		return nil, err
	}
	if t.TripType == TypePassenger && t.PassengerCount > prof.PassengerCapacity && !cmd.Override {
		return nil, ErrCapacityMismatch
	}

	o := &Offer{
		ID:          newID(),
		TripID:      t.ID,
		DriverID:    cmd.DriverID,
		DriverName:  prof.FullName,
		VehicleType: prof.VehicleType,
		Rating:      prof.Rating,
		Price:       cmd.Price,
		Status:      OfferPending,
		CreatedAt:   s.clock(),
	}
	if err := s.store.CreateOffer(ctx, o); err != nil {
		return nil, err
	}
	observability.OffersSubmitted.Inc()
	return o, nil
}

// ListOffers returns a trip's offers in the requested order. Ranking is a
// pure function of the current snapshot; ties keep submission order.
func (s *Service) ListOffers(ctx context.Context, tripID types.ID, mode OfferSort) ([]*Offer, error) {
	offers, err := s.store.ListOffers(ctx, tripID)
	if err != nil {
		return nil, err
	}
	SortOffers(offers, mode)
	return offers, nil
}

// ListSentOffers returns a driver's pending and rejected offers joined with
// their parent trips. An accepted offer moves the driver into the active-trip
// view instead, so it is excluded here.
func (s *Service) ListSentOffers(ctx context.Context, driverID types.ID) ([]*SentOffer, error) {
	offers, err := s.store.ListOffersByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	out := make([]*SentOffer, 0, len(offers))
	for _, o := range offers {
		t, err := s.store.GetTrip(ctx, o.TripID)
		if err == ErrNotFound {
			// Parent trip expired between queries; its offers are gone too.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, &SentOffer{Offer: o, Trip: t})
	}
	return out, nil
}
