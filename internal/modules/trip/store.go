// README: Store interface and the error taxonomy shared by implementations.
package trip

import (
	"context"
	"errors"
	"time"

	"rumbo/internal/types"
)

var (
	// ErrNotFound: the referenced trip or offer does not exist (possibly
	// deleted by an expiry race).
	ErrNotFound = errors.New("trip not found")
	// ErrInvalidState: the requested change is not legal from the trip's
	// current status.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrConflict: a precondition failed because of a concurrent writer.
	// Callers should treat this as "already handled", not retry blindly.
	ErrConflict = errors.New("trip state conflict")
	// ErrValidation: malformed input.
	ErrValidation = errors.New("invalid trip request")
	// ErrCapacityMismatch is advisory: the trip's passenger count exceeds the
	// driver's capacity and the driver has not overridden the warning.
	ErrCapacityMismatch = errors.New("passenger count exceeds vehicle capacity")
	// ErrDuplicateOffer: the driver already has an offer on this trip.
	ErrDuplicateOffer = errors.New("offer already submitted")
	// ErrForbidden: the acting user is not a party to this transition.
	ErrForbidden = errors.New("not authorized for this trip")
)

// Store persists trips and the offers they own. AcceptOffer, CancelActive and
// DeleteSearching are all-or-nothing: they re-validate the trip's status
// inside the same atomic operation and leave everything untouched on failure.
type Store interface {
	CreateTrip(ctx context.Context, t *Trip) error
	GetTrip(ctx context.Context, id types.ID) (*Trip, error)
	ListSearching(ctx context.Context) ([]*Trip, error)
	ActiveTripFor(ctx context.Context, userID types.ID, actor Actor) (*Trip, error)

	// UpdateStatus performs a compare-and-swap on the status column. It
	// reports false when the trip is no longer in the expected state.
	UpdateStatus(ctx context.Context, id types.ID, from, to Status) (bool, error)

	// AcceptOffer binds the offer's driver and price to the trip, marks the
	// offer accepted and every sibling rejected, all atomically. The trip
	// must still be searching.
	AcceptOffer(ctx context.Context, tripID, offerID types.ID) (*Trip, *Offer, error)

	// CancelActive cancels a driver-bound trip and increments the driver's
	// cancelled-trips counter in the same transaction.
	CancelActive(ctx context.Context, tripID, driverID types.ID) (*Trip, error)

	// DeleteSearching removes a still-searching trip and its offers. When
	// expiredBefore is non-nil the trip must also have expired by that
	// instant, otherwise ErrConflict.
	DeleteSearching(ctx context.Context, tripID types.ID, expiredBefore *time.Time) error

	Archive(ctx context.Context, tripID types.ID, actor Actor) error

	// UpdateDriverLocation applies a position sample if the trip is in an
	// active state and the sample is fresher than the stored one. It reports
	// whether the sample was applied; stale samples are dropped silently.
	UpdateDriverLocation(ctx context.Context, tripID types.ID, p types.Point, at time.Time) (bool, error)

	CreateOffer(ctx context.Context, o *Offer) error
	ListOffers(ctx context.Context, tripID types.ID) ([]*Offer, error)
	ListOffersByDriver(ctx context.Context, driverID types.ID) ([]*Offer, error)
	OfferedTripIDs(ctx context.Context, driverID types.ID) (map[types.ID]struct{}, error)
}
