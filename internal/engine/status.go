package engine

import (
	"time"

	"github.com/pkg/errors"
)

type OrderState string

const (
	StatePending   OrderState = "Pending"
	StatePlaced    OrderState = "Placed"
	StateCompleted OrderState = "Completed"
	StateCancelled OrderState = "Cancelled"
)

// Cancel reasons recorded on business rejections.
const (
	ReasonInvalidPrice = "Invalid price"
	ReasonPostOnly     = "Post-only matched at least partially"
)

// Status is the lifecycle record of one submitted order.
//
//	Pending -> Placed -> Completed
//	Pending -> Completed
//	Pending -> Cancelled
//
// Every transition takes the time of the change and rejects a time older
// than the last update. A rejected transition leaves the record untouched.
type Status struct {
	id                string
	side              Side
	price             int64
	postOnly          bool
	originalQuantity  int64
	remainingQuantity int64
	createdAt         time.Time
	lastUpdatedAt     time.Time
	state             OrderState
	cancelReason      string
}

func newStatus(id string, o LimitOrder, t time.Time) *Status {
	return &Status{
		id:                id,
		side:              o.Side,
		price:             o.Price,
		postOnly:          o.PostOnly,
		originalQuantity:  o.Quantity,
		remainingQuantity: o.Quantity,
		createdAt:         t,
		lastUpdatedAt:     t,
		state:             StatePending,
	}
}

func (s *Status) ID() string               { return s.id }
func (s *Status) State() OrderState        { return s.state }
func (s *Status) RemainingQuantity() int64 { return s.remainingQuantity }
func (s *Status) LastUpdatedAt() time.Time { return s.lastUpdatedAt }
func (s *Status) CancelReason() string     { return s.cancelReason }
func (s *Status) OriginalQuantity() int64  { return s.originalQuantity }

// fillAsTaker records a fill of an incoming order that is still being
// matched.
func (s *Status) fillAsTaker(t time.Time, qty int64) error {
	if s.state != StatePending {
		return errors.Wrapf(ErrInvalidStateTransition, "cannot fill new order %s having status %s", s.id, s.state)
	}
	return s.fill(t, qty)
}

// fillAsMaker records a fill of a resting order.
func (s *Status) fillAsMaker(t time.Time, qty int64) error {
	if s.state != StatePlaced {
		return errors.Wrapf(ErrInvalidStateTransition, "cannot fill existing order %s having status %s", s.id, s.state)
	}
	return s.fill(t, qty)
}

func (s *Status) cancel(t time.Time, reason string) error {
	if err := s.checkTime(t); err != nil {
		return err
	}
	if s.state != StatePending {
		return errors.Wrapf(ErrInvalidStateTransition, "cannot cancel order %s having status %s", s.id, s.state)
	}
	s.lastUpdatedAt = t
	s.state = StateCancelled
	s.cancelReason = reason
	return nil
}

func (s *Status) markPlaced(t time.Time) error {
	if err := s.checkTime(t); err != nil {
		return err
	}
	if s.state != StatePending {
		return errors.Wrapf(ErrInvalidStateTransition, "cannot change status of order %s from %s to %s", s.id, s.state, StatePlaced)
	}
	s.lastUpdatedAt = t
	s.state = StatePlaced
	return nil
}

func (s *Status) checkTime(t time.Time) error {
	if t.Before(s.lastUpdatedAt) {
		return errors.Wrapf(ErrStaleTimestamp, "update time %s is older than last update %s",
			t.Format(time.RFC3339Nano), s.lastUpdatedAt.Format(time.RFC3339Nano))
	}
	return nil
}

// fill checks time, then quantity. Callers check state first.
func (s *Status) fill(t time.Time, qty int64) error {
	if err := s.checkTime(t); err != nil {
		return err
	}
	if qty < 1 {
		return errors.Wrapf(ErrInvalidArgument, "fill quantity (%d) must be positive", qty)
	}
	if qty > s.remainingQuantity {
		return errors.Wrapf(ErrQuantityExceeded, "remaining quantity (%d) is less than %d", s.remainingQuantity, qty)
	}
	s.lastUpdatedAt = t
	s.remainingQuantity -= qty
	if s.remainingQuantity == 0 {
		s.state = StateCompleted
	}
	return nil
}

// StatusView is a detached copy of a Status.
type StatusView struct {
	ID                string     `json:"id"`
	Side              Side       `json:"side"`
	Price             int64      `json:"price"`
	PostOnly          bool       `json:"postOnly"`
	OriginalQuantity  int64      `json:"originalQuantity"`
	RemainingQuantity int64      `json:"remainingQuantity"`
	DateCreated       time.Time  `json:"dateCreated"`
	DateLastUpdated   time.Time  `json:"dateLastUpdated"`
	Status            OrderState `json:"status"`
	CancelReason      *string    `json:"cancelReason"`
}

func (s *Status) View() StatusView {
	v := StatusView{
		ID:                s.id,
		Side:              s.side,
		Price:             s.price,
		PostOnly:          s.postOnly,
		OriginalQuantity:  s.originalQuantity,
		RemainingQuantity: s.remainingQuantity,
		DateCreated:       s.createdAt,
		DateLastUpdated:   s.lastUpdatedAt,
		Status:            s.state,
	}
	if s.state == StateCancelled {
		reason := s.cancelReason
		v.CancelReason = &reason
	}
	return v
}
