// Package orderflow holds the order status state machine and its
// append-only history.
package orderflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/model"
)

var (
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrTerminal          = errors.New("order is already closed")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrCorruptHistory    = errors.New("order history is inconsistent")
)

// Sequence is the forward path every successful order follows.
var Sequence = []string{
	enum.OrderStatusPending,
	enum.OrderStatusAccepted,
	enum.OrderStatusPreparing,
	enum.OrderStatusReady,
	enum.OrderStatusOutForDelivery,
	enum.OrderStatusDelivered,
}

// allowedTransitions maps a status to the statuses it can move to.
// REJECTED is reachable from every non-terminal status.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:        {enum.OrderStatusAccepted, enum.OrderStatusRejected},
	enum.OrderStatusAccepted:       {enum.OrderStatusPreparing, enum.OrderStatusRejected},
	enum.OrderStatusPreparing:      {enum.OrderStatusReady, enum.OrderStatusRejected},
	enum.OrderStatusReady:          {enum.OrderStatusOutForDelivery, enum.OrderStatusRejected},
	enum.OrderStatusOutForDelivery: {enum.OrderStatusDelivered, enum.OrderStatusRejected},
}

// IsValid reports whether s is a known order status.
func IsValid(s string) bool {
	return s == enum.OrderStatusRejected || rank(s) >= 0
}

// IsTerminal reports whether no transition can leave s.
func IsTerminal(s string) bool {
	return s == enum.OrderStatusDelivered || s == enum.OrderStatusRejected
}

func rank(s string) int {
	for i, st := range Sequence {
		if st == s {
			return i
		}
	}
	return -1
}

// New puts a freshly built order into its initial state.
func New(o *model.Order, now time.Time) {
	o.Status = enum.OrderStatusPending
	o.History = []model.StatusEntry{{
		Status:    enum.OrderStatusPending,
		Time:      now,
		UpdatedBy: enum.ActorSystem,
	}}
}

// Validate checks whether moving from current to next is allowed.
func Validate(current, next string) error {
	if !IsValid(current) {
		return fmt.Errorf("%w: %s", ErrUnknownStatus, current)
	}
	if !IsValid(next) {
		return fmt.Errorf("%w: %s", ErrUnknownStatus, next)
	}
	if IsTerminal(current) {
		return fmt.Errorf("%w: status is %s", ErrTerminal, current)
	}
	for _, s := range allowedTransitions[current] {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot move from %s to %s", ErrIllegalTransition, current, next)
}

// Apply validates the transition and, only if it is legal, sets the new
// status and appends a history entry. The order is untouched on error.
func Apply(o *model.Order, next, actor string, now time.Time) (model.StatusEntry, error) {
	if err := Validate(o.Status, next); err != nil {
		return model.StatusEntry{}, err
	}
	entry := model.StatusEntry{Status: next, Time: now, UpdatedBy: actor}
	o.Status = next
	o.History = append(o.History, entry)
	return entry, nil
}

// NextActions lists the statuses a staff member may choose for an order in
// status s. Terminal orders get none.
func NextActions(s string) []string {
	allowed := allowedTransitions[s]
	out := make([]string, len(allowed))
	copy(out, allowed)
	return out
}

// CheckHistory verifies that a history starts with PENDING, advances one
// step at a time and ends at most once in REJECTED, with the last entry
// matching status.
func CheckHistory(status string, history []model.StatusEntry) error {
	if len(history) == 0 || history[0].Status != enum.OrderStatusPending {
		return fmt.Errorf("%w: must start with %s", ErrCorruptHistory, enum.OrderStatusPending)
	}
	for i := 1; i < len(history); i++ {
		if err := Validate(history[i-1].Status, history[i].Status); err != nil {
			return fmt.Errorf("%w: entry %d: %v", ErrCorruptHistory, i, err)
		}
	}
	if last := history[len(history)-1].Status; last != status {
		return fmt.Errorf("%w: last entry %s does not match status %s", ErrCorruptHistory, last, status)
	}
	return nil
}
