package domain

import (
	"time"
)

type WindowReason int

const (
	WindowOK WindowReason = iota
	WindowNotStarted
	WindowDeadlinePassed
	WindowManuallyClosed
)

func (r WindowReason) String() string {
	switch r {
	case WindowOK:
		return "ok"
	case WindowNotStarted:
		return "not_started"
	case WindowDeadlinePassed:
		return "deadline_passed"
	case WindowManuallyClosed:
		return "manually_closed"
	default:
		return "unknown"
	}
}

type WindowStatus struct {
	Open   bool
	Reason WindowReason
}

// EvaluateWindow reports whether bidding is currently allowed. The manual
// closed flag is checked first: an administrator who closes early is
// authoritative even before the deadline. Then the optional start time, then
// the optional deadline.
func EvaluateWindow(s *Settings, now time.Time) WindowStatus {
	if s.AuctionClosed {
		return WindowStatus{Reason: WindowManuallyClosed}
	}
	if s.AuctionStart != nil && now.Before(*s.AuctionStart) {
		return WindowStatus{Reason: WindowNotStarted}
	}
	if s.AuctionDeadline != nil && !now.Before(*s.AuctionDeadline) {
		return WindowStatus{Reason: WindowDeadlinePassed}
	}
	return WindowStatus{Open: true, Reason: WindowOK}
}
