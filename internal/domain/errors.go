package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a settlement operation was refused
type ErrorKind string

const (
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindAlreadySettled    ErrorKind = "ALREADY_SETTLED"
	KindBidTooLow         ErrorKind = "BID_TOO_LOW"
	KindSquadFull         ErrorKind = "SQUAD_FULL"
	KindBidExceedsReserve ErrorKind = "BID_EXCEEDS_RESERVE"
	KindNoBids            ErrorKind = "NO_BIDS"
	KindStoreUnavailable  ErrorKind = "STORE_UNAVAILABLE"
	KindInvalidInput      ErrorKind = "INVALID_INPUT"
)

// Sentinel errors, one per kind. Match them with errors.Is.
var (
	ErrNotFound          = &SettlementError{Kind: KindNotFound, Message: "not found"}
	ErrAlreadySettled    = &SettlementError{Kind: KindAlreadySettled, Message: "item is already settled"}
	ErrBidTooLow         = &SettlementError{Kind: KindBidTooLow, Message: "bid too low"}
	ErrSquadFull         = &SettlementError{Kind: KindSquadFull, Message: "squad is full"}
	ErrBidExceedsReserve = &SettlementError{Kind: KindBidExceedsReserve, Message: "bid exceeds reserve"}
	ErrNoBids            = &SettlementError{Kind: KindNoBids, Message: "no bids placed"}
	ErrStoreUnavailable  = &SettlementError{Kind: KindStoreUnavailable, Message: "store unavailable"}
	ErrInvalidInput      = &SettlementError{Kind: KindInvalidInput, Message: "invalid input"}
)

// SettlementError is the typed failure returned by every engine operation
type SettlementError struct {
	Kind    ErrorKind
	Message string
	// MaxAllowedBid is set for KindBidExceedsReserve so callers can clamp their input
	MaxAllowedBid int64
	Err           error
}

func (e *SettlementError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}

// Is matches any SettlementError of the same kind
func (e *SettlementError) Is(target error) bool {
	t, ok := target.(*SettlementError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError builds a SettlementError of kind with a formatted message
func NewError(kind ErrorKind, format string, args ...any) *SettlementError {
	return &SettlementError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ExceedsReserve builds a KindBidExceedsReserve error carrying the ceiling
func ExceedsReserve(amount, maxAllowed int64) *SettlementError {
	return &SettlementError{
		Kind:          KindBidExceedsReserve,
		Message:       fmt.Sprintf("bid %d exceeds the maximum allowed bid of %d", amount, maxAllowed),
		MaxAllowedBid: maxAllowed,
	}
}

// StoreFailure wraps a collaborator error as KindStoreUnavailable.
// Errors that are already settlement errors pass through unchanged.
func StoreFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *SettlementError
	if errors.As(err, &se) {
		return err
	}
	return &SettlementError{Kind: KindStoreUnavailable, Message: op, Err: err}
}

// KindOf returns the kind of err, or "" when err is not a settlement error
func KindOf(err error) ErrorKind {
	var se *SettlementError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
