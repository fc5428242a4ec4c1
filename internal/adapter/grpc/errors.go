package grpc

import (
	"errors"
	"strconv"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/simaogato/auction-backend/internal/domain"
)

// ErrorDomain is the domain reported in every ErrorInfo detail
const ErrorDomain = "auction.v1"

// MaxAllowedBidKey is the ErrorInfo metadata key carrying the bid ceiling
const MaxAllowedBidKey = "max_allowed_bid"

// mapError converts settlement errors to gRPC status errors with an ErrorInfo detail
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	kind := domain.KindOf(err)
	code := codeFor(kind)
	if kind == "" {
		return status.Error(code, err.Error())
	}

	info := &errdetails.ErrorInfo{
		Reason: string(kind),
		Domain: ErrorDomain,
	}
	var se *domain.SettlementError
	if kind == domain.KindBidExceedsReserve && errors.As(err, &se) {
		info.Metadata = map[string]string{MaxAllowedBidKey: strconv.FormatInt(se.MaxAllowedBid, 10)}
	}

	st, detailErr := status.New(code, err.Error()).WithDetails(info)
	if detailErr != nil {
		// If we can't attach details, return the basic status
		return status.Error(code, err.Error())
	}
	return st.Err()
}

func codeFor(kind domain.ErrorKind) codes.Code {
	switch kind {
	case domain.KindNotFound:
		return codes.NotFound
	case domain.KindInvalidInput:
		return codes.InvalidArgument
	case domain.KindAlreadySettled, domain.KindBidTooLow, domain.KindSquadFull, domain.KindNoBids:
		return codes.FailedPrecondition
	case domain.KindBidExceedsReserve:
		return codes.OutOfRange
	case domain.KindStoreUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// ErrorReason returns the settlement error kind carried by a status error, if any
func ErrorReason(err error) (domain.ErrorKind, map[string]string) {
	st, ok := status.FromError(err)
	if !ok {
		return "", nil
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok {
			return domain.ErrorKind(info.Reason), info.Metadata
		}
	}
	return "", nil
}

// MaxAllowedBid extracts the bid ceiling from a rejected PlaceBid call
func MaxAllowedBid(err error) (int64, bool) {
	kind, metadata := ErrorReason(err)
	if kind != domain.KindBidExceedsReserve {
		return 0, false
	}
	v, parseErr := strconv.ParseInt(metadata[MaxAllowedBidKey], 10, 64)
	if parseErr != nil {
		return 0, false
	}
	return v, true
}
