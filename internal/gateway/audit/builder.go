package audit

import (
	"time"

	"github.com/fetchguard/engine/internal/fetch/urlkey"
	"github.com/fetchguard/engine/pkg/types"
)

// NewEvent creates an event with identifiers and timestamp filled in.
func NewEvent(requestID, rawURL string) *FetchEvent {
	return &FetchEvent{
		RequestID: requestID,
		URL:       rawURL,
		URLKey:    urlkey.Key(rawURL),
		CreatedAt: time.Now().UTC(),
	}
}

// OutcomeForError maps a fetch error to its audit outcome. Rebinding keeps
// its own outcome so connect-time refusals stand out from pre-flight ones
// when reviewing the trail.
func OutcomeForError(err error) string {
	switch types.KindOf(err) {
	case types.KindBlocked:
		return OutcomeBlocked
	case types.KindRebindingDetected:
		return OutcomeRebindingDetected
	case types.KindResolutionFailed:
		return OutcomeResolutionFailed
	case types.KindTLSVerificationFailed:
		return OutcomeTLSFailed
	case types.KindHTTPStatusFailed:
		return OutcomeHTTPError
	case types.KindInvalidParameter:
		return OutcomeInvalidParameter
	default:
		return OutcomeConnectFailed
	}
}
