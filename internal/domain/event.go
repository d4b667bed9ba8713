/**
 * @description
 * This file models the incoming webhook payloads from RevenueCat and the
 * enumerated event types this service reacts to. The payload structs are
 * essential for safely unmarshaling the JSON received at the webhook
 * endpoint and dispatching it in a type-safe manner.
 *
 * @notes
 * - RevenueCat deliveries are expected as a flat `{event, app_user_id}`
 *   body, but the provider's full envelope nests those fields under an
 *   `event` object. ParseWebhookPayload accepts both shapes.
 * - App user IDs carry provider prefixes (e.g. "app_12"); the local
 *   numeric ID is recovered by stripping every non-digit character.
 */
package domain

import (
	"encoding/json"
	"errors"
	"strconv"
)

// EventType enumerates the RevenueCat subscription lifecycle events.
type EventType string

const (
	EventInitialPurchase EventType = "INITIAL_PURCHASE"
	EventRenewal         EventType = "RENEWAL"
	EventCancellation    EventType = "CANCELLATION"
	EventExpiration      EventType = "EXPIRATION"
	// EventUnknown covers every event type outside the handled set, keeping
	// the enum total. Unknown events are acknowledged without any state
	// change so the provider does not retry them. The sentinel is a distinct
	// label so an empty event string cannot masquerade as it.
	EventUnknown EventType = "UNKNOWN"
)

// ParseEventType maps a raw event string onto the enumerated set.
// Unrecognized strings map to EventUnknown.
func ParseEventType(raw string) EventType {
	switch EventType(raw) {
	case EventInitialPurchase, EventRenewal, EventCancellation, EventExpiration:
		return EventType(raw)
	default:
		return EventUnknown
	}
}

// WebhookPayload is the decoded body of a RevenueCat webhook delivery.
type WebhookPayload struct {
	Event     string `json:"event"`
	AppUserID string `json:"app_user_id"`
}

// nestedEnvelope is the provider's full delivery shape, where the event
// fields live under an `event` object.
type nestedEnvelope struct {
	Event struct {
		Type      string `json:"type"`
		AppUserID string `json:"app_user_id"`
	} `json:"event"`
}

// ErrMalformedPayload is returned when the body is not valid JSON.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// ParseWebhookPayload decodes a webhook body, tolerating both the flat
// `{event, app_user_id}` shape and the nested provider envelope. Missing
// fields are left empty for the caller to validate.
func ParseWebhookPayload(body []byte) (WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		// The flat decode fails when `event` is a JSON object rather than a
		// string; fall through to the nested shape before giving up.
		var nested nestedEnvelope
		if nestedErr := json.Unmarshal(body, &nested); nestedErr != nil {
			return WebhookPayload{}, ErrMalformedPayload
		}
		payload.Event = nested.Event.Type
		payload.AppUserID = nested.Event.AppUserID
		return payload, nil
	}

	if payload.Event == "" || payload.AppUserID == "" {
		var nested nestedEnvelope
		if err := json.Unmarshal(body, &nested); err == nil {
			if payload.Event == "" {
				payload.Event = nested.Event.Type
			}
			if payload.AppUserID == "" {
				payload.AppUserID = nested.Event.AppUserID
			}
		}
	}

	return payload, nil
}

// ErrNoLocalID is returned when an app user ID contains no digits and
// therefore cannot name any local user.
var ErrNoLocalID = errors.New("app user id contains no local identifier")

// ExtractLocalUserID recovers the numeric local user ID from a prefixed
// provider identifier by stripping every non-digit character
// (e.g. "app_12" -> 12). This is the provider-compatible lookup
// convention; callers treat a failed extraction the same as an unknown
// user.
func ExtractLocalUserID(appUserID string) (int64, error) {
	digits := make([]byte, 0, len(appUserID))
	for i := 0; i < len(appUserID); i++ {
		if appUserID[i] >= '0' && appUserID[i] <= '9' {
			digits = append(digits, appUserID[i])
		}
	}
	if len(digits) == 0 {
		return 0, ErrNoLocalID
	}

	id, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return 0, ErrNoLocalID
	}
	return id, nil
}
