// Package event implements the KAIREI event bus and event-type registry
// (§4.6): an in-process broadcast of Event/error values to every live
// subscriber, plus the canonical EventType taxonomy referenced throughout
// the runtime.
package event

import "github.com/kairei-project/kairei/value"

// Kind enumerates the canonical event-type taxonomy (§3 "Event").
type Kind string

const (
	KindTick                 Kind = "Tick"
	KindRequest               Kind = "Request"
	KindResponseSuccess       Kind = "ResponseSuccess"
	KindResponseFailure       Kind = "ResponseFailure"
	KindCustom                Kind = "Custom"
	KindFeatureStatusUpdated  Kind = "FeatureStatusUpdated"
	KindFeatureFailure        Kind = "FeatureFailure"
)

// Type is the tagged union backing Event.event_type. Only the fields
// relevant to Kind are populated; the rest are zero.
type Type struct {
	Kind Kind

	// Request / ResponseSuccess / ResponseFailure
	RequestType string
	Requester   string
	Responder   string
	RequestID   string
	ErrorMsg    string // ResponseFailure, FeatureFailure

	// Custom
	Name string

	// FeatureStatusUpdated
	FeatureType string
}

func Tick() Type { return Type{Kind: KindTick} }

func Request(requestType, requester, responder, requestID string) Type {
	return Type{Kind: KindRequest, RequestType: requestType, Requester: requester, Responder: responder, RequestID: requestID}
}

func ResponseSuccess(requestID, requester, responder string) Type {
	return Type{Kind: KindResponseSuccess, RequestID: requestID, Requester: requester, Responder: responder}
}

func ResponseFailure(requestID, requester, responder, errMsg string) Type {
	return Type{Kind: KindResponseFailure, RequestID: requestID, Requester: requester, Responder: responder, ErrorMsg: errMsg}
}

func Custom(name string) Type { return Type{Kind: KindCustom, Name: name} }

func FeatureStatusUpdated(featureType string) Type {
	return Type{Kind: KindFeatureStatusUpdated, FeatureType: featureType}
}

func FeatureFailure(errMsg string) Type {
	return Type{Kind: KindFeatureFailure, ErrorMsg: errMsg}
}

// Event is one published message: a typed envelope plus its parameters.
type Event struct {
	Type       Type
	Parameters map[string]value.Value
}

// New builds an Event, defensively copying params the way value.OfMap does
// so a caller mutating its own map afterwards can't corrupt a delivered
// event.
func New(t Type, params map[string]value.Value) Event {
	cp := make(map[string]value.Value, len(params))
	for k, v := range params {
		cp[k] = v
	}
	return Event{Type: t, Parameters: cp}
}
