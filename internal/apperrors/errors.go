// Package apperrors defines the named error kinds surfaced across the
// discovery, UPnP, and YXC layers.
package apperrors

import "fmt"

// Kind identifies the category of a control-plane error.
type Kind string

const (
	KindTransport          Kind = "transport"
	KindInvalidResponse    Kind = "invalid_response"
	KindUpnpError          Kind = "upnp_error"
	KindPreconditionFailed Kind = "precondition_failed"
	KindAlreadyRegistered  Kind = "already_registered"
	KindNotFound           Kind = "not_found"
	KindArgumentError      Kind = "argument_error"

	KindInitializing        Kind = "initializing"
	KindInternalError       Kind = "internal_error"
	KindInvalidRequest      Kind = "invalid_request"
	KindInvalidParameter    Kind = "invalid_parameter"
	KindGuarded             Kind = "guarded"
	KindTimeout             Kind = "timeout"
	KindFirmwareUpdating    Kind = "firmware_updating"
	KindAccessError         Kind = "access_error"
	KindStreamingError      Kind = "streaming_error"
	KindWrongUsername       Kind = "wrong_username"
	KindWrongPassword       Kind = "wrong_password"
	KindAccountExpired      Kind = "account_expired"
	KindAccountDisconnected Kind = "account_disconnected"
	KindAccountLimitReached Kind = "account_limit_reached"
	KindServerMaintenance   Kind = "server_maintenance"
	KindInvalidAccount      Kind = "invalid_account"
	KindLicenseError        Kind = "license_error"
	KindReadOnlyMode        Kind = "read_only_mode"
	KindMaxStations         Kind = "max_stations"
	KindAccessDenied        Kind = "access_denied"
	KindUnknownError        Kind = "unknown_error"
)

// Error is the single error type used across the control plane. Kind
// discriminates the case; the extra fields are populated only for the
// kinds that carry them.
type Error struct {
	Kind         Kind
	Message      string
	UpnpCode     string
	UpnpDesc     string
	ResponseCode int
	Err          error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUpnpError:
		if e.UpnpDesc == "" {
			return fmt.Sprintf("upnp error: code %s", e.UpnpCode)
		}
		return fmt.Sprintf("upnp error: code %s (%s)", e.UpnpCode, e.UpnpDesc)
	default:
		if e.Message != "" {
			return e.Message
		}
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Kind_ returns e's Kind. To read the Kind of an error that may wrap an
// *Error, use KindOf.
func (e *Error) Kind_() Kind { return e.Kind }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NewTransport(err error) *Error {
	return &Error{Kind: KindTransport, Message: "transport error", Err: err}
}

func NewInvalidResponse(message string) *Error {
	return &Error{Kind: KindInvalidResponse, Message: message}
}

func NewUpnpError(code, description string) *Error {
	return &Error{Kind: KindUpnpError, UpnpCode: code, UpnpDesc: description}
}

func NewPreconditionFailed() *Error {
	return &Error{Kind: KindPreconditionFailed, Message: "gena subscription rejected: precondition failed"}
}

func NewAlreadyRegistered(deviceID string) *Error {
	return &Error{Kind: KindAlreadyRegistered, Message: "device already registered: " + deviceID}
}

func NewNotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: "not found: " + what}
}

func NewArgumentError(message string) *Error {
	return &Error{Kind: KindArgumentError, Message: message}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			appErr = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if appErr == nil {
		return "", false
	}
	return appErr.Kind, true
}

// yxcResponseCodes maps a MusicCast YXC response_code to a deterministic
// named Kind. 0 is success and never reaches this table — callers strip it
// before returning. Codes with no assigned meaning fall through to
// KindUnknownError, which is itself a stable, deterministic outcome.
var yxcResponseCodes = map[int]Kind{
	1:   KindInitializing,
	2:   KindInternalError,
	3:   KindInvalidRequest,
	4:   KindInvalidParameter,
	5:   KindGuarded,
	6:   KindTimeout,
	10:  KindFirmwareUpdating,
	20:  KindAccessError,
	21:  KindStreamingError,
	99:  KindWrongUsername,
	100: KindWrongPassword,
	101: KindAccountExpired,
	102: KindAccountDisconnected,
	103: KindAccountLimitReached,
	104: KindServerMaintenance,
	105: KindInvalidAccount,
	106: KindLicenseError,
	107: KindReadOnlyMode,
	108: KindMaxStations,
	109: KindAccessDenied,
}

// NewYXCError maps a non-zero response_code from a YXC endpoint to a named
// error kind. The mapping is total: unrecognized codes deterministically
// resolve to KindUnknownError rather than panicking or returning ok=false.
func NewYXCError(responseCode int) *Error {
	kind, ok := yxcResponseCodes[responseCode]
	if !ok {
		kind = KindUnknownError
	}
	return &Error{
		Kind:         kind,
		Message:      fmt.Sprintf("yxc response_code %d", responseCode),
		ResponseCode: responseCode,
	}
}
