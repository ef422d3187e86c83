package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Datalink
	// ========================================================================
	KeyStation   = "station"   // MS/TP station MAC address (0..127, or 255 for broadcast)
	KeyNetwork   = "network"   // NPDU network number (0 = local)
	KeyFrameType = "frame_type" // MS/TP frame type octet

	// ========================================================================
	// Transaction State Machine
	// ========================================================================
	KeyInvokeID      = "invoke_id"      // Confirmed-request invoke ID
	KeyPeer          = "peer"           // Peer address a transaction is keyed on
	KeySegmentWindow = "segment_window" // Negotiated segmentation window size

	// ========================================================================
	// Application Layer
	// ========================================================================
	KeyService   = "service"    // Confirmed/unconfirmed service choice
	KeyObjectRef = "object_ref" // Object type/instance pair a request addresses

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric error code
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts

	// ========================================================================
	// Request Context (LogContext fields injected by the *Ctx functions)
	// ========================================================================
	KeyProcedure = "procedure" // LogContext.Procedure
	KeyShare     = "share"     // LogContext.Share
	KeyClientIP  = "client_ip" // LogContext.ClientIP
	KeyUID       = "uid"       // LogContext.UID
	KeyGID       = "gid"       // LogContext.GID
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Station returns a slog.Attr for an MS/TP station address.
func Station(mac byte) slog.Attr {
	return slog.Int(KeyStation, int(mac))
}

// Network returns a slog.Attr for an NPDU network number.
func Network(net uint16) slog.Attr {
	return slog.Int(KeyNetwork, int(net))
}

// FrameType returns a slog.Attr for an MS/TP frame type octet.
func FrameType(t byte) slog.Attr {
	return slog.Int(KeyFrameType, int(t))
}

// InvokeID returns a slog.Attr for a confirmed-request invoke ID.
func InvokeID(id byte) slog.Attr {
	return slog.Int(KeyInvokeID, int(id))
}

// Peer returns a slog.Attr for the peer address a transaction is keyed on.
func Peer(addr string) slog.Attr {
	return slog.String(KeyPeer, addr)
}

// SegmentWindow returns a slog.Attr for a negotiated segmentation window size.
func SegmentWindow(n int) slog.Attr {
	return slog.Int(KeySegmentWindow, n)
}

// Service returns a slog.Attr for a confirmed/unconfirmed service choice.
func Service(choice uint8) slog.Attr {
	return slog.Int(KeyService, int(choice))
}

// ObjectRef returns a slog.Attr for an object type/instance pair, formatted
// the way BACnet object identifiers are conventionally displayed.
func ObjectRef(objType uint16, instance uint32) slog.Attr {
	return slog.String(KeyObjectRef, fmt.Sprintf("%d:%d", objType, instance))
}

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric error code.
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for the maximum retry attempts.
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}
