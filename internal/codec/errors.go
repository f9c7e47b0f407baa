package codec

import "fmt"

// EncodingError reports structured data that cannot be represented on the
// wire (negative amount, amount wider than 256 bits, too many hops). Never
// retried by callers.
type EncodingError struct {
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("packet data encoding failed: %s", e.Reason)
}

func encodingErrorf(format string, args ...interface{}) error {
	return &EncodingError{Reason: fmt.Sprintf(format, args...)}
}

// DecodingError reports malformed wire data: truncated buffers, bad tuple
// headers, unexpected struct arity. Never retried by callers.
type DecodingError struct {
	Reason string
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("packet data decoding failed: %s", e.Reason)
}

func decodingErrorf(format string, args ...interface{}) error {
	return &DecodingError{Reason: fmt.Sprintf(format, args...)}
}
