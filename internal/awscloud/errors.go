package awscloud

import (
	"context"
	"errors"
	"net"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

var transientCodes = map[string]struct{}{
	"Throttling":                  {},
	"ThrottlingException":         {},
	"ThrottledException":          {},
	"RequestLimitExceeded":        {},
	"TooManyRequestsException":    {},
	"RequestThrottledException":   {},
	"ServiceUnavailable":          {},
	"ServiceUnavailableException": {},
	"InternalFailure":             {},
	"InternalError":               {},
	"RequestTimeout":              {},
	"RequestTimeoutException":     {},
	"IDPCommunicationError":       {},
}

// IsTransient reports whether err is worth retrying: throttling, a 5xx
// response or a network failure. Cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := transientCodes[apiErr.ErrorCode()]; ok {
			return true
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() >= 500 {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// ErrorCode returns the AWS error code carried by err, or "".
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
