package flex

import "time"

// Provider error codes documented for the Flex Web Service.
const (
	CodeInvalidQuery        = "1003"
	CodeQueryNotFound       = "1004"
	CodeServerBusy          = "1009"
	CodeTokenExpired        = "1012"
	CodeInvalidToken        = "1015"
	CodeRateLimited         = "1018"
	CodeStatementInProgress = "1019"
	CodeDateRangeExceeded   = "1020"
)

// Class is the handling category of a provider error code.
type Class int

const (
	ClassFatal Class = iota
	ClassRetryable
	ClassTokenInvalid
	ClassTokenExpired
)

func (c Class) String() string {
	switch c {
	case ClassRetryable:
		return "retryable"
	case ClassTokenInvalid:
		return "token-invalid"
	case ClassTokenExpired:
		return "token-expired"
	default:
		return "fatal"
	}
}

// Classification pairs a class with the backoff base the provider suggests for it.
// RetryHint is zero when the provider suggests no backoff base for the class.
type Classification struct {
	Class     Class
	RetryHint time.Duration
}

const (
	busyRetryHint      = 5 * time.Second
	rateLimitRetryHint = 10 * time.Second
)

// Classify maps any provider error code to a classification. Unknown and
// empty codes are fatal.
func Classify(code string) Classification {
	switch code {
	case CodeTokenExpired:
		return Classification{Class: ClassTokenExpired}
	case CodeInvalidToken:
		return Classification{Class: ClassTokenInvalid}
	case CodeRateLimited:
		return Classification{Class: ClassRetryable, RetryHint: rateLimitRetryHint}
	case CodeServerBusy, CodeStatementInProgress:
		return Classification{Class: ClassRetryable, RetryHint: busyRetryHint}
	default:
		return Classification{Class: ClassFatal}
	}
}
