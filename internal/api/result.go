package api

import "net/http"

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindTransport
	KindAuth
	KindServerValidation
	KindServerFault
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindServerValidation:
		return "server_validation"
	case KindServerFault:
		return "server_fault"
	}

	return "unknown"
}

// Result is the outcome of one API call. HTTP-level failures are reported
// here instead of as Go errors; Handled marks failures already dealt with by
// the unauthorized hook.
type Result[T any] struct {
	Success bool
	Data    T
	Error   string
	Status  int
	Kind    ErrorKind
	Handled bool
}

type UploadData struct {
	JobID string `json:"jobId"`
}

const (
	msgConnection     = "Could not reach the server. Check your connection and try again."
	msgSessionExpired = "Your session has expired. Sign in again to continue."
	msgServerFault    = "The server had a problem processing the request. Try again later."
)

// MsgUnexpected is shown for failures that carry no user-facing message,
// such as a success response whose body could not be read.
const MsgUnexpected = "Something went wrong. Try again."


func fallbackMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request was rejected as invalid."
	case http.StatusForbidden:
		return "You do not have permission to perform this action."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusConflict:
		return "The request conflicts with an operation already in progress."
	case http.StatusRequestEntityTooLarge:
		return "The file is too large."
	case http.StatusUnprocessableEntity:
		return "The submitted data is not valid."
	case http.StatusTooManyRequests:
		return "Too many requests. Wait a moment and try again."
	}

	return "The request could not be completed."
}

func classify(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuth
	case status >= 500:
		return KindServerFault
	case status >= 400:
		return KindServerValidation
	}

	return KindNone
}
