package auth

import "errors"

type ErrorKind string

const (
	KindEmailInUse        ErrorKind = "email-already-in-use"
	KindWeakPassword      ErrorKind = "weak-password"
	KindInvalidEmail      ErrorKind = "invalid-email"
	KindInvalidCredential ErrorKind = "invalid-credential"
	KindInvalidToken      ErrorKind = "invalid-token"
)

var kindMessages = map[ErrorKind]string{
	KindEmailInUse:        "This email address is already in use.",
	KindWeakPassword:      "Password should be at least 6 characters long.",
	KindInvalidEmail:      "Please enter a valid email address.",
	KindInvalidCredential: "Invalid email or password. Please try again.",
	KindInvalidToken:      "Your session has expired. Please sign in again.",
}

// Error is a rejection by the session provider. Error() is the user-facing message.
type Error struct {
	Kind ErrorKind
}

func (e *Error) Error() string {
	if msg, ok := kindMessages[e.Kind]; ok {
		return msg
	}
	return string(e.Kind)
}

func newError(kind ErrorKind) error {
	return &Error{Kind: kind}
}

// KindOf returns the kind of an auth error, or "" for any other error.
func KindOf(err error) ErrorKind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return ""
}
