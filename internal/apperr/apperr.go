package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the boundary layer.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation"
	KindRateLimited  Kind = "rate_limited"
	KindInternal     Kind = "internal"
)

// Code identifies the specific failure inside a Kind.
type Code string

const (
	TeamNotFound            Code = "TeamNotFound"
	ChannelNotFound         Code = "ChannelNotFound"
	MessageNotFound         Code = "MessageNotFound"
	NotificationNotFound    Code = "NotificationNotFound"
	TaskNotFound            Code = "TaskNotFound"
	MeetingNotFound         Code = "MeetingNotFound"
	UserNotFound            Code = "UserNotFound"
	NotTeamMember           Code = "NotTeamMember"
	ChannelPrivateForbidden Code = "ChannelPrivateForbidden"
	InsufficientRole        Code = "InsufficientRole"
	DuplicateChannelName    Code = "DuplicateChannelName"
	AlreadyMember           Code = "AlreadyMember"
	CannotRemoveOwner       Code = "CannotRemoveOwner"
	InvalidState            Code = "InvalidState"
	InvalidInput            Code = "InvalidInput"
	InvalidToken            Code = "InvalidToken"
	RateLimited             Code = "RateLimited"
	StoreError              Code = "StoreError"
)

var codeKinds = map[Code]Kind{
	TeamNotFound:            KindNotFound,
	ChannelNotFound:         KindNotFound,
	MessageNotFound:         KindNotFound,
	NotificationNotFound:    KindNotFound,
	TaskNotFound:            KindNotFound,
	MeetingNotFound:         KindNotFound,
	UserNotFound:            KindNotFound,
	NotTeamMember:           KindForbidden,
	ChannelPrivateForbidden: KindForbidden,
	InsufficientRole:        KindForbidden,
	DuplicateChannelName:    KindConflict,
	AlreadyMember:           KindConflict,
	CannotRemoveOwner:       KindForbidden,
	InvalidState:            KindConflict,
	InvalidInput:            KindValidation,
	InvalidToken:            KindUnauthorized,
	RateLimited:             KindRateLimited,
	StoreError:              KindInternal,
}

// Error is a classified failure carrying a short message.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error whose Kind is derived from code.
func New(code Code, message string) *Error {
	kind, ok := codeKinds[code]
	if !ok {
		kind = KindInternal
	}
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap is New with an underlying cause.
func Wrap(code Code, message string, err error) *Error {
	e := New(code, message)
	e.Err = err
	return e
}

// Store wraps a persistence failure.
func Store(op string, err error) *Error {
	return Wrap(StoreError, op+" failed", err)
}

// KindOf returns the Kind of err, or KindInternal if err is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the Code of err, or StoreError if err is unclassified.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return StoreError
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// MessageOf returns the short message attached to err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
