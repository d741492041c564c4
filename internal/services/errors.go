// Package services defines the business logic for chats, messages, and
// document management. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

// Chat-related errors.
var (
	// ErrChatNotFound indicates that the requested chat does not exist or is
	// not accessible to the current user.
	ErrChatNotFound = errors.New("chat not found")

	// ErrEmptyMessage is returned when a request to post a message carries
	// neither text nor attachments.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTooLong is returned when a request to post a message exceeds the
	// maximum configured length limit.
	ErrTooLong = errors.New("message too long")

	// ErrFirstMessageAttachment is returned when the first message of a chat
	// carries no file attachment. Every conversation must open with the
	// blueprint under discussion.
	ErrFirstMessageAttachment = errors.New("first message must include an attachment")

	// ErrSpamDetected is returned when the sender has posted too many
	// near-identical messages inside the tracking window.
	ErrSpamDetected = errors.New("too many similar messages, please wait before retrying")

	// ErrMessageNotFound indicates that the requested message does not exist
	// or is not accessible to the current user.
	ErrMessageNotFound = errors.New("message not found")
)

// Document-related errors.
var (
	// ErrDocumentNotFound indicates that the requested document does not exist
	// or has been deleted.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrForbidden is returned when a non-admin user attempts a
	// management-only operation.
	ErrForbidden = errors.New("operation requires admin privileges")

	// ErrEmptyDocument is returned when a document upload carries no file.
	ErrEmptyDocument = errors.New("document file is empty")
)
