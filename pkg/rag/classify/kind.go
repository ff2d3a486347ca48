package classify

type Kind int

const (
	KindFileRejected Kind = iota + 1
	KindUploadFailed
	KindIndexingTimeout
	KindAuthExpired
	KindValidationFailed
	KindServerError
	KindParseFailed
)

func (k Kind) String() string {
	switch k {
	case KindFileRejected:
		return "file_rejected"
	case KindUploadFailed:
		return "upload_failed"
	case KindIndexingTimeout:
		return "indexing_timeout"
	case KindAuthExpired:
		return "auth_expired"
	case KindValidationFailed:
		return "validation_failed"
	case KindServerError:
		return "server_error"
	case KindParseFailed:
		return "parse_failed"
	}
	return "unknown"
}

// Fatal kinds abort a chat turn. An indexing timeout lets the turn proceed
// and a parse failure degrades to a fresh conversation.
func (k Kind) Fatal() bool {
	return k != KindIndexingTimeout && k != KindParseFailed
}

// User-facing messages, one per kind.
const (
	MessageFileRejected     = "This file cannot be uploaded."
	MessageUploadFailed     = "Failed to upload your documents. Please try again."
	MessageIndexingTimeout  = "Some documents are still being indexed. This answer may not reflect their full content."
	MessageAuthExpired      = "Your session has expired. Please log in again."
	MessageValidationFailed = "The request was rejected"
	MessageServerError      = "The assistant is temporarily unavailable. Please try again later."
	MessageParseFailed      = "The saved conversation could not be read. A new conversation was started."
	MessageFallback         = "Sorry, something went wrong. Please try again."
)

func (k Kind) Message() string {
	switch k {
	case KindFileRejected:
		return MessageFileRejected
	case KindUploadFailed:
		return MessageUploadFailed
	case KindIndexingTimeout:
		return MessageIndexingTimeout
	case KindAuthExpired:
		return MessageAuthExpired
	case KindValidationFailed:
		return MessageValidationFailed
	case KindServerError:
		return MessageServerError
	case KindParseFailed:
		return MessageParseFailed
	}
	return MessageFallback
}
