package constant

const (
	ChatMessageOriginUser      = "user"
	ChatMessageOriginAssistant = "assistant"

	ChatMessageKindWelcome = "welcome"
	ChatMessageKindUser    = "user"
	ChatMessageKindBot     = "bot"
	ChatMessageKindError   = "error"
	ChatMessageKindFile    = "file"

	// Wire values for the backend "context" field
	ChatContextGeneral   = "general"
	ChatContextDocuments = "documents"

	ChatDefaultLanguage = "en-US"

	ChatWelcomeMessage = "Hello! I can help you with both document search and general questions about the organization. How can I assist you today?"

	ChatGeneralModeAdvisory  = "General mode: answers come from the assistant's general knowledge about the organization. Switch to document search to ground answers in your files."
	ChatDocumentModeAdvisory = "Document search mode: answers are grounded in your uploaded documents. Attach PDF, Word or text files (max 10MB each) or select documents you uploaded before."

	ChatIndexingTimeoutAdvisory = "Some documents are still being indexed. This answer may not reflect their full content."

	ChatSessionTitleEllipsis = "..."
)

// Allowed upload MIME types
const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeDOC  = "application/msword"
	MimeText = "text/plain"
)

var AllowedDocumentMimeTypes = []string{MimePDF, MimeDOCX, MimeDOC, MimeText}

// Backend endpoints
const (
	BackendUploadDocumentsPath = "/chat/upload-documents"
	BackendUserDocumentsPath   = "/chat/user-documents"
	BackendDocumentPath        = "/chat/documents/"
	BackendRAGChatPath         = "/chat/rag"
	BackendSaveSessionPath     = "/chat/save-session"
	BackendSessionsPath        = "/chat/sessions"
	BackendSessionPath         = "/chat/session/"
)

// Event types published on the bus
const (
	EventTokenEvicted = "auth.token_evicted"
	EventNotification = "notification"

	NotificationLevelInfo    = "info"
	NotificationLevelSuccess = "success"
	NotificationLevelWarning = "warning"
	NotificationLevelError   = "error"
)
