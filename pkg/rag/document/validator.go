package document

import (
	"fmt"
	"mime"
	"strings"

	"docchat-client/internal/constant"
	"docchat-client/pkg/backend"

	"github.com/gabriel-vasile/mimetype"
)

type RejectReason string

const (
	RejectType      RejectReason = "type"
	RejectSize      RejectReason = "size"
	RejectDuplicate RejectReason = "duplicate"
)

// Rejection explains why a file never made it into the staging area.
type Rejection struct {
	Filename string
	Reason   RejectReason
	Message  string
}

func (r Rejection) Error() string {
	return r.Message
}

type Validator struct {
	maxBytes int64
	allowed  map[string]struct{}
}

func NewValidator(maxBytes int64) *Validator {
	allowed := make(map[string]struct{}, len(constant.AllowedDocumentMimeTypes))
	for _, t := range constant.AllowedDocumentMimeTypes {
		allowed[t] = struct{}{}
	}
	return &Validator{maxBytes: maxBytes, allowed: allowed}
}

// Validate checks type, then size, then name uniqueness against taken. On
// success it returns the file with its content type resolved.
func (v *Validator) Validate(file backend.FileUpload, taken map[string]struct{}) (backend.FileUpload, *Rejection) {
	contentType := v.ContentType(file)
	if _, ok := v.allowed[contentType]; !ok {
		return file, &Rejection{
			Filename: file.Filename,
			Reason:   RejectType,
			Message:  fmt.Sprintf("%s is not a supported file type. Upload PDF, Word or text files.", file.Filename),
		}
	}

	if int64(len(file.Data)) > v.maxBytes {
		return file, &Rejection{
			Filename: file.Filename,
			Reason:   RejectSize,
			Message:  fmt.Sprintf("%s is larger than the %s limit.", file.Filename, humanBytes(v.maxBytes)),
		}
	}

	if _, dup := taken[file.Filename]; dup {
		return file, &Rejection{
			Filename: file.Filename,
			Reason:   RejectDuplicate,
			Message:  fmt.Sprintf("%s has already been added.", file.Filename),
		}
	}

	file.ContentType = contentType
	return file, nil
}

// ContentType returns the declared media type without parameters, sniffing
// the content when nothing useful was declared.
func (v *Validator) ContentType(file backend.FileUpload) string {
	declared := baseType(file.ContentType)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return baseType(mimetype.Detect(file.Data).String())
}

func baseType(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.ToLower(value)
	}
	return mediaType
}

func humanBytes(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
