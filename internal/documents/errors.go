package documents

import "errors"

var (
	ErrDownloadFailed = errors.New("download failed")
	ErrTooLarge       = errors.New("document exceeds size limit")
)

const (
	msgUnsupportedType = "Unsupported file type. Please upload PDF, DOCX, or TXT files."
	msgNoText          = "Unable to extract text from PDF. The file may be image-based or encrypted. Please try uploading a text-based PDF or use the questionnaire instead."
	msgUnreadable      = "Failed to parse file. Please ensure the file is not corrupted or password-protected."
	msgDownloadFailed  = "Failed to download file"
	msgTooLarge        = "File size must be less than 10MB"
)
