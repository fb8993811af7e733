package extract

import "errors"

var (
	// ErrUnsupportedFormat is returned for extensions outside pdf, doc, docx, txt, text.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrRead is returned when the upload cannot be read.
	ErrRead = errors.New("read error")
	// ErrCorruptDocument is returned when a parser rejects the payload.
	ErrCorruptDocument = errors.New("corrupt document")
)
