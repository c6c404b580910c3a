package docproc

import "errors"

var (
	// ErrUnsupportedFormat is returned for a file_type other than
	// pdf, txt, text, or docx.
	ErrUnsupportedFormat = errors.New("docproc: unsupported file type")

	// ErrEmptyExtraction is returned when extraction succeeds but
	// yields no text content.
	ErrEmptyExtraction = errors.New("docproc: no text content found in file")
)
