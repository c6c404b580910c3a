package figurestore

import "errors"

var (
	ErrInvalidFigureID = errors.New("figurestore: figure id must match [a-zA-Z]+")
	ErrFigureExists    = errors.New("figurestore: figure already exists")
	ErrFigureNotFound  = errors.New("figurestore: figure not found")
	ErrChunkNotFound   = errors.New("figurestore: chunk not found")
	ErrFieldTooLong    = errors.New("figurestore: field exceeds maximum length")
)

const maxFieldLen = 400
