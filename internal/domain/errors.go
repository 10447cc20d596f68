package domain

import "errors"

// Failure taxonomy. Concrete errors wrap one of these; test with errors.Is.
var (
	ErrInvalidLocation       = errors.New("invalid location")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrDocumentNotFound      = errors.New("document not found")
	ErrUnreadableDocument    = errors.New("unreadable document")
	ErrEmbeddingUnavailable  = errors.New("embedding unavailable")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrStoreUnavailable      = errors.New("chunk store unavailable")
	ErrNoValidQuestions      = errors.New("no valid quiz questions")
)
