package entity

import "errors"

// Domain errors for the vocabulary learning engine.
var (
	ErrUnknownGrade   = errors.New("unknown grade level")
	ErrWordNotFound   = errors.New("word record not found")
	ErrInvalidWord    = errors.New("invalid word")
	ErrNoEmbedder     = errors.New("embedding model not configured")
	ErrVocabNotLoaded = errors.New("user vocabulary not loaded")
)
