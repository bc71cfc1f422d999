package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrFieldTypeConflict     = errors.New("custom field already defined with a different type")
	ErrInvalidMergeStyle     = errors.New("invalid merge style")
	ErrRepositoryUnavailable = errors.New("lexicon repository unavailable")
	ErrImportInProgress      = errors.New("another import is running")
	ErrInvalidArgument       = errors.New("invalid argument")
)
