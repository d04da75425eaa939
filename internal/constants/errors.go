package constants

import "errors"

var (
	ErrParse              = errors.New("parse error")
	ErrDecryption         = errors.New("decryption failed")
	ErrRowPersistence     = errors.New("row persistence failed")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrValidation         = errors.New("validation failed")
	ErrRunInProgress      = errors.New("import already running for chapter")
	ErrNotFound           = errors.New("not found")
)
