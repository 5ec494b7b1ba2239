package config

import "errors"

// validation errors
var (
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidPoolSize    = errors.New("invalid pool size")
	ErrInvalidReplacement = errors.New("invalid replacement mode")
	ErrInvalidWindow      = errors.New("invalid retry window")
	ErrInvalidRule        = errors.New("invalid supervision rule")
	ErrInvalidDirective   = errors.New("invalid directive")
	ErrInvalidRatio       = errors.New("invalid self stop ratio")
	ErrInvalidSchedule    = errors.New("invalid schedule")
	ErrInvalidMailbox     = errors.New("invalid mailbox")
	ErrInvalidQuiescence  = errors.New("invalid quiescence period")
)

// loading errors
var (
	ErrConfigParse     = errors.New("configuration parse error")
	ErrEnvironmentVar  = errors.New("environment variable error")
	ErrUnsupportedFile = errors.New("unsupported configuration file")
)
