package model

import (
	"errors"
	"fmt"
)

// Failure classes of a run. Every one of them is fatal for the run.
var (
	ErrNetwork = errors.New("network error")
	ErrParse   = errors.New("parse error")
	ErrConfig  = errors.New("config error")
	ErrStorage = errors.New("storage error")
)

// ErrNotConverted is returned by sinks handed a record without its GBP, EUR and INR values.
var ErrNotConverted = fmt.Errorf("%w: record is not converted", ErrStorage)
