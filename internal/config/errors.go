package config

import (
	"errors"
	"fmt"
)

var (
	// ErrLoadConfig wraps file, env and unmarshal failures.
	ErrLoadConfig = errors.New("load config failed")

	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrWindowTooLong rejects a publish window longer than the session.
	ErrWindowTooLong = fmt.Errorf("%w: set-weights window exceeds session window", ErrInvalidConfig)

	// ErrUnknownHotkey rejects a hotkey that holds no evaluator slot.
	ErrUnknownHotkey = fmt.Errorf("%w: hotkey not listed in evaluators", ErrInvalidConfig)
)
