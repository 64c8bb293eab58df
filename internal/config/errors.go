// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "errors"

var (
	// ErrUnknownConfigField marks strict YAML parse failures caused by unknown keys.
	ErrUnknownConfigField = errors.New("unknown config field")

	// ErrMultipleDocuments rejects config files carrying more than one YAML document.
	ErrMultipleDocuments = errors.New("config file contains multiple documents or trailing content")
)
