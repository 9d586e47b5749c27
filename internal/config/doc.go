// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads askthread settings from TOML.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (ASKTHREAD_<SECTION>_<KEY>)
//   - ~/.askthread/config.toml, or the file given with --config
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	client, err := answer.NewHTTPClient(answer.HTTPConfig{
//	    BaseURL: cfg.Service.BaseURL,
//	    Timeout: cfg.Service.Timeout(),
//	})
package config
