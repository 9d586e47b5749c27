// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry counts conversation and feedback activity.
//
// Counters are exported in Prometheus format and summarised per session.
// Metrics plugs into the conversation and feedback packages through their
// hook structs, so neither package depends on Prometheus.
//
// # Usage
//
//	m := telemetry.New()
//	sess := session.New(client, session.Options{
//	    StoreHooks:    m.StoreHooks(),
//	    FeedbackHooks: m.FeedbackHooks(),
//	})
//	go m.Serve(ctx, ":9090", log)
//
// # Privacy
//
// Question and answer text is never recorded, only counts and latencies.
package telemetry
