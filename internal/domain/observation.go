// Package domain holds the value types shared across the market-analysis
// pipeline. Nothing in this package talks to the network, the filesystem,
// or a clock; every type here is an immutable data carrier.
package domain

import "time"

// ObservationType enumerates the kinds of read-only probe the VLM/DOM
// observer surface accepts.
type ObservationType string

const (
	ObsScreenDescription ObservationType = "screen_description"
	ObsElementQuery       ObservationType = "element_query"
	ObsElementFind        ObservationType = "element_find"
	ObsStateCheck         ObservationType = "check_app_state"
	ObsVision             ObservationType = "vision"
	ObsVisionBufferRead   ObservationType = "vision_buffer_read"
)

// ObservationContext enumerates where an Observation is targeted.
type ObservationContext string

const (
	ContextDesktop      ObservationContext = "desktop"
	ContextWeb          ObservationContext = "web"
	ContextFile         ObservationContext = "file"
	ContextVision       ObservationContext = "vision"
	ContextVisionBuffer ObservationContext = "vision_buffer"
)

// Observation is an immutable, side-effect-free request for information
// about the current screen or chart state. Target is required for every
// ObservationType except whole-screen description types.
type Observation struct {
	Type    ObservationType
	Context ObservationContext
	Target  string
}

// ObservationStatus is the result discriminator of an ObservationResult.
type ObservationStatus string

const (
	ObservationSuccess  ObservationStatus = "success"
	ObservationNotFound ObservationStatus = "not_found"
	ObservationError    ObservationStatus = "error"
)

// ObservationMetadata carries the source tag, confidence, and both a raw
// textual dump and a structured interpretation of an observation result.
type ObservationMetadata struct {
	Source          string
	Confidence      float64
	RawText         string
	Interpretation  map[string]any
}

// ObservationResult is the outcome of performing an Observation.
type ObservationResult struct {
	Observation Observation
	Status      ObservationStatus
	Result      string
	Err         string
	Timestamp   time.Time
	Metadata    ObservationMetadata
}
