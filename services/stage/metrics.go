// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Degraded-mode operation is invisible to callers by design, so the
// counters below are the operator's only signal that the inference
// provider is struggling.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncstage_uploads_total",
		Help: "Audio uploads processed, by outcome (analyzed, fallback).",
	}, []string{"outcome"})

	patchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncstage_patches_total",
		Help: "Patch attempts, by outcome (applied, noop, fallback, conflict, rejected).",
	}, []string{"outcome"})

	visualsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncstage_visuals_total",
		Help: "Visual generations, by source (generated, placeholder).",
	}, []string{"source"})
)
