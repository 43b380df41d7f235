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
	"math/rand"
	"strings"
)

// Curated stage/fashion photo pools per style keyword, used when image
// generation is unavailable. Multiple options per category so repeated
// regeneration clicks show variety. Ordered so the first matching
// keyword wins.
var placeholderPools = []struct {
	keyword string
	photos  []string
}{
	{"cyberpunk", []string{
		"photo-1614680376593-902f74cf0d41",
		"photo-1550745165-9bc0b252726f",
		"photo-1633356122102-3fe601e05bd2",
	}},
	{"street", []string{
		"photo-1547153760-18fc86324498",
		"photo-1509631179647-0177331693ae",
		"photo-1574680096145-d05b474e2155",
	}},
	{"y2k", []string{
		"photo-1598387993441-a364f854c3e1",
		"photo-1558171813-4c088753af8f",
		"photo-1516450360452-9312f5e86fc7",
	}},
	{"dark", []string{
		"photo-1493225457124-a1a2a5f5f4a6",
		"photo-1504609773096-104ff2c73ba4",
		"photo-1470229722913-7c0e2dbbafd3",
	}},
	{"royal", []string{
		"photo-1514525253161-7a46d19cd819",
		"photo-1507003211169-0a1dd7228f2d",
		"photo-1492684223066-81342ee5ff30",
	}},
	{"neon", []string{
		"photo-1549298916-b41d501d3772",
		"photo-1557672172-298e090bd0f1",
		"photo-1618005182384-a83a8bd57fbe",
	}},
}

var placeholderDefaultPool = []string{
	"photo-1459749411175-04bf5292ceea",
	"photo-1501386761578-eac5c94b800a",
	"photo-1540039155733-5bb30b53aa14",
}

// PlaceholderImageURL returns a static stage photo URL matched to the
// style keyword, picked at random from the matching pool.
func PlaceholderImageURL(style string) string {
	styleLower := strings.ToLower(style)
	pool := placeholderDefaultPool
	for _, p := range placeholderPools {
		if strings.Contains(styleLower, p.keyword) {
			pool = p.photos
			break
		}
	}
	photoID := pool[rand.Intn(len(pool))]
	return "https://images.unsplash.com/" + photoID + "?q=80&w=800&auto=format&fit=crop"
}
