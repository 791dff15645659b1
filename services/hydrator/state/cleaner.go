// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package state

import (
	"slices"

	"github.com/AleutianAI/hydrator/services/hydrator/backend"
	"github.com/AleutianAI/hydrator/services/hydrator/content"
)

// Cleaner is the final normalization pass over an assembled snapshot.
//
// Clean may modify s in place and return it, or return a new Snapshot.
// Returning nil fails the hydration.
type Cleaner interface {
	Clean(s *Snapshot) *Snapshot
}

// CleanerFunc adapts a function to the Cleaner interface.
type CleanerFunc func(s *Snapshot) *Snapshot

// Clean calls f(s).
func (f CleanerFunc) Clean(s *Snapshot) *Snapshot {
	return f(s)
}

// DefaultCleaner is the Cleaner used when none is configured.
//
// It guarantees every map is non-nil, removes index keys that have no
// entry in Content, and removes profiles without a name.
var DefaultCleaner Cleaner = CleanerFunc(normalize)

func normalize(s *Snapshot) *Snapshot {
	if s == nil {
		return NewSnapshot()
	}
	if s.Accounts == nil {
		s.Accounts = make(map[string]backend.Record)
	}
	if s.Community == nil {
		s.Community = make(map[string]backend.Record)
	}
	if s.Content == nil {
		s.Content = make(map[string]backend.Record)
	}
	if s.DiscussionIdx == nil {
		s.DiscussionIdx = make(content.DiscussionIndex)
	}
	if s.Profiles == nil {
		s.Profiles = make(map[string]backend.Record)
	}

	for _, sorts := range s.DiscussionIdx {
		for sort, keys := range sorts {
			sorts[sort] = slices.DeleteFunc(keys, func(k string) bool {
				_, ok := s.Content[k]
				return !ok
			})
		}
	}

	for name, profile := range s.Profiles {
		if profile.StringField("name") == "" {
			delete(s.Profiles, name)
		}
	}
	return s
}
