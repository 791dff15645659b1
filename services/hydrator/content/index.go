// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package content

import (
	"maps"
	"slices"

	"github.com/AleutianAI/hydrator/services/hydrator/backend"
)

// DiscussionIndex maps tag -> sort -> ordered content keys.
//
// Each list holds a key at most once, in first-seen order. Use Append to
// add keys; writing the maps directly bypasses deduplication.
type DiscussionIndex map[string]map[string][]string

// Append adds key to the list for (tag, sort) unless it is already there.
//
// Returns true if the key was added.
func (idx DiscussionIndex) Append(tag, sort, key string) bool {
	sorts, ok := idx[tag]
	if !ok {
		sorts = make(map[string][]string)
		idx[tag] = sorts
	}
	keys := sorts[sort]
	if slices.Contains(keys, key) {
		return false
	}
	sorts[sort] = append(keys, key)
	return true
}

// Keys returns the list for (tag, sort). The slice must not be modified.
func (idx DiscussionIndex) Keys(tag, sort string) []string {
	return idx[tag][sort]
}

// Result is the output of one aggregation: content keyed "author/permlink"
// and the listing order for the page.
type Result struct {
	Content       map[string]backend.Record `json:"content"`
	DiscussionIdx DiscussionIndex           `json:"discussion_idx"`
}

// NewResult returns an empty Result with non-nil maps.
func NewResult() *Result {
	return &Result{
		Content:       make(map[string]backend.Record),
		DiscussionIdx: make(DiscussionIndex),
	}
}

// Merge folds other into r.
//
// Content from other overwrites entries with the same key. Index keys are
// appended in other's order, skipping keys r already lists.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	if r.Content == nil {
		r.Content = make(map[string]backend.Record, len(other.Content))
	}
	if r.DiscussionIdx == nil {
		r.DiscussionIdx = make(DiscussionIndex, len(other.DiscussionIdx))
	}
	maps.Copy(r.Content, other.Content)

	for _, tag := range slices.Sorted(maps.Keys(other.DiscussionIdx)) {
		sorts := other.DiscussionIdx[tag]
		for _, sort := range slices.Sorted(maps.Keys(sorts)) {
			for _, key := range sorts[sort] {
				r.DiscussionIdx.Append(tag, sort, key)
			}
		}
	}
}
