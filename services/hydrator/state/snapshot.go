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
	"github.com/AleutianAI/hydrator/services/hydrator/backend"
	"github.com/AleutianAI/hydrator/services/hydrator/content"
)

// Snapshot is the normalized state handed to the renderer.
//
// A Snapshot is built fresh for every Hydrate call and is owned by the
// caller once returned.
type Snapshot struct {
	// Accounts is keyed by account name.
	Accounts map[string]backend.Record `json:"accounts"`

	// Community is keyed by community tag ("hive-123456").
	Community map[string]backend.Record `json:"community"`

	// Content is keyed "author/permlink".
	Content map[string]backend.Record `json:"content"`

	// DiscussionIdx orders Content for listings.
	DiscussionIdx content.DiscussionIndex `json:"discussion_idx"`

	// Profiles is keyed by account name.
	Profiles map[string]backend.Record `json:"profiles"`

	// Topics is set in full render mode only.
	Topics []backend.Topic `json:"topics,omitempty"`
}

// NewSnapshot returns an empty Snapshot with non-nil maps.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Accounts:      make(map[string]backend.Record),
		Community:     make(map[string]backend.Record),
		Content:       make(map[string]backend.Record),
		DiscussionIdx: make(content.DiscussionIndex),
		Profiles:      make(map[string]backend.Record),
	}
}

// mergeContent folds an aggregation result into the snapshot.
func (s *Snapshot) mergeContent(res *content.Result) {
	if res == nil {
		return
	}
	r := content.Result{Content: s.Content, DiscussionIdx: s.DiscussionIdx}
	r.Merge(res)
	s.Content, s.DiscussionIdx = r.Content, r.DiscussionIdx
}
