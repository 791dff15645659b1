// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package backend

import (
	"encoding/json"
	"fmt"
)

// Record is a semi-structured object returned by the backend: a post, a
// comment, a community or a profile. Fields are passed through untouched.
type Record map[string]any

// StringField returns field as a string, or "" when absent or not a string.
func (r Record) StringField(field string) string {
	s, _ := r[field].(string)
	return s
}

// Key returns the content key "author/permlink".
//
// ok is false when either field is missing or empty.
func (r Record) Key() (key string, ok bool) {
	author := r.StringField("author")
	permlink := r.StringField("permlink")
	if author == "" || permlink == "" {
		return "", false
	}
	return author + "/" + permlink, true
}

// Topic is one trending topic: a tag name and its display title.
//
// The backend encodes topics as two-element arrays ["hive-1", "Title"].
// The object form {"name": ..., "title": ...} is also accepted.
type Topic struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// UnmarshalJSON decodes either the tuple or the object form.
func (t *Topic) UnmarshalJSON(data []byte) error {
	var tuple []string
	if err := json.Unmarshal(data, &tuple); err == nil {
		if len(tuple) != 2 {
			return fmt.Errorf("%w: topic tuple has %d elements", ErrMalformedResponse, len(tuple))
		}
		t.Name, t.Title = tuple[0], tuple[1]
		return nil
	}

	type plain Topic
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%w: topic: %v", ErrMalformedResponse, err)
	}
	*t = Topic(obj)
	return nil
}

// MarshalJSON encodes the tuple form the backend uses.
func (t Topic) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{t.Name, t.Title})
}
