// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package timing

import "strings"

// Label builds a base label of the form "operation[p1,p2,...]".
//
// With no params the operation name is returned unchanged. Empty params are
// kept so that positions stay stable ("content.posts[trending,]").
func Label(operation string, params ...string) string {
	if len(params) == 0 {
		return operation
	}
	var b strings.Builder
	b.Grow(len(operation) + 2 + 8*len(params))
	b.WriteString(operation)
	b.WriteByte('[')
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p)
	}
	b.WriteByte(']')
	return b.String()
}

// Operation returns the operation prefix of a base label built by Label.
//
// The prefix is low-cardinality and is what sinks use as a metric attribute.
func Operation(label string) string {
	if i := strings.IndexByte(label, '['); i >= 0 {
		return label[:i]
	}
	return label
}
