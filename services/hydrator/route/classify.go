// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package route

import (
	"net/url"
	"slices"
	"strings"
)

// DefaultSort is the sort used for the empty path.
const DefaultSort = "trending"

// DefaultAccountTab is the tab used for a bare "@account" path.
const DefaultAccountTab = "blog"

var sorts = []string{
	"trending",
	"promoted",
	"hot",
	"created",
	"payout",
	"payout_comments",
	"muted",
}

var accountTabs = []string{
	"blog",
	"feed",
	"posts",
	"comments",
	"replies",
	"payout",
}

// Sorts returns the recognized listing sorts.
func Sorts() []string {
	return slices.Clone(sorts)
}

// AccountTabs returns the recognized account tabs.
func AccountTabs() []string {
	return slices.Clone(accountTabs)
}

// IsSort reports whether s is a recognized listing sort.
func IsSort(s string) bool {
	return slices.Contains(sorts, s)
}

// IsAccountTab reports whether s is a recognized account tab.
func IsAccountTab(s string) bool {
	return slices.Contains(accountTabs, s)
}

// PathOf reduces an absolute URL to path and query so it can be passed to
// Classify. Anything else is returned unchanged.
func PathOf(raw string) string {
	if !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.RawQuery == "" {
		return u.Path
	}
	return u.Path + "?" + u.RawQuery
}

// Classify maps a URL path to an Intent.
//
// # Description
//
// The query string is dropped, then one leading and one trailing "/" are
// removed. An empty remainder means DefaultSort. The remainder is split on
// "/" and the first matching rule wins:
//
//	<sort>                  Posts{Sort, Tag: ""}
//	<sort>/<tag>            Posts{Sort, Tag}
//	<tag>/@<author>/<perm>  Thread{Tag, Key: (@author, perm)}
//	@<account>              Account{Sort: "blog", Tag: @account}
//	@<account>/<tab>        Account{Sort: tab, Tag: @account}
//	@<account>/<other>      None{Tag: @account}
//	anything else           None{}
//
// # Inputs
//
//   - path: Raw request path, with or without query string.
//
// # Outputs
//
//   - Intent: Never nil.
func Classify(path string) Intent {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		path = DefaultSort
	}

	segs := strings.Split(path, "/")
	switch {
	case len(segs) == 1 && IsSort(segs[0]):
		return Posts{Sort: segs[0]}
	case len(segs) == 2 && IsSort(segs[0]):
		return Posts{Sort: segs[0], Tag: segs[1]}
	case len(segs) == 3 && isAccountRef(segs[1]):
		return Thread{Tag: segs[0], Key: [2]string{segs[1], segs[2]}}
	case len(segs) == 1 && isAccountRef(segs[0]):
		return Account{Sort: DefaultAccountTab, Tag: segs[0]}
	case len(segs) == 2 && isAccountRef(segs[0]):
		if IsAccountTab(segs[1]) {
			return Account{Sort: segs[1], Tag: segs[0]}
		}
		return None{Tag: segs[0]}
	}
	return None{}
}

func isAccountRef(seg string) bool {
	return strings.HasPrefix(seg, "@")
}
