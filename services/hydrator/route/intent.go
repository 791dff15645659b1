// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package route classifies URL paths into page intents.
//
// Classify is a pure function: the same path always yields the same Intent,
// with no network access or other side effects. It is usable on its own for
// upstream routing decisions.
//
//	switch in := route.Classify("/hot/photography").(type) {
//	case route.Posts:   // in.Sort == "hot", in.Tag == "photography"
//	case route.Account:
//	case route.Thread:
//	case route.None:
//	}
package route

import "strings"

// Page identifies the kind of page an Intent describes.
type Page int

const (
	// PageNone is an unrecognized path.
	PageNone Page = iota

	// PagePosts is a ranked listing, optionally filtered by tag.
	PagePosts

	// PageAccount is an account's tab (blog, feed, comments, ...).
	PageAccount

	// PageThread is a single post with its replies.
	PageThread
)

// String returns "none", "posts", "account" or "thread".
func (p Page) String() string {
	switch p {
	case PagePosts:
		return "posts"
	case PageAccount:
		return "account"
	case PageThread:
		return "thread"
	default:
		return "none"
	}
}

// Intent is the classified meaning of a URL path.
//
// The set of implementations is closed: Posts, Account, Thread and None.
// Consumers switch on the concrete type.
type Intent interface {
	// Page returns the page kind.
	Page() Page

	isIntent()
}

// Posts is a ranked listing. Tag is empty for the front page.
type Posts struct {
	Sort string
	Tag  string
}

// Account is a tab on an account page. Tag keeps its leading "@".
type Account struct {
	Sort string
	Tag  string
}

// Thread is a single discussion. Key is (author with "@", permlink).
type Thread struct {
	Tag string
	Key [2]string
}

// None is an unrecognized path. Tag is set when the first segment named an
// account but the tab was not recognized.
type None struct {
	Tag string
}

func (Posts) Page() Page   { return PagePosts }
func (Account) Page() Page { return PageAccount }
func (Thread) Page() Page  { return PageThread }
func (None) Page() Page    { return PageNone }

func (Posts) isIntent()   {}
func (Account) isIntent() {}
func (Thread) isIntent()  {}
func (None) isIntent()    {}

// Name returns the account name without the leading "@".
func (a Account) Name() string {
	return strings.TrimPrefix(a.Tag, "@")
}

// Author returns the thread author without the leading "@".
func (t Thread) Author() string {
	return strings.TrimPrefix(t.Key[0], "@")
}

// Permlink returns the thread permlink.
func (t Thread) Permlink() string {
	return t.Key[1]
}

// TagOf returns the tag carried by any Intent. Nil yields "".
func TagOf(intent Intent) string {
	switch in := intent.(type) {
	case Posts:
		return in.Tag
	case Account:
		return in.Tag
	case Thread:
		return in.Tag
	case None:
		return in.Tag
	default:
		return ""
	}
}
