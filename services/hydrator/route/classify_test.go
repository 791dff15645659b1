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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name     string
		path     string
		expected Intent
	}{
		{"empty defaults to trending", "", Posts{Sort: "trending"}},
		{"root defaults to trending", "/", Posts{Sort: "trending"}},
		{"trending", "trending", Posts{Sort: "trending"}},
		{"leading slash", "/hot", Posts{Sort: "hot"}},
		{"trailing slash", "created/", Posts{Sort: "created"}},
		{"sort with tag", "hot/funny-cats", Posts{Sort: "hot", Tag: "funny-cats"}},
		{"sort with tag and query", "/hot/funny-cats?page=2", Posts{Sort: "hot", Tag: "funny-cats"}},
		{"query only", "?ref=home", Posts{Sort: "trending"}},
		{"sort with community", "trending/hive-123456", Posts{Sort: "trending", Tag: "hive-123456"}},
		{"payout_comments", "payout_comments", Posts{Sort: "payout_comments"}},
		{
			"thread",
			"funny-cats/@alice/abc123",
			Thread{Tag: "funny-cats", Key: [2]string{"@alice", "abc123"}},
		},
		{
			"thread with slashes",
			"/funny-cats/@alice/abc123/",
			Thread{Tag: "funny-cats", Key: [2]string{"@alice", "abc123"}},
		},
		{"account default tab", "@alice", Account{Sort: "blog", Tag: "@alice"}},
		{"account blog", "@alice/blog", Account{Sort: "blog", Tag: "@alice"}},
		{"account feed", "@alice/feed", Account{Sort: "feed", Tag: "@alice"}},
		{"account payout", "@alice/payout", Account{Sort: "payout", Tag: "@alice"}},
		{"account unknown tab", "@alice/settings", None{Tag: "@alice"}},
		{"account followers", "@alice/followers", None{Tag: "@alice"}},
		{"unknown single segment", "about", None{}},
		{"unknown two segments", "foo/bar", None{}},
		{"three segments without author", "a/b/c", None{}},
		{"four segments", "a/@b/c/d", None{}},
		{"double slash", "//", Posts{Sort: "trending"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.path)
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("Classify(%q) mismatch (-want +got):\n%s", tc.path, diff)
			}
		})
	}
}

func TestClassify_AllSorts(t *testing.T) {
	for _, s := range Sorts() {
		got := Classify(s)
		if diff := cmp.Diff(Intent(Posts{Sort: s, Tag: ""}), got); diff != "" {
			t.Errorf("Classify(%q) mismatch (-want +got):\n%s", s, diff)
		}
	}
}

func TestClassify_DefaultEquivalence(t *testing.T) {
	want := Classify("trending")
	for _, p := range []string{"", "/"} {
		if diff := cmp.Diff(want, Classify(p)); diff != "" {
			t.Errorf("Classify(%q) differs from Classify(\"trending\"):\n%s", p, diff)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	paths := []string{"", "hot/x", "@bob/comments", "t/@a/p", "nope"}
	for _, p := range paths {
		first := Classify(p)
		for i := 0; i < 5; i++ {
			if diff := cmp.Diff(first, Classify(p)); diff != "" {
				t.Fatalf("Classify(%q) not deterministic:\n%s", p, diff)
			}
		}
	}
}

func TestPage_String(t *testing.T) {
	assert.Equal(t, "posts", Classify("hot").Page().String())
	assert.Equal(t, "account", Classify("@a").Page().String())
	assert.Equal(t, "thread", Classify("t/@a/p").Page().String())
	assert.Equal(t, "none", Classify("x/y").Page().String())
	assert.Equal(t, "none", Page(99).String())
}

func TestIntentHelpers(t *testing.T) {
	thread := Thread{Tag: "cats", Key: [2]string{"@alice", "abc"}}
	assert.Equal(t, "alice", thread.Author())
	assert.Equal(t, "abc", thread.Permlink())

	assert.Equal(t, "bob", Account{Sort: "blog", Tag: "@bob"}.Name())

	assert.Equal(t, "cats", TagOf(thread))
	assert.Equal(t, "@bob", TagOf(None{Tag: "@bob"}))
	assert.Equal(t, "", TagOf(Posts{Sort: "hot"}))
	assert.Equal(t, "", TagOf(nil))
}

func TestKeywordSets(t *testing.T) {
	assert.True(t, IsSort("muted"))
	assert.False(t, IsSort("blog"))
	assert.True(t, IsAccountTab("replies"))
	assert.False(t, IsAccountTab("settings"))

	// Callers must not be able to mutate the package sets.
	s := Sorts()
	s[0] = "mutated"
	assert.True(t, IsSort("trending"))
	assert.Len(t, AccountTabs(), 6)
}

func TestPathOf(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected string
	}{
		{"plain path", "/hot/cats", "/hot/cats"},
		{"absolute", "https://example.com/hot/cats", "/hot/cats"},
		{"absolute with query", "https://example.com/created/dogs?page=2", "/created/dogs?page=2"},
		{"host only", "https://example.com", ""},
		{"unparseable", "http://[::1", "http://[::1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, PathOf(tc.raw))
		})
	}
	assert.Equal(t, Posts{Sort: "hot", Tag: "x"}, Classify(PathOf("https://host/hot/x")))
}
