// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"

	"github.com/AleutianAI/hydrator/services/hydrator/route"
	"github.com/spf13/cobra"
)

// intentView is the printed form of a route.Intent.
type intentView struct {
	Page     string `json:"page"`
	Sort     string `json:"sort,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Author   string `json:"author,omitempty"`
	Permlink string `json:"permlink,omitempty"`
}

func viewOf(intent route.Intent) intentView {
	v := intentView{Page: intent.Page().String(), Tag: route.TagOf(intent)}
	switch in := intent.(type) {
	case route.Posts:
		v.Sort = in.Sort
	case route.Account:
		v.Sort = in.Sort
	case route.Thread:
		v.Author, v.Permlink = in.Author(), in.Permlink()
	}
	return v
}

// runClassify handles `hydrator classify <path>`. It makes no backend calls.
func runClassify(cmd *cobra.Command, args []string) error {
	return json.NewEncoder(cmd.OutOrStdout()).Encode(viewOf(route.Classify(args[0])))
}
