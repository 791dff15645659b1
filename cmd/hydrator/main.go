// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command hydrator builds page state snapshots from a bridge JSON-RPC
// backend.
//
// Usage:
//
//	hydrator hydrate /trending/hive-123 --full --observer alice
//	hydrator classify /@alice/comments
//	hydrator hydrate /@alice/posts --config hydrator.yaml --compact
//	hydrator version
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
