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
	"context"
	"encoding/json"

	"github.com/AleutianAI/hydrator/services/hydrator"
	"github.com/AleutianAI/hydrator/services/hydrator/state"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// runHydrate handles `hydrator hydrate <url>`.
func runHydrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := setup(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	svc, err := hydrator.New(rt.cfg, hydrator.WithLogger(rt.logger.Slog()))
	if err != nil {
		return err
	}

	id := requestID
	if id == "" {
		id = uuid.NewString()
	}

	snap, err := svc.Hydrate(ctx, state.Request{
		URL:        args[0],
		Observer:   observer,
		FullRender: fullRender,
		RequestID:  id,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if !compactJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(snap)
}
