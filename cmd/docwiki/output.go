// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import "github.com/kraklabs/docwiki/internal/output"

func printJSON(v any) error {
	return output.JSON(v)
}
