// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/kraklabs/docwiki/internal/wikierrors"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a wikierrors.Error to its HTTP status (§6: "the HTTP
// surface exposes both verbatim") and falls back to 500 for anything
// else.
func writeError(w http.ResponseWriter, err error) {
	if werr, ok := wikierrors.As(err); ok {
		writeJSON(w, werr.HTTPStatus(), map[string]string{"error": werr.Message, "code": werr.Code})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
