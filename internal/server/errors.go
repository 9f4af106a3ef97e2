// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// apiError maps a domain error to an HTTP error by its code. Server-side
// failures are logged and their details withheld from the client.
func (s *Server) apiError(ctx context.Context, op string, err error) error {
	status := sgerr.HTTPStatus(err)
	if status < http.StatusInternalServerError {
		return huma.NewError(status, err.Error())
	}

	s.logger.ErrorContext(ctx, "request failed",
		"operation", op,
		"code", sgerr.CodeOf(err),
		"status", status,
		"error", err,
	)
	if status == http.StatusServiceUnavailable {
		return huma.Error503ServiceUnavailable("graph store unavailable")
	}
	return huma.NewError(status, http.StatusText(status))
}

func parseSpaceID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, sgerr.Errorf(sgerr.CodeServerRequestInvalid, "space id must be a positive integer, got %q", raw)
	}
	return id, nil
}
