// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tomtom215/killfeed/internal/logging"
)

// RequestID reuses an upstream X-Request-Id or generates one, echoes it on the
// response and stores it with a fresh correlation ID in the request context.
// chi's own RequestID middleware runs inside so chimiddleware.GetReqID works.
func RequestID(next http.Handler) http.Handler {
	chiRequestID := chimiddleware.RequestID(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(chimiddleware.RequestIDHeader)
		if requestID == "" {
			requestID = logging.GenerateRequestID()
			r.Header.Set(chimiddleware.RequestIDHeader, requestID)
		}
		w.Header().Set(chimiddleware.RequestIDHeader, requestID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		ctx = logging.ContextWithNewCorrelationID(ctx)
		chiRequestID.ServeHTTP(w, r.WithContext(ctx))
	})
}
