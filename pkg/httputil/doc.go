// Package httputil provides the JSON response envelope, request decoding with
// validation, and the shared HTTP middleware chain.
//
// # Responses
//
//	httputil.WriteJSON(w, http.StatusOK, graph)
//	httputil.WriteBadRequest(w, "startDate is required")
//	httputil.WriteInternalError(w) // always {"error":"internal error"}
//
// # Requests
//
//	var req verifyRequest
//	if !httputil.DecodeAndValidate(w, r, &req) {
//		return // 400 already written
//	}
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.RecoveryMiddleware,
//		httputil.LoggingMiddleware,
//		httputil.MaxBytesMiddleware(1<<20),
//	)(router)
package httputil
