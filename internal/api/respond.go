package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"solana-wallet-inspector/internal/address"
	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/retry"
	"solana-wallet-inspector/internal/solana"
	"solana-wallet-inspector/internal/storage"
)

// Messages returned to clients for conditions without an underlying error text.
const (
	msgMissingAddress    = "Missing address parameter"
	msgRateLimitExceeded = "Rate limit exceeded too many times."
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, result interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"result": result})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeCSV(w http.ResponseWriter, name, addr, body string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"-"+addr+".csv"))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}

// statusFor maps an operation error onto an HTTP status and client message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidAddress), errors.Is(err, domain.ErrInvalidDepth):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, retry.ErrExhausted) && errors.Is(err, solana.ErrRateLimited):
		return http.StatusTooManyRequests, msgRateLimitExceeded
	case errors.Is(err, solana.ErrRateLimited):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, err.Error()
	case errors.Is(err, domain.ErrUpstreamFetch):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// fail logs err under op and writes the mapped error response.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status, msg := statusFor(err)
	s.logger.Printf("[api] %s: %v", op, err)
	writeError(w, status, msg)
}

// addressParam reads and validates the address query parameter, writing a 400 on failure.
func addressParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	addr := r.URL.Query().Get("address")
	if addr == "" {
		writeError(w, http.StatusBadRequest, msgMissingAddress)
		return "", false
	}
	if err := address.Validate(addr); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return addr, true
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}
