package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
)

func fieldError(msg, field string, extra ...any) *pkgerrors.Error {
	details := map[string]any{"field": field}
	for i := 0; i+1 < len(extra); i += 2 {
		details[extra[i].(string)] = extra[i+1]
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}

// queryParam parses the first value of key; absent or blank means def.
func queryParam[T any](r *http.Request, key string, def T, parse func(string) (T, error), msg string) (T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := parse(raw)
	if err != nil {
		var zero T
		return zero, fieldError(msg, key)
	}
	return v, nil
}

// ParseQueryInt reads an integer in [lo, hi], falling back to def when absent.
func ParseQueryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	v, err := queryParam(r, key, def, strconv.Atoi, "query parameter must be numeric")
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, fieldError("query parameter out of range", key, "min", lo, "max", hi)
	}
	return v, nil
}

// ParseQueryBool reads a boolean flag, falling back to def when absent.
func ParseQueryBool(r *http.Request, key string, def bool) (bool, error) {
	return queryParam(r, key, def, strconv.ParseBool, "query parameter must be a boolean")
}

// ParseUUID validates a path or query identifier.
func ParseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fieldError("invalid "+field, field)
	}
	return id, nil
}

// PathUUID reads the chi route parameter name as a UUID.
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return ParseUUID(chi.URLParam(r, name), name)
}
