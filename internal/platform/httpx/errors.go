package httpx

import (
	"errors"
	"net/http"

	"github.com/dukapos/dukapos/internal/shared"
)

// RespondError is the fallthrough for errors no handler arm claimed. A
// not-found sentinel keeps its HTTP meaning; anything else becomes an opaque
// 500 so internals never leak into a response body.
func RespondError(w http.ResponseWriter, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		Problem(w, http.StatusNotFound, "Not Found", "resource not found")
		return
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
