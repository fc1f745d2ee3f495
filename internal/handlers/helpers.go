package handlers

import (
	"encoding/json"
	"io"
	"net/http"
)

// RequireMethod reports whether r uses method (HEAD counts as GET). On a
// mismatch it answers 405 with an Allow header.
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	w.Header().Set("Allow", method)
	WriteText(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// WriteJSON writes data as a JSON response.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes {"status":"error","error":message}.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteText writes a plain-text body. Report clients read validation
// messages verbatim, so no JSON envelope is added.
func WriteText(w http.ResponseWriter, statusCode int, message string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	_, err := io.WriteString(w, message)
	return err
}

// WriteCSV writes body as a CSV attachment named filename.
func WriteCSV(w http.ResponseWriter, filename, body string) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, err := io.WriteString(w, body)
	return err
}
