package mirror

import (
	"fmt"
	"net/http"
	"time"
)

const DefaultTimeout = 30 * time.Second

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	APIKey     string
	Headers    map[string]string
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (errorValue StatusError) Error() string {
	return fmt.Sprintf("query API request failed with status %d: %s", errorValue.StatusCode, errorValue.Message)
}

// NotFound reports whether the remote answered 404.
func (errorValue StatusError) NotFound() bool {
	return errorValue.StatusCode == http.StatusNotFound
}
