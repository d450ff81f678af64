package service

import "time"

// Client defaults
const (
	// DefaultHost is the public Colony endpoint
	DefaultHost = "https://cloudshellcolony.com"
	// DefaultHTTPTimeout bounds a single API request
	DefaultHTTPTimeout = 30 * time.Second
	// DefaultRetryCount is the number of retries for idempotent requests
	DefaultRetryCount = 3
	// DefaultRetryDelay is the initial delay for exponential backoff
	DefaultRetryDelay = 500 * time.Millisecond
	// apiPath is appended to the host
	apiPath = "api/"
)
