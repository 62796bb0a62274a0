package utils

// CORS constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Request header constants
const (
	RequestIDHeader = "X-Request-ID"
)
