// Package retry wraps a single operation with bounded retry-with-delay.
//
// This package is the only place retry logic lives. The default policy
// matches the archiver's needs: up to 7 retries with a constant 5 second
// delay, retrying only the server-timeout error class. Any other failure
// class fails immediately, and exhaustion is reported with ErrExhausted so
// callers can convert it into an abort instead of a fatal error.
package retry
