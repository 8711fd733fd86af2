// Package dnserr defines the sentinel error classes used across the wire
// codec, blocklist, and upstream client so callers can classify a failure
// with errors.Is instead of matching on strings.
package dnserr

import "errors"

var (
	// ErrFormat marks malformed wire bytes: truncated headers, bad label
	// lengths, reserved compression bits, or pointer loops.
	ErrFormat = errors.New("dns: malformed message format")

	// ErrInvalidDomain marks a domain string that failed blocklist
	// normalisation.
	ErrInvalidDomain = errors.New("dns: invalid domain name")

	// ErrUpstream marks a failure to obtain a usable reply from the
	// configured upstream resolver.
	ErrUpstream = errors.New("dns: upstream exchange failed")

	// ErrSystem marks a fatal local resource failure (socket, bind,
	// allocation).
	ErrSystem = errors.New("dns: system error")
)
