// Package logtail reads the tail of the application log for the support
// screen.
//
// Read keeps a ring buffer of the last N lines, so memory stays bounded by
// N regardless of file size. Parse understands the console encoding written
// by internal/logging:
//
//	2026-10-18 10:04:11	WARN	shop/shop.go:141	storefront refresh failed	{"error": "..."}
//
// Lines that do not match are kept verbatim.
package logtail
