// Package errors provides the classified error primitives used across pavesite.
//
// A ClassifiedError carries a category (not_found, content, config, ...), a
// severity and a retry strategy, plus free-form context. Errors are built with
// a fluent builder and presented by the HTTP and CLI adapters:
//
//	err := errors.NotFound("city not found").
//		WithContext("slug", slug).
//		Build()
//
// The HTTP adapter turns not_found into 404 so unknown entities surface as a
// standard "not found" response instead of an empty page.
package errors
