// Package dom is the document model the runtime mutates.
//
// It wraps golang.org/x/net/html nodes with the handful of operations a page
// runtime needs: inner-HTML get/set, CSS selector queries, attribute access and
// moving nodes between parents. Element identity is the underlying *html.Node,
// so two Elements wrapping the same node are the same element.
//
// Nothing in this package is safe for concurrent use. A Document belongs to the
// goroutine that runs its runtime loop.
package dom
