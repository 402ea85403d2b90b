// Package errors provides coded, actionable errors for hashpage's CLI and
// construction paths.
//
// Runtime failures during navigation never surface as Go errors; they end
// as an inline message in the document. The errors here cover everything
// that happens before or around a runtime: loading configuration, opening
// stores and fetch sources, registering modules, serving the bridge.
//
// # Error Categories
//
//   - config: configuration file or value problems
//   - storage: key/value backend failures
//   - fetch: fragment source failures
//   - widget: module registration problems
//   - bridge: WebSocket bridge failures
//   - cli: command usage
//
// # Usage
//
//	err := errors.New("H003").
//	    WithDetail(`store "redis://x" is not supported`).
//	    WithSuggestion("Use memory, badger:DIR or sqlite:FILE")
//
//	errors.PrintError(err)
//	// ERROR H003: Unsupported store
//	//
//	//   store "redis://x" is not supported
//	//
//	//   Hint: Use memory, badger:DIR or sqlite:FILE
package errors
