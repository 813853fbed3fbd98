// Package fragment converts whatever the external form editor returns into a
// canonical, cycle-safe, string-encoded document fragment and back again.
//
// The editor is a black box: its snapshot may already be a serialized string,
// or it may be an arbitrary object graph holding functions, channels, or
// self-references. Encode absorbs all of that and always produces a string
// that Decode accepts; when no information can be preserved it degrades to
// the default empty document rather than failing.
package fragment
