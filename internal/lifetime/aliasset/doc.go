// Package aliasset implements the alias registry of a value group.
//
// A Set holds the identity of every live handle that shares one value
// group, together with the creation site of each handle (a stackdepot
// hash, zero when stack capture is off). Identity is the handle ID; order
// is irrelevant and duplicates are impossible.
//
// # Thread Safety
//
// A Set is NOT safe for concurrent use on its own. The owning group holds
// its bookkeeping mutex around every call, so structural changes to the
// registry are serialized together with owner and mutator changes.
package aliasset
