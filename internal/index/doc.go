// Package index persists the chunk corpus as a single JSON document and
// the search threshold as a separate small one. Saves are atomic (temp
// file + rename); loading a missing index reports ErrNotFound so callers
// can tell "never indexed" from "indexed but empty".
package index
