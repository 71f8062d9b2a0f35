// Package contextfile implements the directory-backed context file store.
//
// One directory per project, one file per context entry, the name used
// verbatim as the filename. Writes are last-write-wins; images persist as
// data: URL text. Classification and drag-drop ingestion live here too.
package contextfile
