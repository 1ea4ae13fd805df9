package scantree

import (
	"github.com/jward/scantree/internal/fileinfo"
	"github.com/jward/scantree/internal/index"
)

// Public type aliases for internal collaborator types used in the library
// API. Being true aliases they are identical to the internal types at
// compile time, so no conversion is ever needed.

type FileInfo = fileinfo.Info
type Index = index.Index
type IndexRecord = index.Record
type Duplicate = index.Duplicate
