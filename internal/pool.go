package internal

import (
	"bytes"
	"sync"
)

// BufferPool holds buffers used to encode world state for hashing.
var BufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}
