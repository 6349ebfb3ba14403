package gbin

import (
	"bytes"
	"sync"
)

// bytesBufPool holds scratch buffers for WriteTo, which builds the whole
// encoding in memory before handing it to the destination writer.
var bytesBufPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, BUFFER_SIZE))
	},
}
