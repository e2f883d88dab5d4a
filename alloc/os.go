package alloc

// OSAllocator wraps the Go heap directly. It is the always-available
// fallback other allocators can delegate oversize or exhausted requests to.
type OSAllocator struct{}

func NewOS() *OSAllocator { return &OSAllocator{} }

func (o *OSAllocator) Alloc(n int) ([]byte, error) { return make([]byte, n), nil }
func (o *OSAllocator) Free([]byte)                 {}
func (o *OSAllocator) Reset()                      {}
func (o *OSAllocator) Destroy()                    {}
func (o *OSAllocator) Capabilities() Capability    { return 0 }
