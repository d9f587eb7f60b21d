package bind_group_provider

// BufferWrite is one queued upload into a provider buffer. The frame graph
// batches the per-frame camera, sun and march parameter uploads into a single
// Renderer.WriteBuffers call built from these.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}
