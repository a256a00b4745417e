package gpu

// WithTexture binds t, runs fn and unbinds it again.
func WithTexture(d Device, t Texture, fn func()) {
	d.BindTexture(t)
	defer d.BindTexture(0)
	fn()
}

// WithVertexArray binds vao, runs fn and restores the nothing-bound baseline
// for the vertex array and both buffer targets.
func WithVertexArray(d Device, vao VertexArray, fn func()) {
	d.BindVertexArray(vao)
	defer UnbindAll(d)
	fn()
}

// UnbindAll clears the vertex array and buffer binding points. The vertex
// array goes first so that clearing the element buffer binding does not
// modify the array's recorded state.
func UnbindAll(d Device) {
	d.BindVertexArray(0)
	d.BindBuffer(ArrayBuffer, 0)
	d.BindBuffer(ElementArrayBuffer, 0)
}
