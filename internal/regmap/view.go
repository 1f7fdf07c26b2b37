package regmap

// view exposes a sub-window of a larger region at a fixed base offset.
type view struct {
	inner RegMap
	base  uint32
}

// WithBase returns a RegMap whose offset 0 maps to base within rm.
// Platform descriptions bind register windows as (region, offset)
// pairs; this is the offset half of that binding.
func WithBase(rm RegMap, base uint32) RegMap {
	if base == 0 {
		return rm
	}
	return &view{inner: rm, base: base}
}

func (v *view) Read(off uint32) (uint32, error) {
	return v.inner.Read(v.base + off)
}

func (v *view) Write(off uint32, val uint32) error {
	return v.inner.Write(v.base+off, val)
}

func (v *view) UpdateBits(off uint32, mask, val uint32) error {
	return v.inner.UpdateBits(v.base+off, mask, val)
}
