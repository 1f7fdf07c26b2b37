package regmap

// RegMap is the contract for a single 32-bit register window.
//
// Offsets are byte offsets from the window base and must be 32-bit
// aligned. All operations are synchronous: when a call returns nil the
// access has completed on the bus.
//
// Thread Safety:
//   - Implementations must be safe for concurrent use. The sequencer
//     serialises accesses per power domain, but windows shared between
//     a domain and diagnostic readers may be hit concurrently.
type RegMap interface {
	// Read returns the current value of the register at off.
	Read(off uint32) (uint32, error)

	// Write replaces the register at off with val.
	Write(off uint32, val uint32) error

	// UpdateBits applies (reg & ^mask) | (val & mask) to the register
	// at off as a read-modify-write.
	UpdateBits(off uint32, mask, val uint32) error
}

// Bit returns a mask with bit n set. n must be below 32.
func Bit(n uint) uint32 {
	return 1 << n
}
