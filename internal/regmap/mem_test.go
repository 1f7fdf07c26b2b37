package regmap

import "testing"

func TestMem_ReadUnwrittenIsZero(t *testing.T) {
	m := NewMem()

	val, err := m.Read(0x0)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if val != 0 {
		t.Errorf("Read() = %#x, want 0", val)
	}
}

func TestMem_WriteRead(t *testing.T) {
	m := NewMem()

	if err := m.Write(0x4, 0xdeadbeef); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	val, err := m.Read(0x4)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if val != 0xdeadbeef {
		t.Errorf("Read() = %#x, want 0xdeadbeef", val)
	}
}

func TestMem_UpdateBits(t *testing.T) {
	tests := []struct {
		name    string
		initial uint32
		mask    uint32
		val     uint32
		want    uint32
	}{
		{
			name:    "set single bit",
			initial: 0x0,
			mask:    Bit(0),
			val:     Bit(0),
			want:    0x1,
		},
		{
			name:    "clear single bit",
			initial: 0xff,
			mask:    Bit(0),
			val:     0,
			want:    0xfe,
		},
		{
			name:    "untouched bits survive",
			initial: 0xf0f0,
			mask:    0x00ff,
			val:     0x000a,
			want:    0xf00a,
		},
		{
			name:    "value outside mask ignored",
			initial: 0x0,
			mask:    0x0f,
			val:     0xff,
			want:    0x0f,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMem()
			m.Set(0x0, tt.initial)

			if err := m.UpdateBits(0x0, tt.mask, tt.val); err != nil {
				t.Fatalf("UpdateBits() error = %v", err)
			}

			got, _ := m.Read(0x0)
			if got != tt.want {
				t.Errorf("UpdateBits() result = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestMem_WriteHook(t *testing.T) {
	m := NewMem()

	// Model a status bit (bit 31) that tracks the inverse of a request
	// bit (bit 0), the way a power-on status follows a collapse request.
	m.SetWriteHook(func(_ uint32, val uint32) uint32 {
		if val&Bit(0) == 0 {
			return val | Bit(31)
		}
		return val &^ Bit(31)
	})

	if err := m.Write(0x0, 0x0); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	val, _ := m.Read(0x0)
	if val&Bit(31) == 0 {
		t.Errorf("status bit not set after request cleared: %#x", val)
	}

	if err := m.UpdateBits(0x0, Bit(0), Bit(0)); err != nil {
		t.Fatalf("UpdateBits() error = %v", err)
	}
	val, _ = m.Read(0x0)
	if val&Bit(31) != 0 {
		t.Errorf("status bit still set after request asserted: %#x", val)
	}
}

func TestMem_SetBypassesHook(t *testing.T) {
	m := NewMem()
	m.SetWriteHook(func(_ uint32, _ uint32) uint32 { return 0xffffffff })

	m.Set(0x0, 0x1234)

	val, _ := m.Read(0x0)
	if val != 0x1234 {
		t.Errorf("Set() did not bypass hook: got %#x", val)
	}
}
