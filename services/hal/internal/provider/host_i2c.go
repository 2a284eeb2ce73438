package provider

import "sync"

// HostI2C is a simulated bus. Each address is a 256-byte register file with
// auto-increment, which is enough for register-mapped chips such as the
// PCA9685. Addresses listed in Missing NAK.
type HostI2C struct {
	mu      sync.Mutex
	devs    map[uint16]*[256]byte
	Missing map[uint16]bool
	Txs     int
}

func NewHostI2C() *HostI2C {
	return &HostI2C{devs: map[uint16]*[256]byte{}, Missing: map[uint16]bool{}}
}

type nakError struct{}

func (nakError) Error() string { return "i2c: nak" }

func (h *HostI2C) Tx(addr uint16, w, r []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Txs++
	if h.Missing[addr] {
		return nakError{}
	}
	regs := h.devs[addr]
	if regs == nil {
		regs = new([256]byte)
		h.devs[addr] = regs
	}
	if len(w) == 0 {
		return nil
	}
	reg := int(w[0])
	for i, b := range w[1:] {
		regs[(reg+i)&0xFF] = b
	}
	for i := range r {
		r[i] = regs[(reg+i)&0xFF]
	}
	return nil
}

// Reg reads back one register.
func (h *HostI2C) Reg(addr uint16, reg byte) byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if regs := h.devs[addr]; regs != nil {
		return regs[reg]
	}
	return 0
}
