package cartridge

// Mapper000 implements NROM (mapper 0)
// NROM has no bank switching: 8KB of CHR ROM or CHR RAM is wired straight
// to PPU $0000-$1FFF.
type Mapper000 struct {
	cart *Cartridge
}

// NewMapper000 creates a new NROM mapper
func NewMapper000(cart *Cartridge) *Mapper000 {
	return &Mapper000{cart: cart}
}

// ReadCHR reads from CHR ROM/RAM
func (m *Mapper000) ReadCHR(address uint16) uint8 {
	if address < 0x2000 && int(address) < len(m.cart.chrROM) {
		return m.cart.chrROM[address]
	}
	return 0
}

// WriteCHR writes to CHR RAM. Writes to CHR ROM are ignored.
func (m *Mapper000) WriteCHR(address uint16, value uint8) {
	if !m.cart.hasCHRRAM {
		return
	}
	if address < 0x2000 && int(address) < len(m.cart.chrROM) {
		m.cart.chrROM[address] = value
	}
}
