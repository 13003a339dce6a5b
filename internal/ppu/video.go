package ppu

// Frame buffer geometry.
const (
	FrameWidth  = 256
	FrameHeight = 240
)

// RGB is one converted pixel.
type RGB struct {
	Red   uint8
	Green uint8
	Blue  uint8
}

// Pack returns the pixel as 0x00RRGGBB.
func (c RGB) Pack() uint32 {
	return uint32(c.Red)<<16 | uint32(c.Green)<<8 | uint32(c.Blue)
}

// VideoOut is the video signal the core produced during one half clock.
type VideoOut struct {
	Valid bool   // a pixel was emitted
	X, Y  int    // position of the pixel
	Raw   uint16 // color index in bits 0-5, emphasis in bits 6-8
	RGB   RGB    // converted color, zero when raw output is selected
}

// 2C02 palette, Dendy-derived values.
var nesColorPalette = [64]uint32{
	0x666666, 0x002A88, 0x1412A7, 0x3B00A4, 0x5C007E, 0x6E0040, 0x6C0600, 0x561D00,
	0x333500, 0x0B4800, 0x005200, 0x004F08, 0x00404D, 0x000000, 0x000000, 0x000000,

	0xADADAD, 0x155FD9, 0x4240FF, 0x7527FE, 0xA01ACC, 0xB71E7B, 0xB53120, 0x994E00,
	0x6B6D00, 0x388700, 0x0C9300, 0x008F32, 0x007C8D, 0x000000, 0x000000, 0x000000,

	0xFFFEFF, 0x64B0FF, 0x9290FF, 0xC676FF, 0xF36AFF, 0xFE6ECC, 0xFE8170, 0xEA9E22,
	0xBCBE00, 0x88D800, 0x5CE430, 0x45E082, 0x48CDDE, 0x4F4F4F, 0x000000, 0x000000,

	0xFFFEFF, 0xC0DFFF, 0xD3D2FF, 0xE8C8FF, 0xFBC2FF, 0xFEC4EA, 0xFECCC5, 0xF7D8A5,
	0xE4E594, 0xCFF29B, 0xBEFBB3, 0xB8F8D8, 0xB8F8F8, 0x000000, 0x000000, 0x000000,
}

// ColorToRGB converts a 6-bit color index to 0x00RRGGBB.
func ColorToRGB(colorIndex uint8) uint32 {
	return nesColorPalette[colorIndex&0x3F]
}

// ConvertRAWToRGB fills RGB from Raw. Composite parts attenuate the channels
// that are not emphasized; RGB parts drive emphasized channels to full scale.
func (c *Core) ConvertRAWToRGB(v VideoOut) VideoOut {
	packed := ColorToRGB(uint8(v.Raw & 0x3F))
	rgb := RGB{
		Red:   uint8(packed >> 16),
		Green: uint8(packed >> 8),
		Blue:  uint8(packed),
	}

	emphasis := uint8(v.Raw>>6) & 0x07
	if emphasis != 0 {
		rgb = applyEmphasis(rgb, emphasis, c.profile.RGBOutput)
	}

	v.RGB = rgb
	return v
}

// emphasis bits: 0 red, 1 green, 2 blue (PAL parts swap red and green at the
// register, which is handled when Raw is produced).
func applyEmphasis(rgb RGB, emphasis uint8, rgbPart bool) RGB {
	channels := [3]*uint8{&rgb.Red, &rgb.Green, &rgb.Blue}
	for i, ch := range channels {
		on := emphasis&(1<<i) != 0
		switch {
		case rgbPart && on:
			*ch = 0xFF
		case !rgbPart && !on:
			*ch = uint8(uint16(*ch) * 3 / 4)
		}
	}
	return rgb
}
