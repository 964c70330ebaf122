package display

// packRGB565 8 位 RGB 打包为 16 位 565
func packRGB565(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}
