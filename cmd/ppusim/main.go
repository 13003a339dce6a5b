// Package main implements the ppusim command: it runs the PPU simulator
// against a ROM or a register script and presents or dumps the pictures.
package main

func main() {
	Execute()
}
