//go:build ppusimdebug
// +build ppusimdebug

package ppusim

const debugAssertions = true
