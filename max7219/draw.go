// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package max7219

import (
	"image"
	"image/color"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// ColorModel implements display.Drawer.
//
// It is a one bit color model, as implemented by image1bit.Bit.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer. The chain is 8 pixels per device wide,
// device 0 on the left, and 8 pixels high. Within a device, pixel column x is
// bit x of the row, as for glyphs.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.units*Rows, Rows)
}

// Draw implements display.Drawer.
//
// Pixels outside r keep what the previous Draw call rendered. The whole chain
// is written, one transaction per row.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if d.frame == nil {
		d.frame = make([]byte, Rows*d.units)
	}
	r = r.Intersect(d.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := image1bit.BitModel.Convert(src.At(sp.X+x-r.Min.X, sp.Y+y-r.Min.Y)).(image1bit.Bit)
			mask := byte(1) << uint(x%Rows)
			ix := y*d.units + x/Rows
			if c == image1bit.On {
				d.frame[ix] |= mask
			} else {
				d.frame[ix] &^= mask
			}
		}
	}
	for line := 0; line < Rows; line++ {
		if err := d.WriteLineRaw(line, d.frame[line*d.units:(line+1)*d.units]); err != nil {
			return err
		}
	}
	return nil
}

var _ display.Drawer = &Dev{}
var _ conn.Resource = &Dev{}
