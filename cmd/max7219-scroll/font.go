// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"image"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/GermanBionicSystems/max7219chain/max7219"
)

// renderTTF rasterizes text with a TrueType font into an image exactly as
// high as a matrix, white on black.
func renderTTF(path string, size float64, text string) (image.Image, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(b)
	if err != nil {
		return nil, err
	}
	face := truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	defer face.Close()
	return renderFace(face, text)
}

func renderFace(face font.Face, text string) (image.Image, error) {
	w := font.MeasureString(face, text).Ceil()
	if w <= 0 {
		return nil, errors.New("nothing to render")
	}
	dc := gg.NewContext(w, max7219.Rows)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	dc.SetFontFace(face)
	// Sit the baseline so descenders use the bottom rows.
	baseline := max7219.Rows - face.Metrics().Descent.Ceil()
	dc.DrawString(text, 0, float64(baseline))
	return dc.Image(), nil
}
