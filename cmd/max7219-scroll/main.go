// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// max7219-scroll scrolls text across a chain of MAX7219 LED matrices.
//
// The chain is reached through a periph SPI port, bit-banged on three GPIO
// pins, or simulated on the terminal with -sim.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"time"

	"golang.org/x/term"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/max7219chain/max7219"
	"github.com/GermanBionicSystems/max7219chain/max7219/chainsim"
)

// chain is an opened display and what must be done after every frame.
type chain struct {
	dev     *max7219.Dev
	refresh func() error
	close   func() error
}

func openSim(units int) (*chain, error) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return nil, errors.New("-sim requires stdout to be a terminal")
	}
	sim := chainsim.New(units)
	dev, err := max7219.New(sim, sim, units)
	if err != nil {
		return nil, err
	}
	if err := dev.Init(); err != nil {
		return nil, err
	}
	screen := chainsim.NewScreen(nil)
	return &chain{
		dev:     dev,
		refresh: func() error { return screen.Render(sim) },
		close:   screen.Halt,
	}, nil
}

func openGPIO(data, clk, cs string, units int) (*chain, error) {
	pins := make([]gpio.PinIO, 0, 3)
	for _, name := range []string{data, clk, cs} {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("no GPIO pin named %q", name)
		}
		pins = append(pins, p)
	}
	dev, err := max7219.NewGPIO(pins[0], pins[1], pins[2], units)
	if err != nil {
		return nil, err
	}
	return &chain{dev: dev, refresh: func() error { return nil }, close: dev.Halt}, nil
}

func openSPI(name string, units int) (*chain, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, err
	}
	dev, err := max7219.NewSPI(p, units)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return &chain{
		dev:     dev,
		refresh: func() error { return nil },
		close: func() error {
			return errors.Join(dev.Halt(), p.Close())
		},
	}, nil
}

// closeChain releases c and logs any failure.
func closeChain(c *chain) {
	if err := c.close(); err != nil {
		log.Printf("Closing %s: %v", c.dev, err)
	}
}

// crossings calls step for every offset of one pass, loops times, or forever
// when loops is 0.
func crossings(loops int, from, to int, step func(x int) error) error {
	for i := 0; loops == 0 || i < loops; i++ {
		for x := from; x > to; x-- {
			if err := step(x); err != nil {
				return err
			}
		}
	}
	return nil
}

func mainImpl() error {
	spiName := flag.String("spi", "", "SPI port to use")
	dataPin := flag.String("data", "", "GPIO pin connected to DIN; bit-bang the bus instead of using SPI")
	clkPin := flag.String("clk", "", "GPIO pin connected to CLK, with -data")
	csPin := flag.String("cs", "", "GPIO pin connected to LOAD/CS, with -data")
	units := flag.Int("n", 4, "number of daisy-chained modules")
	text := flag.String("text", "Hello from periph!", "text to scroll")
	delay := flag.Duration("delay", 50*time.Millisecond, "delay between each pixel step")
	intensity := flag.Int("intensity", 4, "LED intensity, 0-15")
	loops := flag.Int("loops", 1, "number of times the text crosses the display, 0 to loop forever")
	sim := flag.Bool("sim", false, "simulate the chain on the terminal")
	ttf := flag.String("ttf", "", "TrueType font file to render the text with instead of the built-in glyphs")
	size := flag.Float64("size", 8, "font size in points, with -ttf")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}
	if *intensity < 0 || *intensity > 15 {
		return errors.New("-intensity must be between 0 and 15")
	}
	if *text == "" {
		return errors.New("-text is empty")
	}

	var c *chain
	var err error
	switch {
	case *sim:
		c, err = openSim(*units)
	case *dataPin != "" || *clkPin != "" || *csPin != "":
		if *dataPin == "" || *clkPin == "" || *csPin == "" {
			return errors.New("-data, -clk and -cs must be used together")
		}
		if _, err = host.Init(); err == nil {
			c, err = openGPIO(*dataPin, *clkPin, *csPin, *units)
		}
	default:
		if _, err = host.Init(); err == nil {
			c, err = openSPI(*spiName, *units)
		}
	}
	if err != nil {
		return err
	}
	defer closeChain(c)
	log.Printf("Using %s", c.dev)

	if err := c.dev.SetIntensity(byte(*intensity)); err != nil {
		return err
	}

	var step func(x int) error
	var width int
	if *ttf != "" {
		img, err := renderTTF(*ttf, *size, *text)
		if err != nil {
			return err
		}
		width = img.Bounds().Dx()
		log.Printf("Rendered %q in %d pixels", *text, width)
		step = func(x int) error {
			// Text origin at pixel x is the source read from -x.
			return c.dev.Draw(c.dev.Bounds(), img, image.Pt(-x, 0))
		}
	} else {
		width = max7219.Rows * len(*text)
		step = func(x int) error {
			return c.dev.WriteTextAtOffset([]byte(*text), x)
		}
	}

	start := time.Now()
	err = crossings(*loops, max7219.Rows*c.dev.NumDevices(), -width, func(x int) error {
		if err := step(x); err != nil {
			return err
		}
		if err := c.refresh(); err != nil {
			return err
		}
		time.Sleep(*delay)
		return nil
	})
	log.Printf("Scrolled for %s", time.Since(start))
	if err != nil {
		return err
	}
	return c.dev.ClearAll()
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "max7219-scroll: %s.\n", err)
		os.Exit(1)
	}
}
