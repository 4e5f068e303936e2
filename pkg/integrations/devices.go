package integrations

import (
	"slices"

	"github.com/samber/lo"
)

// Device is an e-reader screen that pages can be fitted to.
type Device struct {
	Name      string
	Width     int // Screen width in pixels
	Height    int // Screen height in pixels
	DPI       int
	Grayscale bool // E-ink panel
}

var Devices = map[string]Device{
	"kindle":            {Name: "Kindle Basic", Width: 758, Height: 1024, DPI: 167, Grayscale: true},
	"kindle-paperwhite": {Name: "Kindle Paperwhite 3/4", Width: 1072, Height: 1448, DPI: 300, Grayscale: true},
	"kindle-oasis":      {Name: "Kindle Oasis 3", Width: 1264, Height: 1680, DPI: 300, Grayscale: true},
	"kindle-scribe":     {Name: "Kindle Scribe", Width: 1860, Height: 2480, DPI: 300, Grayscale: true},
	"kobo-clara":        {Name: "Kobo Clara HD", Width: 1072, Height: 1448, DPI: 300, Grayscale: true},
	"kobo-libra":        {Name: "Kobo Libra 2", Width: 1264, Height: 1680, DPI: 300, Grayscale: true},
	"tablet":            {Name: "Color tablet", Width: 1200, Height: 1920, DPI: 323},
}

func GetDevice(id string) (Device, bool) {
	device, ok := Devices[id]
	return device, ok
}

// DeviceIDs returns the known device ids, sorted.
func DeviceIDs() []string {
	ids := lo.Keys(Devices)
	slices.Sort(ids)
	return ids
}

// ImageSettings returns the recommended page settings for the device.
func (d Device) ImageSettings() ImageSettings {
	settings := ImageSettings{
		MaxWidth:  d.Width,
		MaxHeight: d.Height,
		Quality:   85,
		Grayscale: d.Grayscale,
		Contrast:  1,
		Gamma:     1,
		Format:    "jpeg",
	}
	if d.DPI >= 300 {
		settings.Quality = 90
	}
	// E-ink renders midtones light.
	if d.Grayscale {
		settings.Contrast = 1.1
		settings.Gamma = 0.9
	}
	return settings
}
