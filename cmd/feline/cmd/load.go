package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/feline/pkg/arch"
	"github.com/OpenTraceLab/feline/pkg/devicedb"
	"github.com/OpenTraceLab/feline/pkg/netlist"
	"github.com/OpenTraceLab/feline/pkg/route"
)

var (
	devicePath string
	designPath string
	configPath string
)

// loadInputs reads the device and the design and places the design.
func loadInputs() (*arch.GridDevice, *netlist.Design, error) {
	if devicePath == "" || designPath == "" {
		return nil, nil, fmt.Errorf("--device and --design are required")
	}
	dev, err := devicedb.LoadFile(devicePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load device: %w", err)
	}
	design, err := netlist.ReadFile(designPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load design: %w", err)
	}
	if err := design.Place(dev); err != nil {
		return nil, nil, err
	}
	if verbose {
		fmt.Printf("Device %s: %dx%d, %d wires, %d pips, %d bels\n",
			dev.Name(), dev.Width(), dev.Height(), len(dev.Wires()), len(dev.Pips()), len(dev.Bels()))
		fmt.Printf("Design %s: %d cells, %d nets\n\n", design.Name, len(design.Cells), len(design.Nets))
	}
	return dev, design, nil
}

// loadConfig reads --config or returns the defaults.
func loadConfig() (*route.Config, error) {
	if configPath == "" {
		return route.DefaultConfig(), nil
	}
	return route.LoadConfigFile(configPath)
}
