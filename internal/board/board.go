package board

import "fmt"

// Direction of a pin as declared in the board profile.
const (
	DirectionInput  = "input"
	DirectionOutput = "output"
)

// Bus types supported by the hardware layer.
const (
	BusGPIOChip = "gpiochip"
	BusMCP23017 = "mcp23017"
	BusMemory   = "memory"
)

// Bus describes one physical transport on the board.
type Bus struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Chip    string `json:"chip,omitempty"`
	I2CBus  string `json:"i2c_bus,omitempty"`
	Address uint16 `json:"address,omitempty"`
}

// Pin declares one physical line: which bus it sits on, the line offset
// within that bus, and its fixed direction.
type Pin struct {
	ID        string `json:"id"`
	Bus       string `json:"bus"`
	Line      int    `json:"line"`
	Direction string `json:"direction"`
}

// Profile is the static pin map for one board revision. It is loaded once
// at startup and never mutated afterwards.
type Profile struct {
	Name        string            `json:"name"`
	Revision    int               `json:"revision"`
	Description string            `json:"description,omitempty"`
	Buses       []Bus             `json:"buses"`
	Pins        []Pin             `json:"pins"`
	Leds        []string          `json:"leds"`
	Power       string            `json:"power"`
	Points      map[string]string `json:"points"`
	Sensors     map[string]string `json:"sensors"`
}

// PinByID returns the pin declaration for the given id.
func (p *Profile) PinByID(id string) (Pin, bool) {
	for _, pin := range p.Pins {
		if pin.ID == id {
			return pin, true
		}
	}
	return Pin{}, false
}

// checkReferences verifies everything the JSON schema cannot express:
// unique ids, bus references, and that every logical id maps to a declared
// pin with the right direction.
func (p *Profile) checkReferences() error {
	buses := make(map[string]Bus, len(p.Buses))
	for _, b := range p.Buses {
		if _, dup := buses[b.Name]; dup {
			return fmt.Errorf("duplicate bus %q", b.Name)
		}
		if b.Type == BusGPIOChip && b.Chip == "" {
			return fmt.Errorf("bus %q: gpiochip bus requires a chip name", b.Name)
		}
		if b.Type == BusMCP23017 && b.I2CBus == "" {
			return fmt.Errorf("bus %q: mcp23017 bus requires an i2c_bus", b.Name)
		}
		buses[b.Name] = b
	}

	pins := make(map[string]Pin, len(p.Pins))
	for _, pin := range p.Pins {
		if _, dup := pins[pin.ID]; dup {
			return fmt.Errorf("duplicate pin %q", pin.ID)
		}
		if _, ok := buses[pin.Bus]; !ok {
			return fmt.Errorf("pin %q references unknown bus %q", pin.ID, pin.Bus)
		}
		pins[pin.ID] = pin
	}

	checkRef := func(role, id, want string) error {
		pin, ok := pins[id]
		if !ok {
			return fmt.Errorf("%s references unknown pin %q", role, id)
		}
		if pin.Direction != want {
			return fmt.Errorf("%s pin %q must be an %s", role, id, want)
		}
		return nil
	}

	for i, id := range p.Leds {
		if err := checkRef(fmt.Sprintf("led %d", i+1), id, DirectionOutput); err != nil {
			return err
		}
	}
	if err := checkRef("power", p.Power, DirectionOutput); err != nil {
		return err
	}
	for id, pinID := range p.Points {
		if err := checkRef(fmt.Sprintf("point %s", id), pinID, DirectionOutput); err != nil {
			return err
		}
	}
	for id, pinID := range p.Sensors {
		if err := checkRef(fmt.Sprintf("sensor %s", id), pinID, DirectionInput); err != nil {
			return err
		}
	}
	return nil
}
