package board

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBuiltinProfiles(t *testing.T) {
	loader, err := NewLoader(nil)
	require.NoError(t, err)

	for _, name := range []string{"default", "sim"} {
		p, err := loader.Load(name)
		require.NoError(t, err, "profile %s", name)

		assert.Equal(t, name, p.Name)
		assert.Len(t, p.Leds, 24)
		assert.Equal(t, "XA0", p.Power)
		assert.Len(t, p.Points, 4)
		assert.Len(t, p.Sensors, 8)
		assert.Len(t, p.Pins, 24+1+4+8)
	}

	// LED 1 sits on GPIO4, LED 24 on GPIO27.
	p, err := loader.Load("default")
	require.NoError(t, err)
	assert.Equal(t, "GPIO4", p.Leds[0])
	assert.Equal(t, "GPIO27", p.Leds[23])

	pin, ok := p.PinByID("GPIO4")
	require.True(t, ok)
	assert.Equal(t, 4, pin.Line)
	assert.Equal(t, DirectionOutput, pin.Direction)
}

func TestLoadUnknownProfile(t *testing.T) {
	loader, err := NewLoader([]string{t.TempDir()})
	require.NoError(t, err)

	_, err = loader.Load("no-such-board")
	assert.ErrorContains(t, err, "board profile not found")
}

func TestSearchPathShadowsBuiltin(t *testing.T) {
	dir := t.TempDir()

	loader, err := NewLoader(nil)
	require.NoError(t, err)
	p, err := loader.Load("sim")
	require.NoError(t, err)

	// Copy the sim profile under a custom revision and drop it on the
	// search path under the same name.
	override := *p
	override.Revision = 99
	data, err := json.Marshal(&override)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sim.json"), data, 0o644))

	loader, err = NewLoader([]string{dir})
	require.NoError(t, err)
	p, err = loader.Load("sim")
	require.NoError(t, err)
	assert.Equal(t, 99, p.Revision)
}

func TestValidatorRejectsBadProfiles(t *testing.T) {
	validator, err := NewValidator()
	require.NoError(t, err)

	base := func() map[string]any {
		return map[string]any{
			"name":     "bad",
			"revision": 1,
			"buses":    []any{map[string]any{"name": "mem", "type": "memory"}},
			"pins": []any{
				map[string]any{"id": "A", "bus": "mem", "line": 0, "direction": "output"},
				map[string]any{"id": "B", "bus": "mem", "line": 1, "direction": "input"},
			},
			"leds":    []any{"A"},
			"power":   "A",
			"points":  map[string]any{},
			"sensors": map[string]any{"S1": "B"},
		}
	}

	cases := []struct {
		name    string
		mutate  func(m map[string]any)
		wantErr string
	}{
		{
			name:    "missing leds",
			mutate:  func(m map[string]any) { delete(m, "leds") },
			wantErr: "schema validation failed",
		},
		{
			name: "bad direction",
			mutate: func(m map[string]any) {
				m["pins"].([]any)[0].(map[string]any)["direction"] = "sideways"
			},
			wantErr: "schema validation failed",
		},
		{
			name: "duplicate pin id",
			mutate: func(m map[string]any) {
				m["pins"] = append(m["pins"].([]any),
					map[string]any{"id": "A", "bus": "mem", "line": 2, "direction": "output"})
			},
			wantErr: `duplicate pin "A"`,
		},
		{
			name: "pin on unknown bus",
			mutate: func(m map[string]any) {
				m["pins"].([]any)[0].(map[string]any)["bus"] = "nope"
			},
			wantErr: "unknown bus",
		},
		{
			name:    "led references unknown pin",
			mutate:  func(m map[string]any) { m["leds"] = []any{"Z"} },
			wantErr: `led 1 references unknown pin "Z"`,
		},
		{
			name:    "sensor on output pin",
			mutate:  func(m map[string]any) { m["sensors"] = map[string]any{"S1": "A"} },
			wantErr: "must be an input",
		},
		{
			name:    "gpiochip bus without chip",
			mutate:  func(m map[string]any) { m["buses"].([]any)[0].(map[string]any)["type"] = "gpiochip" },
			wantErr: "requires a chip name",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := base()
			tc.mutate(m)
			data, err := json.Marshal(m)
			require.NoError(t, err)

			err = validator.ValidateProfile(data)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}

	// The unmodified base profile is valid.
	data, err := json.Marshal(base())
	require.NoError(t, err)
	assert.NoError(t, validator.ValidateProfile(data))
}
