package keycode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alia5/splitkb/keycode"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected keycode.KeyCode
	}{
		{name: "canonical", input: "Enter", expected: keycode.Enter},
		{name: "case insensitive", input: "lshift", expected: keycode.LShift},
		{name: "alias", input: "BSpace", expected: keycode.Backspace},
		{name: "digit alias", input: "9", expected: keycode.Kb9},
		{name: "no", input: "No", expected: keycode.No},
		{name: "padded", input: "  Q ", expected: keycode.Q},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := keycode.Parse(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, k)
		})
	}

	_, err := keycode.Parse("Hyper")
	assert.Error(t, err)
}

func TestModifierBits(t *testing.T) {
	assert.Equal(t, uint8(keycode.ModLeftCtrl), keycode.LCtrl.ModifierBit())
	assert.Equal(t, uint8(keycode.ModLeftShift), keycode.LShift.ModifierBit())
	assert.Equal(t, uint8(keycode.ModRightShift), keycode.RShift.ModifierBit())
	assert.Equal(t, uint8(keycode.ModRightGUI), keycode.RGui.ModifierBit())
	assert.Equal(t, uint8(0), keycode.A.ModifierBit())
	assert.False(t, keycode.Enter.IsModifier())
}

func TestNameRoundTrip(t *testing.T) {
	for _, k := range []keycode.KeyCode{keycode.A, keycode.Kb0, keycode.F12, keycode.LGui, keycode.PageDown} {
		got, err := keycode.Parse(k.Name())
		assert.NoError(t, err)
		assert.Equal(t, k, got)
	}
	assert.Equal(t, "0xF0", keycode.KeyCode(0xF0).Name())
}
