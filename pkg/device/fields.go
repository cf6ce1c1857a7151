/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package device

import (
	"fmt"
	"math"
	"math/bits"
)

// Register addresses one of the 14 command registers of the chip.
type Register uint32

const RegisterCount = 14

func (r Register) Validate() error {
	if r >= RegisterCount {
		return fmt.Errorf("register %d out of range 0..%d", r, RegisterCount-1)
	}
	return nil
}

// Channel is a logical output channel, 1 to 8 inclusive.
type Channel uint32

const ChannelCount = 8

func (c Channel) Validate() error {
	if c < 1 || c > ChannelCount {
		return fmt.Errorf("channel %d out of range 1..%d", c, ChannelCount)
	}
	return nil
}

// Bridge selects one of the two half-bridge register twins.
type Bridge uint32

const (
	Bridge1 Bridge = 1
	Bridge2 Bridge = 2
)

func (b Bridge) Validate() error {
	if b != Bridge1 && b != Bridge2 {
		return fmt.Errorf("bridge %d out of range 1..2", b)
	}
	return nil
}

// regOffset is the register distance between the bridge 1 and bridge 2
// twins of a bridge-scoped field.
func (b Bridge) regOffset() Register {
	if b == Bridge2 {
		return 4
	}
	return 0
}

// Field describes one bit field of a register: where it lives and
// which contiguous run of bits it occupies. All field access goes
// through these descriptors, the named fields are a lookup table in
// registers.go.
type Field struct {
	Reg   Register
	Mask  uint32
	shift uint32
}

// NewField builds a descriptor, rejecting empty and non-contiguous
// masks. The shift is derived from the position of the least
// significant set bit of the mask.
func NewField(reg Register, mask uint32) (Field, error) {
	if err := reg.Validate(); err != nil {
		return Field{}, err
	}
	if mask == 0 {
		return Field{}, fmt.Errorf("field mask of register %d is empty", reg)
	}
	shift := uint32(bits.TrailingZeros32(mask))
	run := mask >> shift
	if run&(run+1) != 0 {
		return Field{}, fmt.Errorf("field mask %#08x of register %d is not a contiguous bit run", mask, reg)
	}
	return Field{Reg: reg, Mask: mask, shift: shift}, nil
}

func mustField(reg Register, mask uint32) Field {
	f, err := NewField(reg, mask)
	if err != nil {
		panic(err)
	}
	return f
}

// Shift returns the bit position of the field's least significant bit.
func (f Field) Shift() uint32 {
	return f.shift
}

// Max returns the largest value the field can represent.
func (f Field) Max() uint32 {
	return f.Mask >> f.shift
}

// Extract returns the field value of a register word, shifted down.
func (f Field) Extract(word uint32) uint32 {
	return (word & f.Mask) >> f.shift
}

// Insert merges a field value into a register word.
func (f Field) Insert(word uint32, value uint32) uint32 {
	return (word &^ f.Mask) | (value<<f.shift)&f.Mask
}

// InsertMasked merges only the bits selected by an external mask,
// value and mask both relative to the field.
func (f Field) InsertMasked(word uint32, value uint32, mask uint32) uint32 {
	return (word &^ (f.Mask & (mask << f.shift))) | ((value&mask)<<f.shift)&f.Mask
}

// ExtractChannelBit reads the per-channel bit of a repeated field, bit
// position = field base offset + channel - 1.
func (f Field) ExtractChannelBit(word uint32, ch Channel) bool {
	return (word>>(f.shift+uint32(ch)-1))&1 == 1
}

// InsertChannelBit sets or clears the per-channel bit of a repeated field.
func (f Field) InsertChannelBit(word uint32, value bool, ch Channel) uint32 {
	bit := uint32(1) << (f.shift + uint32(ch) - 1)
	if value {
		return word | bit
	}
	return word &^ bit
}

// ForBridge moves a bridge-scoped field defined on the bridge 1
// register to the register twin of the given bridge. An out-of-range
// bridge is a programming error and panics before it can address a
// foreign register.
func (f Field) ForBridge(b Bridge) Field {
	if err := b.Validate(); err != nil {
		panic(err)
	}
	return Field{Reg: f.Reg + b.regOffset(), Mask: f.Mask, shift: f.shift}
}

// ForChannel moves a channel-scoped field defined on the channel 1
// configuration register to the register of the given channel. An
// out-of-range channel is a programming error and panics before it can
// address a foreign register.
func (f Field) ForChannel(ch Channel) Field {
	if err := ch.Validate(); err != nil {
		panic(err)
	}
	return Field{Reg: RegChannel1 + Register(ch-1), Mask: f.Mask, shift: f.shift}
}

// RawToTemperature decodes the temperature ADC reading to degrees Celsius.
func RawToTemperature(raw uint32) float64 {
	return 0.28*float64(raw) - 65.0
}

// RawToSupplyVoltage decodes the supply voltage ADC reading to volts.
func RawToSupplyVoltage(raw uint32) float64 {
	return 0.048 * float64(raw)
}

// RawToOcThreshold decodes the over-current detection threshold field
// to millivolts. One parameter pair covers both low and high side, the
// tolerance is much larger than the difference between the two.
func RawToOcThreshold(raw uint32) float64 {
	return 60.5 + 15.25*float64(raw)
}

// OcThresholdToRaw encodes a requested over-current detection
// threshold, clamping the raw value into the representable range of
// the field instead of wrapping.
func OcThresholdToRaw(threshold float64) uint32 {
	raw := int64(math.Round((threshold - 60.5) / 15.25))
	if max := int64(FieldChannelOcConfig.Max()); raw > max {
		raw = max
	}
	if raw < 0 {
		raw = 0
	}
	return uint32(raw)
}
