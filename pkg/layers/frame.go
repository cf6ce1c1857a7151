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

package layers

import (
	"encoding/binary"
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// FrameLayerNum identifies the layer
	FrameLayerNum = 2024
	// FrameSize is the size of one SPI exchange in bytes
	FrameSize = 4

	// MaskCommand covers the register address carried in bits 31:28
	MaskCommand = uint32(0x0f) << 28
	// MaskRead is the read/not-write flag in bit 27
	MaskRead = uint32(0x01) << 27
	// MaskPayload covers the register payload in bits 26:1
	MaskPayload = uint32(0x03ffffff) << 1
	// MaskParity is the parity bit in bit 0
	MaskParity = uint32(0x01)

	// NoOpWord is transmitted during the second exchange of every
	// register access. Command 15 is outside the register map, the chip
	// discards it and uses the exchange to clock out the previous
	// response.
	NoOpWord = uint32(0xf0000001)
)

var ErrParity = errors.New("frame parity mismatch")

// Parity folds the word by successive half-width shifts and inverts the
// result. It yields 0 for a word that already carries an odd number of
// set bits, which is what every valid frame looks like on the wire, and
// 1 otherwise.
func Parity(word uint32) uint32 {
	result := word
	result ^= result >> 1
	result ^= result >> 2
	result ^= result >> 4
	result ^= result >> 8
	result ^= result >> 16
	return ^result & 1
}

// Encode fixes up bit 0 of word so that the full 32-bit frame passes
// the parity check.
func Encode(word uint32) uint32 {
	return word ^ Parity(word)
}

// Valid reports whether a received frame passes the parity check.
func Valid(word uint32) bool {
	return Parity(word) == 0
}

// FrameLayer is the 32-bit command/response word of the chip's SPI
// link: register address in bits 31:28, read flag in bit 27, payload in
// bits 26:1, parity in bit 0.
type FrameLayer struct {
	layers.BaseLayer
	Cmd     uint32
	Read    bool
	Payload uint32 // field value carried in bits 26:1, already shifted down
}

// FrameFromWord splits an assembled register word into its frame
// fields. The parity bit is dropped, Word regenerates it.
func FrameFromWord(word uint32) *FrameLayer {
	return &FrameLayer{
		Cmd:     (word & MaskCommand) >> 28,
		Read:    word&MaskRead > 0,
		Payload: (word & MaskPayload) >> 1,
	}
}

var FrameLayerType = gopacket.RegisterLayerType(FrameLayerNum,
	gopacket.LayerTypeMetadata{Name: "FrameLayerType", Decoder: gopacket.DecodeFunc(DecodeFrameLayer)})

// LayerType returns the type of the frame layer in the layer catalog
func (f *FrameLayer) LayerType() gopacket.LayerType {
	return FrameLayerType
}

// Word assembles the parity-encoded 32-bit frame.
func (f *FrameLayer) Word() uint32 {
	word := (f.Cmd << 28) & MaskCommand
	if f.Read {
		word |= MaskRead
	}
	word |= (f.Payload << 1) & MaskPayload
	return Encode(word)
}

// Serialize serializes the frame to a 4-byte buffer, most significant
// byte first as it goes out on the wire.
func (f *FrameLayer) Serialize(buf []byte) {
	binary.BigEndian.PutUint32(buf[0:4], f.Word())
}

// SerializeTo serializes the frame layer into bytes and writes the bytes to the SerializeBuffer
func (f *FrameLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.AppendBytes(FrameSize)
	if err != nil {
		return err
	}
	f.Serialize(bytes)
	return nil
}

func (f *FrameLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < FrameSize {
		df.SetTruncated()
		return errors.New("frame too short")
	}
	word := binary.BigEndian.Uint32(data[0:4])
	if !Valid(word) {
		return ErrParity
	}
	f.BaseLayer = layers.BaseLayer{
		Contents: data[:FrameSize],
		Payload:  []byte{},
	}
	f.Cmd = (word & MaskCommand) >> 28
	f.Read = word&MaskRead > 0
	f.Payload = (word & MaskPayload) >> 1
	return nil
}

func DecodeFrameLayer(data []byte, p gopacket.PacketBuilder) error {
	f := &FrameLayer{}
	err := f.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(f)
	return nil
}
