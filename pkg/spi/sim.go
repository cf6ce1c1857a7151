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

package spi

import (
	"encoding/binary"
	"time"

	"github.com/google/gopacket"

	"github.com/nowtech/go-l9945/pkg/device/ifc"
	"github.com/nowtech/go-l9945/pkg/layers"
)

// Chip simulates the register file and response pipeline of the chip
// behind a Transport. The response to a command is clocked out during
// the following exchange, exactly like the real part, so the driver's
// two-phase access pattern is exercised for real. Exchanges are
// counted and can be made to fail or to answer with a corrupted frame
// for fault-path testing.
type Chip struct {
	regs [16]uint32 // parity bit stripped
	next uint32     // frame clocked out on the next exchange

	enabled    bool
	exchanges  int
	failAt     int
	failStatus ifc.ExchangeStatus
	corruptAt  int
}

func NewChip() *Chip {
	return &Chip{failAt: -1, corruptAt: -1}
}

func (c *Chip) EnableTransfer(enable bool) {
	c.enabled = enable
}

func (c *Chip) Exchange(tx []byte, rx []byte) ifc.ExchangeStatus {
	n := c.exchanges
	c.exchanges++
	if n == c.failAt {
		return c.failStatus
	}
	out := c.next
	if n == c.corruptAt {
		out ^= 1 << 5
	}
	binary.BigEndian.PutUint32(rx, out)

	packet := gopacket.NewPacket(tx, layers.FrameLayerType, gopacket.Default)
	if packet.ErrorLayer() != nil {
		c.next = 0
		return ifc.ExchangeOk
	}
	frame := packet.Layer(layers.FrameLayerType).(*layers.FrameLayer)
	if frame.Cmd > 13 {
		// no-op command, the pipeline just clocked out
		return ifc.ExchangeOk
	}
	if frame.Read {
		c.next = layers.Encode(c.regs[frame.Cmd])
	} else {
		c.regs[frame.Cmd] = frame.Word() &^ layers.MaskParity
		c.next = layers.Encode(c.regs[frame.Cmd])
	}
	return ifc.ExchangeOk
}

// Exchanges returns how many exchanges have been attempted, including
// failed ones.
func (c *Chip) Exchanges() int {
	return c.exchanges
}

// Register returns the simulated register content, parity stripped.
func (c *Chip) Register(cmd uint32) uint32 {
	return c.regs[cmd&0x0f]
}

// SetRegister seeds a simulated register, typically one of the
// read-only observation registers before a test drives a read.
func (c *Chip) SetRegister(cmd uint32, value uint32) {
	c.regs[cmd&0x0f] = value &^ layers.MaskParity
}

// FailExchange makes the n-th exchange (counted from 0 over the chip's
// lifetime) return the given status without touching the register file.
func (c *Chip) FailExchange(n int, status ifc.ExchangeStatus) {
	c.failAt = n
	c.failStatus = status
}

// CorruptExchange makes the n-th exchange clock out a frame with a
// flipped payload bit, breaking its parity.
func (c *Chip) CorruptExchange(n int) {
	c.corruptAt = n
}

// Harness is the bench-side collaborator set for a simulated or
// headless setup: it records every pin, delay, PWM and fault
// interaction instead of driving hardware.
type Harness struct {
	// Sleep makes DelayMs actually block, for wall-clock realistic runs.
	Sleep bool

	ResetLine  bool
	AllEnabled bool
	DelayedMs  uint32
	Faults     []ifc.Fault
	BridgePwm  [3]float64 // indexed by bridge, slot 0 unused
	ChannelPwm [9]float64 // indexed by channel, slot 0 unused
}

func NewHarness() *Harness {
	return &Harness{}
}

func (h *Harness) EnableReset(enable bool) {
	h.ResetLine = enable
}

func (h *Harness) EnableAll(enable bool) {
	h.AllEnabled = enable
}

func (h *Harness) DelayMs(d uint32) {
	h.DelayedMs += d
	if h.Sleep {
		time.Sleep(time.Duration(d) * time.Millisecond)
	}
}

func (h *Harness) SetBridgePwm(value float64, bridge uint32) {
	if bridge < uint32(len(h.BridgePwm)) {
		h.BridgePwm[bridge] = value
	}
}

func (h *Harness) SetChannelPwm(value float64, channel uint32) {
	if channel < uint32(len(h.ChannelPwm)) {
		h.ChannelPwm[channel] = value
	}
}

func (h *Harness) FatalError(f ifc.Fault) {
	h.Faults = append(h.Faults, f)
}
