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

// Package ifc declares the collaborators one chip instance is bound to
// at construction time. The driver owns the sequencing, the
// implementations own the wires.
package ifc

// ExchangeStatus is the outcome of one full-duplex exchange.
type ExchangeStatus uint32

const (
	ExchangeOk ExchangeStatus = iota
	ExchangeError
	ExchangeBusy
	ExchangeTimeout
)

func (s ExchangeStatus) String() string {
	switch s {
	case ExchangeOk:
		return "Ok"
	case ExchangeError:
		return "Error"
	case ExchangeBusy:
		return "Busy"
	case ExchangeTimeout:
		return "Timeout"
	}
	return "Unknown"
}

// Transport performs blocking full-duplex exchanges toward the chip.
// EnableTransfer drives the chip-select/enable line; the driver
// asserts it around every single exchange.
type Transport interface {
	EnableTransfer(enable bool)
	Exchange(tx []byte, rx []byte) ExchangeStatus
}

// Board drives the chip's dedicated input pins and provides the
// blocking millisecond delay the chip's timing constraints need.
type Board interface {
	EnableReset(enable bool)
	EnableAll(enable bool)
	DelayMs(d uint32)
}

// Pwm actuates the external PWM inputs of the chip.
// Bridge values are 1 or 2, value -1..1 (full reverse to full forward).
// Channel values are 1..8, value 0..1 (closed to full time open).
type Pwm interface {
	SetBridgePwm(value float64, bridge uint32)
	SetChannelPwm(value float64, channel uint32)
}

// Fault classifies an unrecoverable link failure.
type Fault uint32

const (
	FaultCommunication Fault = iota
	FaultParity
)

func (f Fault) String() string {
	switch f {
	case FaultCommunication:
		return "Communication"
	case FaultParity:
		return "Parity"
	}
	return "Unknown"
}

// FatalSink is notified exactly once when the fault latch trips.
type FatalSink interface {
	FatalError(f Fault)
}
