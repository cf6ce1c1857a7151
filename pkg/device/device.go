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
	"errors"

	"github.com/google/gopacket"

	"github.com/nowtech/go-l9945/pkg/device/ifc"
	"github.com/nowtech/go-l9945/pkg/layers"
	"github.com/nowtech/go-l9945/pkg/log"
)

var (
	// ErrFaulted is returned by every register operation once the fault
	// latch has tripped, until Reset clears it.
	ErrFaulted = errors.New("device faulted, reset required")
	// ErrCommunication reports a transport-level error, busy or timeout
	// on either exchange phase of an access.
	ErrCommunication = errors.New("communication fault")
	// ErrParity reports a parity mismatch on a decoded response.
	ErrParity = errors.New("parity fault")
)

// State is the two-state fault machine of the driver. The only
// transition out of Faulted is the reset sequence.
type State uint32

const (
	Operational State = iota
	Faulted
)

func (s State) String() string {
	if s == Operational {
		return "Operational"
	}
	return "Faulted"
}

const (
	resetDelayMs = 10
	// invalidResponse is stored in the read cache for a failed access.
	invalidResponse = uint32(0)
)

// Device drives one chip through its SPI command link.
//
// All state (the register caches and the fault latch) is unguarded
// shared mutable data: a Device must be owned by a single goroutine,
// or every call must be wrapped in one caller-held mutex. The two-phase
// hardware protocol is inherently sequential, so there is nothing to
// gain from finer locking.
type Device struct {
	transport ifc.Transport
	board     ifc.Board
	pwm       ifc.Pwm
	fatal     ifc.FatalSink

	// Parity is not maintained in the cached values.
	readCache  [RegisterCount]uint32
	writeCache [RegisterCount]uint32

	state        State
	writeDelayMs uint32
}

// New binds a driver instance to its collaborators. The instance is
// unusable for live access until Reset has run once.
func New(transport ifc.Transport, board ifc.Board, pwm ifc.Pwm, fatal ifc.FatalSink) *Device {
	return &Device{
		transport: transport,
		board:     board,
		pwm:       pwm,
		fatal:     fatal,
	}
}

func (d *Device) State() State {
	return d.state
}

// Faulted reports whether the sticky fault latch has ever tripped
// since the last reset.
func (d *Device) Faulted() bool {
	return d.state == Faulted
}

// Reset pulses the reset line, reloads the pending-write image from
// the documented defaults, clears the chip's response pipeline with a
// blind exchange pair, clears the fault latch and commits all 14
// registers. The global enable follows the outcome.
func (d *Device) Reset() error {
	d.board.EnableReset(true)
	d.board.DelayMs(resetDelayMs)
	d.board.EnableReset(false)
	d.board.DelayMs(resetDelayMs)
	d.writeCache = resetDefaults
	d.clearInitialParityState()
	d.state = Operational
	err := d.WriteAll()
	d.board.EnableAll(err == nil)
	return err
}

// clearInitialParityState runs one blind command/no-op exchange pair
// so the chip's pipelined response holds a well-defined word before
// the first checked access. Outcomes are deliberately ignored.
func (d *Device) clearInitialParityState() {
	toWrite := (resetDefaults[RegAdc] &^ (layers.MaskRead | fixedPatternMasks[RegAdc])) | fixedPatternValues[RegAdc]
	d.writeCache[RegAdc] = toWrite

	tx, noOp, err := serializeExchangePair(toWrite)
	if err != nil {
		return
	}
	var rx [layers.FrameSize]byte

	d.transport.EnableTransfer(true)
	d.transport.Exchange(tx, rx[:])
	d.transport.EnableTransfer(false)
	d.transport.EnableTransfer(true)
	d.transport.Exchange(noOp, rx[:])
	d.transport.EnableTransfer(false)
}

// serializeExchangePair renders the command frame and the no-op frame
// that clocks its response out on the following exchange.
func serializeExchangePair(word uint32) ([]byte, []byte, error) {
	opts := gopacket.SerializeOptions{}
	tx := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(tx, opts, layers.FrameFromWord(word)); err != nil {
		return nil, nil, err
	}
	noOp := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(noOp, opts, layers.FrameFromWord(layers.NoOpWord)); err != nil {
		return nil, nil, err
	}
	return tx.Bytes(), noOp.Bytes(), nil
}

// fault trips the latch: actuation is disabled and the fatal sink is
// notified exactly once, at the detection edge.
func (d *Device) fault(f ifc.Fault) {
	log.Error("Fault latched: %s", f)
	d.state = Faulted
	d.board.EnableAll(false)
	d.fatal.FatalError(f)
}

// transfer performs one logical register access as two back-to-back
// full-duplex exchanges. The chip answers command N during the
// exchange that carries command N+1, so the first exchange transmits
// the frame and the second transmits the no-op word while clocking the
// response in. delayMs is the optional settle delay between the two
// phases.
func (d *Device) transfer(reg Register, word uint32, delayMs uint32) (uint32, error) {
	if d.state == Faulted {
		d.readCache[reg] = invalidResponse
		return invalidResponse, ErrFaulted
	}

	tx, noOp, err := serializeExchangePair(word)
	if err != nil {
		return invalidResponse, err
	}
	var rx [layers.FrameSize]byte
	log.Debug("Access: reg: %d tx: %#010x", reg, word)

	d.transport.EnableTransfer(true)
	status1 := d.transport.Exchange(tx, rx[:])
	d.transport.EnableTransfer(false)
	if delayMs > 0 {
		d.board.DelayMs(delayMs)
	}
	status2 := ifc.ExchangeOk
	if status1 == ifc.ExchangeOk {
		d.transport.EnableTransfer(true)
		status2 = d.transport.Exchange(noOp, rx[:])
		d.transport.EnableTransfer(false)
	}

	if status1 != ifc.ExchangeOk || status2 != ifc.ExchangeOk {
		d.fault(ifc.FaultCommunication)
		d.readCache[reg] = invalidResponse
		return invalidResponse, ErrCommunication
	}
	frame := &layers.FrameLayer{}
	if err := frame.DecodeFromBytes(rx[:], gopacket.NilDecodeFeedback); err != nil {
		d.fault(ifc.FaultParity)
		d.readCache[reg] = invalidResponse
		return invalidResponse, ErrParity
	}
	response := frame.Word()
	d.readCache[reg] = response
	return response, nil
}

// ReadRegister forces a live read of one register and updates the
// read cache.
func (d *Device) ReadRegister(reg Register) (uint32, error) {
	if err := reg.Validate(); err != nil {
		return 0, err
	}
	return d.transfer(reg, fixedPatternValues[reg]|layers.MaskRead, 0)
}

// WriteRegister forces the fixed-pattern bits into value, stores the
// result as the pending image and issues a live write.
func (d *Device) WriteRegister(reg Register, value uint32) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	return d.writeRegister(reg, value)
}

func (d *Device) writeRegister(reg Register, value uint32) error {
	toWrite := (value &^ (layers.MaskRead | fixedPatternMasks[reg])) | fixedPatternValues[reg]
	d.writeCache[reg] = toWrite
	delay := d.writeDelayMs
	d.writeDelayMs = 0
	_, err := d.transfer(reg, toWrite, delay)
	return err
}

// Cached returns the last observed value of a register without
// touching hardware.
func (d *Device) Cached(reg Register) (uint32, error) {
	if err := reg.Validate(); err != nil {
		return 0, err
	}
	return d.readCache[reg], nil
}

// Pending returns the pending-write image of a register.
func (d *Device) Pending(reg Register) (uint32, error) {
	if err := reg.Validate(); err != nil {
		return 0, err
	}
	return d.writeCache[reg], nil
}

// ReadIntoCache forces a live read of one register.
func (d *Device) ReadIntoCache(reg Register) error {
	_, err := d.ReadRegister(reg)
	return err
}

// WriteFromCache issues a live write of the pending image of one register.
func (d *Device) WriteFromCache(reg Register) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	return d.writeRegister(reg, d.writeCache[reg])
}

// ReadAll reads all 14 registers. Every register is visited even after
// a failure (the latch makes the remaining visits cheap cache fills,
// and a full pass keeps the cache shape predictable); the first error
// is reported.
func (d *Device) ReadAll() error {
	var firstErr error
	for reg := Register(0); reg < RegisterCount; reg++ {
		if _, err := d.transfer(reg, fixedPatternValues[reg]|layers.MaskRead, 0); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WriteAll commits the pending image of all 14 registers, stopping at
// the first write that fails to acknowledge: past a failure the latch
// is set and continuing would only commit a partial configuration.
func (d *Device) WriteAll() error {
	for reg := Register(0); reg < RegisterCount; reg++ {
		if err := d.writeRegister(reg, d.writeCache[reg]); err != nil {
			return err
		}
	}
	return nil
}

// Cached field access, never touches hardware and cannot fail.

func (d *Device) Get(f Field) uint32 {
	return f.Extract(d.readCache[f.Reg])
}

func (d *Device) GetBool(f Field) bool {
	return d.readCache[f.Reg]&f.Mask > 0
}

func (d *Device) GetChannelBit(f Field, ch Channel) (bool, error) {
	if err := ch.Validate(); err != nil {
		return false, err
	}
	return f.ExtractChannelBit(d.readCache[f.Reg], ch), nil
}

// Pending-image field modification, never touches hardware.

func (d *Device) Modify(f Field, value uint32) {
	d.writeCache[f.Reg] = f.Insert(d.writeCache[f.Reg], value)
}

func (d *Device) ModifyBool(f Field, value bool) {
	var v uint32
	if value {
		v = 1
	}
	d.Modify(f, v)
}

func (d *Device) ModifyMasked(f Field, value uint32, mask uint32) {
	d.writeCache[f.Reg] = f.InsertMasked(d.writeCache[f.Reg], value, mask)
}

func (d *Device) ModifyChannelBit(f Field, value bool, ch Channel) error {
	if err := ch.Validate(); err != nil {
		return err
	}
	d.writeCache[f.Reg] = f.InsertChannelBit(d.writeCache[f.Reg], value, ch)
	return nil
}

// Live field access.

func (d *Device) Read(f Field) (uint32, error) {
	word, err := d.ReadRegister(f.Reg)
	return f.Extract(word), err
}

func (d *Device) ReadBool(f Field) (bool, error) {
	word, err := d.ReadRegister(f.Reg)
	return word&f.Mask > 0, err
}

func (d *Device) ReadChannelBit(f Field, ch Channel) (bool, error) {
	if err := ch.Validate(); err != nil {
		return false, err
	}
	word, err := d.ReadRegister(f.Reg)
	return f.ExtractChannelBit(word, ch), err
}

func (d *Device) Write(f Field, value uint32) error {
	return d.writeRegister(f.Reg, f.Insert(d.writeCache[f.Reg], value))
}

func (d *Device) WriteBool(f Field, value bool) error {
	var v uint32
	if value {
		v = 1
	}
	return d.Write(f, v)
}

func (d *Device) WriteMasked(f Field, value uint32, mask uint32) error {
	return d.writeRegister(f.Reg, f.InsertMasked(d.writeCache[f.Reg], value, mask))
}

func (d *Device) WriteChannelBit(f Field, value bool, ch Channel) error {
	if err := ch.Validate(); err != nil {
		return err
	}
	return d.writeRegister(f.Reg, f.InsertChannelBit(d.writeCache[f.Reg], value, ch))
}

// WriteBistRequest issues the one-shot BIST/HWSC request. There is no
// Modify variant: caching this destructive command would re-trigger an
// unintentional self-test on the next unrelated write, so the request
// bits are cleared from the pending image right after the access. The
// chip needs 3 ms after the request before results are meaningful.
func (d *Device) WriteBistRequest(r BistRequest) error {
	err := d.Write(FieldBistHwscRequest, uint32(r))
	d.writeCache[RegLatchStatus] &^= FieldBistHwscRequest.Mask
	return err
}

// ModifyCommCheck stages the communication-check request code.
func (d *Device) ModifyCommCheck(r CommCheckRequest) {
	d.Modify(FieldConfigCommCheck, uint32(r))
}

// WriteCommCheck issues the communication-check request code.
func (d *Device) WriteCommCheck(r CommCheckRequest) error {
	return d.Write(FieldConfigCommCheck, uint32(r))
}

// Derived observations. The comparator bit in register 0 and the FET
// state bits in registers 11-12 read "high level seen", which means
// "on" for a high-side channel and "off" for a low-side one.

func outputOn(globalWord uint32, chWord uint32, ch Channel) bool {
	bit := FieldOutputVCompared.ExtractChannelBit(globalWord, ch)
	side := Side(FieldChannelSide.Extract(chWord))
	return (bit && side == SideHs) || (!bit && side == SideLs)
}

func fetOn(fetWord uint32, chWord uint32, ch Channel) bool {
	bit := FieldExternalFetState.ExtractChannelBit(fetWord, channelFetIndex(ch))
	side := Side(FieldChannelSide.Extract(chWord))
	return (bit && side == SideHs) || (!bit && side == SideLs)
}

func decodeCurrentSource(fetWord uint32, chWord uint32, ch Channel) CurrentSource {
	slot := uint32(channelFetIndex(ch) - 1)
	raw := (fetWord >> (pullFieldShift + pullFieldStride*slot)) & pullFieldMask
	if Side(FieldChannelSide.Extract(chWord)) == SideHs &&
		HsFet(FieldChannelHsFet.Extract(chWord)) == HsFetPmos {
		return currentSourceDecoder[raw]
	}
	return currentSourceDecoder[raw|8]
}

// OutputOn reports the cached observed output state of a channel,
// side polarity already folded in.
func (d *Device) OutputOn(ch Channel) (bool, error) {
	if err := ch.Validate(); err != nil {
		return false, err
	}
	return outputOn(d.readCache[RegGlobalConfig], d.readCache[ChannelRegister(ch)], ch), nil
}

// ReadOutputOn refreshes the involved registers, then reports the
// observed output state.
func (d *Device) ReadOutputOn(ch Channel) (bool, error) {
	if err := ch.Validate(); err != nil {
		return false, err
	}
	if err := d.ReadIntoCache(RegGlobalConfig); err != nil {
		return false, err
	}
	if err := d.ReadIntoCache(ChannelRegister(ch)); err != nil {
		return false, err
	}
	return d.OutputOn(ch)
}

// ChannelDiagnostics reports the cached three diagnostic bits of a channel.
func (d *Device) ChannelDiagnostics(ch Channel) (ChannelDiag, error) {
	if err := ch.Validate(); err != nil {
		return DiagNoDiagDone, err
	}
	return ChannelDiag((d.readCache[RegDiagPulse] >> uint32(ch)) & channelDiagMask), nil
}

func (d *Device) ReadChannelDiagnostics(ch Channel) (ChannelDiag, error) {
	if err := ch.Validate(); err != nil {
		return DiagNoDiagDone, err
	}
	if err := d.ReadIntoCache(RegDiagPulse); err != nil {
		return DiagNoDiagDone, err
	}
	return d.ChannelDiagnostics(ch)
}

// ExternalFetOn reports the cached external FET state of a channel,
// side polarity folded in.
func (d *Device) ExternalFetOn(ch Channel) (bool, error) {
	if err := ch.Validate(); err != nil {
		return false, err
	}
	return fetOn(d.readCache[channelFetRegister(ch)], d.readCache[ChannelRegister(ch)], ch), nil
}

func (d *Device) ReadExternalFetOn(ch Channel) (bool, error) {
	if err := ch.Validate(); err != nil {
		return false, err
	}
	if err := d.ReadIntoCache(channelFetRegister(ch)); err != nil {
		return false, err
	}
	if err := d.ReadIntoCache(ChannelRegister(ch)); err != nil {
		return false, err
	}
	return d.ExternalFetOn(ch)
}

// ExternalFetCommand reports the cached FET command bit of a channel.
func (d *Device) ExternalFetCommand(ch Channel) (bool, error) {
	if err := ch.Validate(); err != nil {
		return false, err
	}
	return FieldExternalFetCommand.ExtractChannelBit(d.readCache[channelFetRegister(ch)], channelFetIndex(ch)), nil
}

// CurrentSource decodes the cached current-source pull state of a channel.
func (d *Device) CurrentSource(ch Channel) (CurrentSource, error) {
	if err := ch.Validate(); err != nil {
		return SourceCompromised, err
	}
	return decodeCurrentSource(d.readCache[channelFetRegister(ch)], d.readCache[ChannelRegister(ch)], ch), nil
}

func (d *Device) ReadCurrentSource(ch Channel) (CurrentSource, error) {
	if err := ch.Validate(); err != nil {
		return SourceCompromised, err
	}
	if err := d.ReadIntoCache(channelFetRegister(ch)); err != nil {
		return SourceCompromised, err
	}
	if err := d.ReadIntoCache(ChannelRegister(ch)); err != nil {
		return SourceCompromised, err
	}
	return d.CurrentSource(ch)
}

// Temperature decodes the cached temperature ADC value to Celsius.
func (d *Device) Temperature() float64 {
	return RawToTemperature(d.Get(FieldTempAdc))
}

func (d *Device) ReadTemperature() (float64, error) {
	raw, err := d.Read(FieldTempAdc)
	return RawToTemperature(raw), err
}

// SupplyVoltage decodes the cached supply ADC value to volts.
func (d *Device) SupplyVoltage() float64 {
	return RawToSupplyVoltage(d.Get(FieldVpsAdc))
}

func (d *Device) ReadSupplyVoltage() (float64, error) {
	raw, err := d.Read(FieldVpsAdc)
	return RawToSupplyVoltage(raw), err
}

// OcThreshold decodes the cached over-current detection threshold of a
// channel to millivolts.
func (d *Device) OcThreshold(ch Channel) (float64, error) {
	if err := ch.Validate(); err != nil {
		return 0, err
	}
	return RawToOcThreshold(d.Get(FieldChannelOcConfig.ForChannel(ch))), nil
}

// ModifyOcThreshold stages a requested threshold, clamped into the
// representable range of the field.
func (d *Device) ModifyOcThreshold(threshold float64, ch Channel) error {
	if err := ch.Validate(); err != nil {
		return err
	}
	d.Modify(FieldChannelOcConfig.ForChannel(ch), OcThresholdToRaw(threshold))
	return nil
}

// WriteOcThreshold stages a clamped threshold and commits the register.
func (d *Device) WriteOcThreshold(threshold float64, ch Channel) error {
	if err := ch.Validate(); err != nil {
		return err
	}
	return d.Write(FieldChannelOcConfig.ForChannel(ch), OcThresholdToRaw(threshold))
}

// SetBridgePwm forwards a bridge drive value (-1..1) to the PWM
// collaborator, but only when the bridge is configured for external
// PWM pass-through. A faulted device forces zero drive.
func (d *Device) SetBridgePwm(value float64, b Bridge) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if !d.GetBool(FieldBridgeConfig.ForBridge(b)) {
		return nil
	}
	if d.state == Faulted {
		d.pwm.SetBridgePwm(0, uint32(b))
		return ErrFaulted
	}
	d.pwm.SetBridgePwm(value, uint32(b))
	return nil
}

// SetChannelPwm forwards a channel duty value (0..1) to the PWM
// collaborator, but only when the channel is neither under SPI control
// nor part of a PWM-configured bridge. A faulted device forces zero
// drive.
func (d *Device) SetChannelPwm(value float64, ch Channel) error {
	if err := ch.Validate(); err != nil {
		return err
	}
	underSpi, _ := d.GetChannelBit(FieldSpiInputSelect, ch)
	if underSpi || d.GetBool(FieldBridgeConfig.ForBridge(channelBridge(ch))) {
		return nil
	}
	if d.state == Faulted {
		d.pwm.SetChannelPwm(0, uint32(ch))
		return ErrFaulted
	}
	d.pwm.SetChannelPwm(value, uint32(ch))
	return nil
}
