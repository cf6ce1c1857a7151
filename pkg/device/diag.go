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

import "fmt"

// Test selects one diagnostic run mode. None takes a plain snapshot of
// all registers, Auto evaluates the chip's continuous self-diagnosis,
// the pulse tests fire a short off or on pulse on the eligible
// channels, Bist triggers the built-in self test and HWSC.
type Test uint32

const (
	TestNone Test = iota
	TestAuto
	TestOffPulse
	TestOnPulse
	TestBist
	testCount
)

// testSettleMs is the delay the chip needs between issuing a test
// trigger and reading its outcome: 1 ms for a diagnostic pulse, 3 ms
// for BIST/HWSC.
var testSettleMs = [testCount]uint32{0, 0, 1, 1, 3}

var testNames = [testCount]string{"None", "Auto", "OffPulse", "OnPulse", "Bist"}

func (t Test) String() string {
	if t >= testCount {
		return "Unknown"
	}
	return testNames[t]
}

func (t Test) Validate() error {
	if t >= testCount {
		return fmt.Errorf("diagnostic test %d out of range 0..%d", t, testCount-1)
	}
	return nil
}

// ParseTest resolves a test mode name, case-sensitively.
func ParseTest(name string) (Test, error) {
	for t, n := range testNames {
		if n == name {
			return Test(t), nil
		}
	}
	return TestNone, fmt.Errorf("unknown diagnostic test %q", name)
}

// Result is an immutable snapshot of one diagnostic run: the mode, the
// channels that actually took part and the full register image read
// right after the run. Accessors returning (value, ok) report ok false
// when the chip configuration at snapshot time makes the value
// meaningless.
type Result struct {
	Test     Test
	Channels uint8 // bit ch-1 set if the channel took part
	Regs     [RegisterCount]uint32
}

// Diagnose runs one diagnostic mode and captures the result.
//
// The pulse modes first gather the eligible channels: diagnostics
// globally enabled, protection not disabled, under SPI control, not
// part of a PWM-configured bridge, over-current blanking shorter than
// the pulse, and the output observed in the state the pulse starts
// from (off for an off pulse, on for an on pulse). With no eligible
// channel the run degrades to a snapshot. Trigger bits never stay in
// the pending image, so an unrelated later write cannot re-fire a test.
func (d *Device) Diagnose(t Test) (*Result, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	var willTest uint32
	var err error
	switch t {
	case TestAuto:
		if err = d.ReadAll(); err != nil {
			return nil, err
		}
		if d.GetBool(FieldEnableDiagnostics) {
			willTest = 0xff
		}
		willTest &^= d.Get(FieldProtectionDisable)
	case TestOffPulse:
		if err = d.ReadAll(); err != nil {
			return nil, err
		}
		willTest = d.gatherChannels(OcBlank142us, false)
		if willTest != 0 {
			d.writeDelayMs = testSettleMs[t]
			err = d.writeRegister(RegDiagPulse,
				fixedPatternValues[RegDiagPulse]|willTest<<FieldDiagOffPulse.Shift())
			d.writeCache[RegDiagPulse] = fixedPatternValues[RegDiagPulse]
		}
	case TestOnPulse:
		if err = d.ReadAll(); err != nil {
			return nil, err
		}
		willTest = d.gatherChannels(OcBlank97us, true)
		if willTest != 0 {
			d.writeDelayMs = testSettleMs[t]
			err = d.writeRegister(RegDiagPulse,
				fixedPatternValues[RegDiagPulse]|willTest<<FieldDiagOnPulse.Shift())
			d.writeCache[RegDiagPulse] = fixedPatternValues[RegDiagPulse]
		}
	case TestBist:
		d.writeDelayMs = testSettleMs[t]
		if err = d.WriteBistRequest(BistRequestYes); err != nil {
			return nil, err
		}
		err = d.ReadAll()
	default:
		err = d.ReadAll()
	}
	if err != nil {
		return nil, err
	}
	return &Result{Test: t, Channels: uint8(willTest), Regs: d.readCache}, nil
}

// gatherChannels computes the channel set eligible for a diagnostic
// pulse from the freshly read register image. limit is exclusive: a
// channel whose blanking is configured at or above it would mask the
// pulse outcome.
func (d *Device) gatherChannels(limit OcBlankTime, wantOn bool) uint32 {
	var willTest uint32
	if !d.GetBool(FieldBridgeConfig.ForBridge(Bridge1)) {
		willTest = 0x0f
	}
	if !d.GetBool(FieldBridgeConfig.ForBridge(Bridge2)) {
		willTest |= 0xf0
	}
	if !d.GetBool(FieldEnableDiagnostics) {
		willTest = 0
	}
	willTest &= d.Get(FieldSpiInputSelect)
	willTest &^= d.Get(FieldProtectionDisable)
	for ch := Channel(1); ch <= ChannelCount; ch++ {
		blank := OcBlankTime(d.Get(FieldChannelOcBlankTime.ForChannel(ch)))
		on, _ := d.OutputOn(ch)
		if blank >= limit || on != wantOn {
			willTest &^= 1 << (ch - 1)
		}
	}
	return willTest & 0xff
}

func (r *Result) get(f Field) uint32 {
	return f.Extract(r.Regs[f.Reg])
}

func (r *Result) getBool(f Field) bool {
	return r.Regs[f.Reg]&f.Mask > 0
}

func (r *Result) statusLatch(state Field, latch Field) StatusLatch {
	var s StatusLatch
	if r.getBool(state) {
		s |= 1
	}
	if r.getBool(latch) {
		s |= 2
	}
	return s
}

// channelMask folds a per-channel predicate into a bitmask, bit ch-1.
func (r *Result) channelMask(pred func(ch Channel) bool) uint8 {
	var m uint8
	for ch := Channel(1); ch <= ChannelCount; ch++ {
		if pred(ch) {
			m |= 1 << (ch - 1)
		}
	}
	return m
}

// OutputOnMask reports the observed output state of all channels, side
// polarity folded in.
func (r *Result) OutputOnMask() uint8 {
	return r.channelMask(func(ch Channel) bool {
		return outputOn(r.Regs[RegGlobalConfig], r.Regs[ChannelRegister(ch)], ch)
	})
}

// HsFetIsPmosMask reports which channels are configured with a P-type
// high-side FET.
func (r *Result) HsFetIsPmosMask() uint8 {
	return r.channelMask(func(ch Channel) bool {
		return r.getBool(FieldChannelHsFet.ForChannel(ch))
	})
}

// SideIsHsMask reports which channels are configured high-side.
func (r *Result) SideIsHsMask() uint8 {
	return r.channelMask(func(ch Channel) bool {
		return r.getBool(FieldChannelSide.ForChannel(ch))
	})
}

// OutputEnableMask reports which channel outputs are enabled.
func (r *Result) OutputEnableMask() uint8 {
	return r.channelMask(func(ch Channel) bool {
		return r.getBool(FieldChannelEnableOutput.ForChannel(ch))
	})
}

// BridgeCurrentLimit reports whether a bridge hit its current limit.
// Meaningless unless the bridge has both its current limiter enabled
// and its PWM configuration active.
func (r *Result) BridgeCurrentLimit(b Bridge) (bool, bool) {
	if b.Validate() != nil {
		return false, false
	}
	if !r.getBool(FieldBridgeCurrentLimitEn.ForBridge(b)) ||
		!r.getBool(FieldBridgeConfig.ForBridge(b)) {
		return false, false
	}
	limit := FieldBridge1CurrentLimit
	if b == Bridge2 {
		limit = FieldBridge2CurrentLimit
	}
	return r.getBool(limit), true
}

// ChannelDiagnostics reports the three diagnostic bits of a channel.
// Available only when the channel took part in an Auto or pulse run.
func (r *Result) ChannelDiagnostics(ch Channel) (ChannelDiag, bool) {
	if ch.Validate() != nil || r.Channels&(1<<(ch-1)) == 0 {
		return DiagNoDiagDone, false
	}
	if r.Test != TestAuto && r.Test != TestOffPulse && r.Test != TestOnPulse {
		return DiagNoDiagDone, false
	}
	return ChannelDiag((r.Regs[RegDiagPulse] >> uint32(ch)) & channelDiagMask), true
}

// CommCheckLatch reports the communication check outcome, available
// only while the check state bit shows a check was configured.
func (r *Result) CommCheckLatch() (bool, bool) {
	if !r.getBool(FieldConfigCommCheckState) {
		return false, false
	}
	return r.getBool(FieldCommCheckLatch), true
}

// BistResult reports whether the built-in self test failed. Available
// only after a Bist run with the done bit set.
func (r *Result) BistResult() (bool, bool) {
	if r.Test != TestBist || !r.getBool(FieldBistDone) {
		return false, false
	}
	return r.getBool(FieldBistDisableLatch), true
}

// HwscResult reports whether the hardware self check failed. Available
// only after a Bist run with the done bit set.
func (r *Result) HwscResult() (bool, bool) {
	if r.Test != TestBist || !r.getBool(FieldHwscDone) {
		return false, false
	}
	return r.getBool(FieldHwscDisableLatch), true
}

func (r *Result) En6Disable() StatusLatch {
	return r.statusLatch(FieldEn6DisableState, FieldEn6DisableLatch)
}

func (r *Result) VddOvDisableLatch() bool {
	return r.getBool(FieldVddOvDisableLatch)
}

func (r *Result) VddUvDisable() StatusLatch {
	return r.statusLatch(FieldVddUvDisableState, FieldVddUvDisableLatch)
}

func (r *Result) DeviceDis() StatusLatch {
	return r.statusLatch(FieldDeviceDisState, FieldDeviceDisLatch)
}

func (r *Result) DeviceNdisOn() StatusLatch {
	return r.statusLatch(FieldDeviceNdisOnState, FieldDeviceNdisOnLatch)
}

func (r *Result) DeviceNdisOutLatch() bool {
	return r.getBool(FieldDeviceNdisOutLatch)
}

func (r *Result) VddOvComp() StatusLatch {
	return r.statusLatch(FieldVddOvCompState, FieldVddOvCompLatch)
}

func (r *Result) VddUvComp() StatusLatch {
	return r.statusLatch(FieldVddUvCompState, FieldVddUvCompLatch)
}

func (r *Result) PowerOnResetLatch() bool {
	return r.getBool(FieldPowerOnResetLatch)
}

func (r *Result) NresLatch() bool {
	return r.getBool(FieldNresLatch)
}

func (r *Result) VcpUv() StatusLatch {
	return r.statusLatch(FieldVcpUvState, FieldVcpUvLatch)
}

func (r *Result) VpsUv() StatusLatch {
	return r.statusLatch(FieldVpsUvState, FieldVpsUvLatch)
}

// ExternalFetOnMask reports the observed external FET state of all
// channels, side polarity folded in.
func (r *Result) ExternalFetOnMask() uint8 {
	return r.channelMask(func(ch Channel) bool {
		return fetOn(r.Regs[channelFetRegister(ch)], r.Regs[ChannelRegister(ch)], ch)
	})
}

// ExternalFetCommandMask reports the raw FET command bits of all channels.
func (r *Result) ExternalFetCommandMask() uint8 {
	return r.channelMask(func(ch Channel) bool {
		return FieldExternalFetCommand.ExtractChannelBit(r.Regs[channelFetRegister(ch)], channelFetIndex(ch))
	})
}

// CurrentSource decodes the current-source pull state of a channel.
func (r *Result) CurrentSource(ch Channel) CurrentSource {
	if ch.Validate() != nil {
		return SourceCompromised
	}
	return decodeCurrentSource(r.Regs[channelFetRegister(ch)], r.Regs[ChannelRegister(ch)], ch)
}

func (r *Result) NdisProtectLatch() bool {
	return r.getBool(FieldNdisProtectLatch)
}

func (r *Result) OverTempState() bool {
	return r.getBool(FieldOverTempState)
}

func (r *Result) SdoOvLatch() bool {
	return r.getBool(FieldSdoOvLatch)
}

func (r *Result) Temperature() float64 {
	return RawToTemperature(r.get(FieldTempAdc))
}

func (r *Result) SupplyVoltage() float64 {
	return RawToSupplyVoltage(r.get(FieldVpsAdc))
}
