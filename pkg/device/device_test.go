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
	"math"
	"testing"

	"github.com/nowtech/go-l9945/pkg/device/ifc"
	"github.com/nowtech/go-l9945/pkg/layers"
	"github.com/nowtech/go-l9945/pkg/spi"
)

func newBench(t *testing.T) (*Device, *spi.Chip, *spi.Harness) {
	t.Helper()
	chip := spi.NewChip()
	harness := spi.NewHarness()
	dev := New(chip, harness, harness, harness)
	if err := dev.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	return dev, chip, harness
}

// expectedImage is the register content a commit of the default image
// must leave on the chip: fixed-pattern bits forced, read flag clear.
func expectedImage(reg Register) uint32 {
	v := (resetDefaults[reg] &^ (layers.MaskRead | fixedPatternMasks[reg])) | fixedPatternValues[reg]
	return v &^ layers.MaskParity
}

func TestResetCommitsDefaults(t *testing.T) {
	dev, chip, harness := newBench(t)
	for reg := Register(0); reg < RegisterCount; reg++ {
		if got := chip.Register(uint32(reg)); got != expectedImage(reg) {
			t.Errorf("register %d = %#010x, want %#010x", reg, got, expectedImage(reg))
		}
	}
	if dev.State() != Operational {
		t.Errorf("state = %s, want Operational", dev.State())
	}
	if harness.ResetLine {
		t.Error("reset line left asserted")
	}
	if !harness.AllEnabled {
		t.Error("global enable not asserted after successful reset")
	}
	if harness.DelayedMs < 2*resetDelayMs {
		t.Errorf("delays total %d ms, want at least %d", harness.DelayedMs, 2*resetDelayMs)
	}
}

func TestReadRegisterDecodesAdc(t *testing.T) {
	dev, chip, _ := newBench(t)
	chip.SetRegister(uint32(RegAdc), 256<<FieldTempAdc.Shift()|256<<FieldVpsAdc.Shift())
	if err := dev.ReadIntoCache(RegAdc); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got := dev.Temperature(); math.Abs(got-6.68) > 1e-9 {
		t.Errorf("temperature = %f, want 6.68", got)
	}
	if got := dev.SupplyVoltage(); math.Abs(got-12.288) > 1e-9 {
		t.Errorf("supply voltage = %f, want 12.288", got)
	}
}

func TestCommunicationFaultLatches(t *testing.T) {
	dev, chip, harness := newBench(t)
	chip.FailExchange(chip.Exchanges(), ifc.ExchangeBusy)

	err := dev.ReadIntoCache(RegAdc)
	if err != ErrCommunication {
		t.Fatalf("error = %v, want ErrCommunication", err)
	}
	if !dev.Faulted() {
		t.Fatal("fault latch not set")
	}
	if harness.AllEnabled {
		t.Error("global enable still asserted after fault")
	}
	if len(harness.Faults) != 1 || harness.Faults[0] != ifc.FaultCommunication {
		t.Errorf("fatal sink got %v, want one Communication fault", harness.Faults)
	}
	if value, _ := dev.Cached(RegAdc); value != 0 {
		t.Errorf("cache after fault = %#x, want 0", value)
	}

	// once latched, the transport must never be touched again
	before := chip.Exchanges()
	if _, err := dev.ReadRegister(RegGlobalConfig); err != ErrFaulted {
		t.Errorf("error = %v, want ErrFaulted", err)
	}
	if err := dev.WriteRegister(RegGlobalConfig, 0); err != ErrFaulted {
		t.Errorf("error = %v, want ErrFaulted", err)
	}
	if chip.Exchanges() != before {
		t.Errorf("transport exchanged %d more times while faulted", chip.Exchanges()-before)
	}
	if len(harness.Faults) != 1 {
		t.Errorf("fatal sink notified %d times, want once", len(harness.Faults))
	}
}

func TestParityFaultLatches(t *testing.T) {
	dev, chip, harness := newBench(t)
	// the response is clocked out during the second exchange of the access
	chip.CorruptExchange(chip.Exchanges() + 1)

	if err := dev.ReadIntoCache(RegAdc); err != ErrParity {
		t.Fatalf("error = %v, want ErrParity", err)
	}
	if !dev.Faulted() {
		t.Fatal("fault latch not set")
	}
	if len(harness.Faults) != 1 || harness.Faults[0] != ifc.FaultParity {
		t.Errorf("fatal sink got %v, want one Parity fault", harness.Faults)
	}
}

func TestResetClearsFault(t *testing.T) {
	dev, chip, harness := newBench(t)
	chip.FailExchange(chip.Exchanges(), ifc.ExchangeTimeout)
	if err := dev.ReadIntoCache(RegAdc); err != ErrCommunication {
		t.Fatalf("error = %v, want ErrCommunication", err)
	}

	if err := dev.Reset(); err != nil {
		t.Fatalf("Reset after fault failed: %v", err)
	}
	if dev.Faulted() {
		t.Error("fault latch survived reset")
	}
	if !harness.AllEnabled {
		t.Error("global enable not re-asserted")
	}
	if len(harness.Faults) != 1 {
		t.Errorf("fatal sink notified %d times, want once", len(harness.Faults))
	}
}

func TestReadAllVisitsEveryRegisterAfterFailure(t *testing.T) {
	dev, chip, _ := newBench(t)
	chip.FailExchange(chip.Exchanges(), ifc.ExchangeError)

	if err := dev.ReadAll(); err != ErrCommunication {
		t.Fatalf("error = %v, want ErrCommunication", err)
	}
	for reg := Register(0); reg < RegisterCount; reg++ {
		if value, _ := dev.Cached(reg); value != 0 {
			t.Errorf("register %d cache = %#x, want 0", reg, value)
		}
	}
}

func TestWriteBistRequestClearsTrigger(t *testing.T) {
	dev, chip, _ := newBench(t)
	if err := dev.WriteBistRequest(BistRequestYes); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := chip.Register(uint32(RegLatchStatus)) & FieldBistHwscRequest.Mask; got != uint32(BistRequestYes)<<FieldBistHwscRequest.Shift() {
		t.Errorf("request bits on chip = %#x", got)
	}
	pending, _ := dev.Pending(RegLatchStatus)
	if pending&FieldBistHwscRequest.Mask != 0 {
		t.Error("request bits survived in the pending image")
	}
}

func TestFixedPatternForcedOnWrite(t *testing.T) {
	dev, chip, _ := newBench(t)
	if err := dev.WriteRegister(RegGlobalConfig, 0xffffffff); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got := chip.Register(uint32(RegGlobalConfig))
	if got&fixedPatternMasks[RegGlobalConfig] != fixedPatternValues[RegGlobalConfig] {
		t.Errorf("fixed pattern not forced: %#010x", got)
	}
	if got&layers.MaskRead != 0 {
		t.Error("read flag leaked into a write")
	}
}

func TestOutputOnSideCorrection(t *testing.T) {
	dev, _, _ := newBench(t)
	// comparator high on channel 1 only
	if err := dev.Write(FieldSpiOnOut, 0x01); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := dev.Write(FieldChannelSide.ForChannel(1), uint32(SideHs)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := dev.Write(FieldChannelSide.ForChannel(2), uint32(SideLs)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// high level on a high-side channel means on
	if on, err := dev.OutputOn(1); err != nil || !on {
		t.Errorf("channel 1 on = %t, %v; want true", on, err)
	}
	// low level on a low-side channel also means on
	if on, err := dev.OutputOn(2); err != nil || !on {
		t.Errorf("channel 2 on = %t, %v; want true", on, err)
	}
	if _, err := dev.OutputOn(0); err == nil {
		t.Error("channel 0 accepted")
	}
	if _, err := dev.OutputOn(9); err == nil {
		t.Error("channel 9 accepted")
	}
}

func TestOcThresholdRoundTrip(t *testing.T) {
	dev, chip, _ := newBench(t)
	if err := dev.WriteOcThreshold(500, 3); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	f := FieldChannelOcConfig.ForChannel(3)
	if got := f.Extract(chip.Register(uint32(f.Reg))); got != 29 {
		t.Errorf("raw threshold on chip = %d, want 29", got)
	}
	got, err := dev.OcThreshold(3)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if math.Abs(got-502.75) > 1e-9 {
		t.Errorf("threshold = %f, want 502.75", got)
	}

	// far out of range requests clamp to the field limits
	if err := dev.WriteOcThreshold(5000, 3); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := f.Extract(chip.Register(uint32(f.Reg))); got != 63 {
		t.Errorf("raw threshold on chip = %d, want 63", got)
	}
	if err := dev.WriteOcThreshold(5000, 9); err == nil {
		t.Error("channel 9 accepted")
	}
}

func TestChannelDiagnosticsSingleShift(t *testing.T) {
	dev, chip, _ := newBench(t)
	// bits 1, 9 and 17 form the channel 1 diagnosis
	chip.SetRegister(uint32(RegDiagPulse), 1<<1|1<<9|1<<17)
	if err := dev.ReadIntoCache(RegDiagPulse); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	diag, err := dev.ChannelDiagnostics(1)
	if err != nil {
		t.Fatalf("diagnostics failed: %v", err)
	}
	if diag != DiagNoDiagDone {
		t.Errorf("channel 1 diag = %s, want NoDiagDone", diag)
	}
	diag, err = dev.ChannelDiagnostics(2)
	if err != nil {
		t.Fatalf("diagnostics failed: %v", err)
	}
	if diag != DiagOcPinFail {
		t.Errorf("channel 2 diag = %s, want OcPinFail", diag)
	}
	if _, err := dev.ChannelDiagnostics(9); err == nil {
		t.Error("channel 9 accepted")
	}
}

func TestCurrentSourceDecoding(t *testing.T) {
	dev, chip, _ := newBench(t)
	// channel 1 high side with P-type FET, pull state 4 (FET on)
	if err := dev.WriteRegister(RegChannel1,
		FieldChannelSide.Insert(0, uint32(SideHs))|FieldChannelHsFet.Insert(0, uint32(HsFetPmos))); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	chip.SetRegister(uint32(RegFetStatusLow), 4<<pullFieldShift)
	if err := dev.ReadIntoCache(RegFetStatusLow); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	src, err := dev.CurrentSource(1)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if src != SourceFetOn {
		t.Errorf("channel 1 source = %s, want FetOn", src)
	}

	// channel 2 low side, pull state 1 decodes through the LS half
	if err := dev.WriteRegister(RegChannel2, 0); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	chip.SetRegister(uint32(RegFetStatusLow), 1<<(pullFieldShift+pullFieldStride))
	if err := dev.ReadIntoCache(RegFetStatusLow); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	src, err = dev.CurrentSource(2)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if src != SourceFetOn {
		t.Errorf("channel 2 source = %s, want FetOn", src)
	}
	if _, err := dev.CurrentSource(0); err == nil {
		t.Error("channel 0 accepted")
	}
}

func TestBridgePwmGating(t *testing.T) {
	dev, _, harness := newBench(t)
	if err := dev.Write(FieldBridgeConfig.ForBridge(Bridge1), 1); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if err := dev.SetBridgePwm(0.5, Bridge1); err != nil {
		t.Fatalf("pwm failed: %v", err)
	}
	if harness.BridgePwm[1] != 0.5 {
		t.Errorf("bridge 1 pwm = %f, want 0.5", harness.BridgePwm[1])
	}
	// bridge 2 is not configured for PWM, the request is ignored
	if err := dev.SetBridgePwm(0.5, Bridge2); err != nil {
		t.Fatalf("pwm failed: %v", err)
	}
	if harness.BridgePwm[2] != 0 {
		t.Errorf("bridge 2 pwm = %f, want 0", harness.BridgePwm[2])
	}
	if err := dev.SetBridgePwm(0.5, Bridge(3)); err == nil {
		t.Error("bridge 3 accepted")
	}
}

func TestChannelPwmGating(t *testing.T) {
	dev, _, harness := newBench(t)
	// channel 1 under SPI control, bridge 1 configured for PWM
	if err := dev.Write(FieldSpiInputSelect, 0x01); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := dev.Write(FieldBridgeConfig.ForBridge(Bridge1), 1); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if err := dev.SetChannelPwm(0.7, 1); err != nil {
		t.Fatalf("pwm failed: %v", err)
	}
	if harness.ChannelPwm[1] != 0 {
		t.Error("pwm driven on an SPI controlled channel")
	}
	if err := dev.SetChannelPwm(0.7, 2); err != nil {
		t.Fatalf("pwm failed: %v", err)
	}
	if harness.ChannelPwm[2] != 0 {
		t.Error("pwm driven on a bridge-configured channel")
	}
	if err := dev.SetChannelPwm(0.7, 5); err != nil {
		t.Fatalf("pwm failed: %v", err)
	}
	if harness.ChannelPwm[5] != 0.7 {
		t.Errorf("channel 5 pwm = %f, want 0.7", harness.ChannelPwm[5])
	}
	if err := dev.SetChannelPwm(0.7, 9); err == nil {
		t.Error("channel 9 accepted")
	}
}

func TestPwmForcedToZeroWhileFaulted(t *testing.T) {
	dev, chip, harness := newBench(t)
	if err := dev.Write(FieldBridgeConfig.ForBridge(Bridge1), 1); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := dev.SetBridgePwm(0.8, Bridge1); err != nil {
		t.Fatalf("pwm failed: %v", err)
	}

	chip.FailExchange(chip.Exchanges(), ifc.ExchangeError)
	if err := dev.ReadIntoCache(RegAdc); err != ErrCommunication {
		t.Fatalf("error = %v, want ErrCommunication", err)
	}

	if err := dev.SetBridgePwm(0.8, Bridge1); err != ErrFaulted {
		t.Errorf("error = %v, want ErrFaulted", err)
	}
	if harness.BridgePwm[1] != 0 {
		t.Errorf("bridge 1 pwm = %f, want 0 while faulted", harness.BridgePwm[1])
	}
}
