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
	"bytes"
	"strings"
	"testing"
)

// preparePulseSetup makes every channel eligible for a diagnostic
// pulse: diagnostics enabled, all channels under SPI control and not
// protected, high side with the comparator low (observed off), short
// over-current blanking, no bridge in PWM mode.
func preparePulseSetup(t *testing.T, dev *Device) {
	t.Helper()
	if err := dev.Write(FieldEnableDiagnostics, 1); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}
	if err := dev.Write(FieldSpiInputSelect, 0xff); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}
	if err := dev.Write(FieldProtectionDisable, 0); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}
	if err := dev.Write(FieldSpiOnOut, 0); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}
	for ch := Channel(1); ch <= ChannelCount; ch++ {
		dev.Modify(FieldChannelSide.ForChannel(ch), uint32(SideHs))
		dev.Modify(FieldChannelOcBlankTime.ForChannel(ch), uint32(OcBlank11us))
		if err := dev.WriteFromCache(ChannelRegister(ch)); err != nil {
			t.Fatalf("setup write failed: %v", err)
		}
	}
	if err := dev.Write(FieldBridgeConfig.ForBridge(Bridge1), 0); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}
	if err := dev.Write(FieldBridgeConfig.ForBridge(Bridge2), 0); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}
}

func TestDiagnoseOffPulseFiresEligibleChannels(t *testing.T) {
	dev, chip, harness := newBench(t)
	preparePulseSetup(t, dev)
	delayedBefore := harness.DelayedMs

	result, err := dev.Diagnose(TestOffPulse)
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if result.Test != TestOffPulse {
		t.Errorf("result test = %s, want OffPulse", result.Test)
	}
	if result.Channels != 0xff {
		t.Errorf("tested channels = %08b, want all", result.Channels)
	}
	wantTrigger := (fixedPatternValues[RegDiagPulse] | 0xff<<FieldDiagOffPulse.Shift()) &^ 1
	if got := chip.Register(uint32(RegDiagPulse)); got != wantTrigger {
		t.Errorf("trigger word on chip = %#010x, want %#010x", got, wantTrigger)
	}
	pending, _ := dev.Pending(RegDiagPulse)
	if pending != fixedPatternValues[RegDiagPulse] {
		t.Errorf("pending image = %#010x, trigger bits must not persist", pending)
	}
	if harness.DelayedMs != delayedBefore+testSettleMs[TestOffPulse] {
		t.Errorf("settle delay = %d ms, want %d", harness.DelayedMs-delayedBefore, testSettleMs[TestOffPulse])
	}
	if _, ok := result.ChannelDiagnostics(1); !ok {
		t.Error("channel 1 diagnostics unavailable after an off pulse")
	}
}

func TestDiagnoseOnPulseRequiresObservedOn(t *testing.T) {
	dev, chip, harness := newBench(t)
	preparePulseSetup(t, dev)
	regBefore := chip.Register(uint32(RegDiagPulse))
	delayedBefore := harness.DelayedMs

	// all channels observe off, nothing qualifies for an on pulse
	result, err := dev.Diagnose(TestOnPulse)
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if result.Channels != 0 {
		t.Errorf("tested channels = %08b, want none", result.Channels)
	}
	if got := chip.Register(uint32(RegDiagPulse)); got != regBefore {
		t.Error("trigger issued with no eligible channel")
	}
	if harness.DelayedMs != delayedBefore {
		t.Error("settle delay spent with no eligible channel")
	}
	if _, ok := result.ChannelDiagnostics(1); ok {
		t.Error("diagnostics reported for an untested channel")
	}

	// turning the outputs on flips eligibility to the on pulse
	if err := dev.Write(FieldSpiOnOut, 0xff); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	result, err = dev.Diagnose(TestOnPulse)
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if result.Channels != 0xff {
		t.Errorf("tested channels = %08b, want all", result.Channels)
	}
}

func TestDiagnoseBlankTimeCeiling(t *testing.T) {
	dev, _, _ := newBench(t)
	preparePulseSetup(t, dev)
	// channel 3 blanks as long as the off pulse, it cannot be judged
	if err := dev.Write(FieldChannelOcBlankTime.ForChannel(3), uint32(OcBlank142us)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	// channel 4 blanks just below the ceiling and stays eligible
	if err := dev.Write(FieldChannelOcBlankTime.ForChannel(4), uint32(OcBlank97us)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	result, err := dev.Diagnose(TestOffPulse)
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if result.Channels != 0xff&^(1<<2) {
		t.Errorf("tested channels = %08b, want channel 3 excluded", result.Channels)
	}
}

func TestDiagnoseAutoIgnoresPulseGates(t *testing.T) {
	dev, _, _ := newBench(t)
	preparePulseSetup(t, dev)
	// protection disabled on the low nibble excludes those channels
	if err := dev.Write(FieldProtectionDisable, 0x0f); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	// SPI input selection does not gate the continuous self-diagnosis
	if err := dev.Write(FieldSpiInputSelect, 0); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	result, err := dev.Diagnose(TestAuto)
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if result.Channels != 0xf0 {
		t.Errorf("tested channels = %08b, want 11110000", result.Channels)
	}
}

func TestDiagnoseBistIssuesRequest(t *testing.T) {
	dev, chip, harness := newBench(t)
	delayedBefore := harness.DelayedMs

	result, err := dev.Diagnose(TestBist)
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if result.Test != TestBist {
		t.Errorf("result test = %s, want Bist", result.Test)
	}
	if got := chip.Register(uint32(RegLatchStatus)) & FieldBistHwscRequest.Mask; got != uint32(BistRequestYes)<<FieldBistHwscRequest.Shift() {
		t.Errorf("request bits on chip = %#x", got)
	}
	pending, _ := dev.Pending(RegLatchStatus)
	if pending&FieldBistHwscRequest.Mask != 0 {
		t.Error("request bits survived in the pending image")
	}
	if harness.DelayedMs != delayedBefore+testSettleMs[TestBist] {
		t.Errorf("settle delay = %d ms, want %d", harness.DelayedMs-delayedBefore, testSettleMs[TestBist])
	}
}

func TestDiagnoseRejectsUnknownTest(t *testing.T) {
	dev, _, _ := newBench(t)
	if _, err := dev.Diagnose(Test(7)); err == nil {
		t.Error("unknown test accepted")
	}
}

func TestParseTest(t *testing.T) {
	for want, name := range testNames {
		got, err := ParseTest(name)
		if err != nil || got != Test(want) {
			t.Errorf("ParseTest(%q) = %d, %v", name, got, err)
		}
	}
	if _, err := ParseTest("Smoke"); err == nil {
		t.Error("unknown name accepted")
	}
}

func TestResultAvailabilityGates(t *testing.T) {
	var regs [RegisterCount]uint32
	regs[RegLatchStatus] = FieldBistDone.Mask | FieldBistDisableLatch.Mask | FieldHwscDone.Mask
	r := &Result{Test: TestBist, Regs: regs}

	if failed, ok := r.BistResult(); !ok || !failed {
		t.Errorf("BistResult = %t, %t; want true, true", failed, ok)
	}
	if failed, ok := r.HwscResult(); !ok || failed {
		t.Errorf("HwscResult = %t, %t; want false, true", failed, ok)
	}
	// without the done bits or outside a Bist run nothing is reported
	if _, ok := (&Result{Test: TestAuto, Regs: regs}).BistResult(); ok {
		t.Error("BistResult available outside a Bist run")
	}
	if _, ok := (&Result{Test: TestBist}).BistResult(); ok {
		t.Error("BistResult available without the done bit")
	}

	if _, ok := r.CommCheckLatch(); ok {
		t.Error("CommCheckLatch available without the check state bit")
	}
	regs[RegLatchStatus] |= FieldConfigCommCheckState.Mask | FieldCommCheckLatch.Mask
	r = &Result{Test: TestBist, Regs: regs}
	if latched, ok := r.CommCheckLatch(); !ok || !latched {
		t.Errorf("CommCheckLatch = %t, %t; want true, true", latched, ok)
	}
}

func TestResultBridgeCurrentLimit(t *testing.T) {
	var regs [RegisterCount]uint32
	regs[RegChannel3] = FieldBridgeCurrentLimitEn.Mask
	regs[RegChannel4] = FieldBridgeConfig.Mask
	regs[RegDiagPulse] = FieldBridge1CurrentLimit.Mask
	r := &Result{Test: TestNone, Regs: regs}

	if limit, ok := r.BridgeCurrentLimit(Bridge1); !ok || !limit {
		t.Errorf("bridge 1 limit = %t, %t; want true, true", limit, ok)
	}
	// bridge 2 has neither limiter nor PWM configuration
	if _, ok := r.BridgeCurrentLimit(Bridge2); ok {
		t.Error("bridge 2 limit available without configuration")
	}
	if _, ok := r.BridgeCurrentLimit(Bridge(3)); ok {
		t.Error("bridge 3 accepted")
	}
}

func TestResultStatusLatchCombinations(t *testing.T) {
	var regs [RegisterCount]uint32
	r := &Result{Regs: regs}
	if got := r.VddUvComp(); got != Both0 {
		t.Errorf("VddUvComp = %s, want Both0", got)
	}
	regs[RegLatchStatus] = FieldVddUvCompState.Mask
	r = &Result{Regs: regs}
	if got := r.VddUvComp(); got != Status1 {
		t.Errorf("VddUvComp = %s, want Status1", got)
	}
	regs[RegLatchStatus] = FieldVddUvCompLatch.Mask
	r = &Result{Regs: regs}
	if got := r.VddUvComp(); got != Latch1 {
		t.Errorf("VddUvComp = %s, want Latch1", got)
	}
	regs[RegLatchStatus] = FieldVddUvCompState.Mask | FieldVddUvCompLatch.Mask
	r = &Result{Regs: regs}
	if got := r.VddUvComp(); got != Both1 {
		t.Errorf("VddUvComp = %s, want Both1", got)
	}
}

func TestResultChannelMasks(t *testing.T) {
	var regs [RegisterCount]uint32
	// channel 1 high side with its FET state bit high observes on,
	// channel 2 high side with the bit low observes off, the low-side
	// rest observe on with their bits low
	regs[RegChannel1] = FieldChannelSide.Mask
	regs[RegChannel2] = FieldChannelSide.Mask | FieldChannelEnableOutput.Mask
	regs[RegFetStatusLow] = uint32(1) << FieldExternalFetState.Shift()
	r := &Result{Regs: regs}

	if got := r.ExternalFetOnMask(); got != 0b11111101 {
		t.Errorf("FET on mask = %08b, want 11111101", got)
	}
	if got := r.SideIsHsMask(); got != 0x03 {
		t.Errorf("HS mask = %08b, want 00000011", got)
	}
	if got := r.OutputEnableMask(); got != 0x02 {
		t.Errorf("enable mask = %08b, want 00000010", got)
	}
}

func TestWriteReportInventory(t *testing.T) {
	var regs [RegisterCount]uint32
	regs[RegLatchStatus] = FieldBistDone.Mask | FieldBistDisableLatch.Mask
	regs[RegAdc] = 256<<FieldTempAdc.Shift() | 256<<FieldVpsAdc.Shift()
	r := &Result{Test: TestBist, Regs: regs}

	var buf bytes.Buffer
	if err := WriteReport(&buf, r); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}
	report := buf.String()
	for _, want := range []string{
		"Test: Bist",
		"BIST: true",
		"HWSC N/A",
		"bridge 1 curr lim N/A",
		"channel 1 diag: N/A",
		"channel 8 curr src: Fet3st",
		"temperature: 6.68",
		"Vps: 12.288",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report lacks %q:\n%s", want, report)
		}
	}
	if got := strings.Count(report, "\n"); got != 45 {
		t.Errorf("report has %d lines, want 45", got)
	}
}
