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

const (
	RegGlobalConfig Register = iota // 0
	RegChannel1                     // 1
	RegChannel2                     // 2
	RegChannel3                     // 3
	RegChannel4                     // 4
	RegChannel5                     // 5
	RegChannel6                     // 6
	RegChannel7                     // 7
	RegChannel8                     // 8
	RegDiagPulse                    // 9
	RegLatchStatus                  // 10
	RegFetStatusLow                 // 11, channels 1-4
	RegFetStatusHigh                // 12, channels 5-8
	RegAdc                          // 13
)

// ChannelRegister maps a channel to its dedicated configuration register.
func ChannelRegister(ch Channel) Register {
	return RegChannel1 + Register(ch-1)
}

// channelBridge maps a channel to the half-bridge it belongs to.
func channelBridge(ch Channel) Bridge {
	if ch <= 4 {
		return Bridge1
	}
	return Bridge2
}

// channelFetRegister maps a channel to the FET status register
// carrying it, channels 1-4 on the low register, 5-8 on the high one.
func channelFetRegister(ch Channel) Register {
	return RegFetStatusLow + Register((ch-1)/4)
}

// channelFetIndex is the channel's position within its FET status
// register, 1 to 4.
func channelFetIndex(ch Channel) Channel {
	return Channel((ch-1)%4 + 1)
}

// resetDefaults holds the documented power-on register image loaded
// into the pending-write cache by Reset. Values come unmodified from
// the data sheet.
var resetDefaults = [RegisterCount]uint32{
	//10987654321098765432109876543210
	0b00001000000000000000000000000001,
	0x1EC00001,
	0x2EC00001,
	0x3BC00000,
	0x48C00001,
	0x5EC00000,
	0x6EC00000,
	0x7AC00000,
	0x88C00001,
	0b10011010101010111111111111111110,
	0b10101010101010101010101010000000,
	0xBAAAAAAA,
	0xCAAAAAAB,
	0xDAAAAAAA,
	//10987654321098765432109876543210
}

// fixedPatternValues and fixedPatternMasks are the echoed
// command/reserved bits the chip mandates on every frame. The masked
// bits are forced to the fixed values on every write and come back
// unchanged on every read.
var fixedPatternValues = [RegisterCount]uint32{
	//10987654321098765432109876543210
	0x00000000,
	0x10000000,
	0x20000000,
	0x30000000,
	0x40000000,
	0x50000000,
	0x60000000,
	0x70000000,
	0x80000000,
	0b10010010101010100000000000000000,
	0b10100010101010101010101010000000,
	0xBAAAAAAA,
	0xCAAAAAAB,
	0xDAAAAAAA,
	//10987654321098765432109876543210
}

var fixedPatternMasks = [RegisterCount]uint32{
	//10987654321098765432109876543210
	0xF0000000,
	0xF0000000,
	0xF0000000,
	0xF0000000,
	0xF0000000,
	0xF0000000,
	0xF1000000,
	0xF1000000,
	0xF0000000,
	0b11110111111111100000000000000000,
	0b11110111111111111111111110000000,
	0xFFFFFFFF,
	0xFFFFFFFF,
	0xFFFFFFFF,
	//10987654321098765432109876543210
}

// Global configuration register 0.
var (
	FieldSpreadSpectrum    = mustField(RegGlobalConfig, 0x01<<26)
	FieldEnableDiagnostics = mustField(RegGlobalConfig, 0x01<<25)
	FieldSpiInputSelect    = mustField(RegGlobalConfig, 0xff<<17)
	FieldProtectionDisable = mustField(RegGlobalConfig, 0xff<<9)
	FieldSpiOnOut          = mustField(RegGlobalConfig, 0xff<<1)
	// FieldOutputVCompared shares the bits of FieldSpiOnOut: written it
	// commands the outputs, read back it carries the comparator state.
	FieldOutputVCompared = FieldSpiOnOut
)

// Bridge-scoped fields, defined on the bridge 1 registers 1-4.
// Address the bridge 2 twins (registers 5-8) through ForBridge.
var (
	FieldBridgeDeadTime       = mustField(RegChannel1, 0x03<<25)
	FieldBridgeTdiagTimer     = mustField(RegChannel1, 0x01<<24)
	FieldBridgeTOff           = mustField(RegChannel2, 0x03<<25)
	FieldBatteryFactor        = mustField(RegChannel2, 0x01<<24)
	FieldBridgeCurrentLimitEn = mustField(RegChannel3, 0x01<<26)
	FieldBridgeFreewheelLs    = mustField(RegChannel3, 0x01<<25)
	FieldGccOverride          = mustField(RegChannel3, 0x01<<24)
	FieldBridgeConfig         = mustField(RegChannel4, 0x01<<26)
	FieldPeakHoldDiagReport   = mustField(RegChannel4, 0x01<<25)
	FieldPeakHoldConfig       = mustField(RegChannel4, 0x01<<24)
)

// Channel-scoped fields, repeated identically on registers 1-8.
// Defined on the channel 1 register, address the rest through ForChannel.
var (
	FieldChannelTdiagOff          = mustField(RegChannel1, 0x03<<22)
	FieldChannelOcThresholdSource = mustField(RegChannel1, 0x01<<21)
	FieldChannelOcConfig          = mustField(RegChannel1, 0x3f<<15)
	FieldChannelOcTempComp        = mustField(RegChannel1, 0x03<<13)
	FieldChannelOcBattComp        = mustField(RegChannel1, 0x01<<12)
	FieldChannelOcBlankTime       = mustField(RegChannel1, 0x07<<9)
	FieldChannelReEngage          = mustField(RegChannel1, 0x01<<8)
	FieldChannelOcMeasure         = mustField(RegChannel1, 0x01<<7)
	FieldChannelOlCurrent         = mustField(RegChannel1, 0x01<<6)
	FieldChannelGateCurrent       = mustField(RegChannel1, 0x03<<4)
	FieldChannelHsFet             = mustField(RegChannel1, 0x01<<3)
	FieldChannelSide              = mustField(RegChannel1, 0x01<<2)
	FieldChannelEnableOutput      = mustField(RegChannel1, 0x01<<1)
)

// Diagnostic pulse trigger / per-channel fault status register 9.
var (
	FieldBridge2CurrentLimit = mustField(RegDiagPulse, 0x01<<26) // read
	FieldBridge1CurrentLimit = mustField(RegDiagPulse, 0x01<<25) // read
	FieldDiagOffPulse        = mustField(RegDiagPulse, 0xff<<9)  // write
	FieldDiagOnPulse         = mustField(RegDiagPulse, 0xff<<1)  // write
)

// channelDiagMask picks the three diagnostic bits of one channel out
// of the register 9 word shifted down by the channel number.
const channelDiagMask = 0x010101

// Latch/status register 10. The request fields are write-only and
// share bit positions with read-only latch bits.
var (
	FieldBistHwscRequest      = mustField(RegLatchStatus, 0x03<<5) // write
	FieldConfigCommCheck      = mustField(RegLatchStatus, 0x03<<3) // write
	FieldEn6DisableLatch      = mustField(RegLatchStatus, 0x01<<26)
	FieldEn6DisableState      = mustField(RegLatchStatus, 0x01<<25)
	FieldVddOvDisableLatch    = mustField(RegLatchStatus, 0x01<<24)
	FieldVddUvDisableState    = mustField(RegLatchStatus, 0x01<<23)
	FieldVddUvDisableLatch    = mustField(RegLatchStatus, 0x01<<22)
	FieldDeviceDisState       = mustField(RegLatchStatus, 0x01<<21)
	FieldDeviceDisLatch       = mustField(RegLatchStatus, 0x01<<20)
	FieldDeviceNdisOnState    = mustField(RegLatchStatus, 0x01<<19)
	FieldDeviceNdisOnLatch    = mustField(RegLatchStatus, 0x01<<18)
	FieldDeviceNdisOutLatch   = mustField(RegLatchStatus, 0x01<<17)
	FieldConfigCommCheckState = mustField(RegLatchStatus, 0x01<<16)
	FieldCommCheckLatch       = mustField(RegLatchStatus, 0x01<<15)
	FieldBistDone             = mustField(RegLatchStatus, 0x01<<14)
	FieldBistDisableLatch     = mustField(RegLatchStatus, 0x01<<13)
	FieldHwscDone             = mustField(RegLatchStatus, 0x01<<12)
	FieldHwscDisableLatch     = mustField(RegLatchStatus, 0x01<<11)
	FieldVddOvCompState       = mustField(RegLatchStatus, 0x01<<10)
	FieldVddOvCompLatch       = mustField(RegLatchStatus, 0x01<<9)
	FieldVddUvCompState       = mustField(RegLatchStatus, 0x01<<8)
	FieldVddUvCompLatch       = mustField(RegLatchStatus, 0x01<<7)
	FieldPowerOnResetLatch    = mustField(RegLatchStatus, 0x01<<6)
	FieldNresLatch            = mustField(RegLatchStatus, 0x01<<5)
	FieldVcpUvState           = mustField(RegLatchStatus, 0x01<<4)
	FieldVcpUvLatch           = mustField(RegLatchStatus, 0x01<<3)
	FieldVpsUvState           = mustField(RegLatchStatus, 0x01<<2)
	FieldVpsUvLatch           = mustField(RegLatchStatus, 0x01<<1)
)

// External FET state / current-source pull status registers 11-12,
// channels 1-4 on the low register, 5-8 on the high one.
var (
	FieldExternalFetState   = mustField(RegFetStatusLow, 0x0f<<17)
	FieldExternalFetCommand = mustField(RegFetStatusLow, 0x0f<<13)
)

// Current-source pull fields overlap: 4 bits wide with a stride of 3
// bits per channel slot.
const (
	pullFieldShift  = 1
	pullFieldStride = 3
	pullFieldMask   = 0x0f
)

// Over-temperature / supply register 13.
var (
	FieldNdisProtectLatch = mustField(RegAdc, 0x01<<23)
	FieldOverTempState    = mustField(RegAdc, 0x01<<22)
	FieldSdoOvLatch       = mustField(RegAdc, 0x01<<21)
	FieldTempAdc          = mustField(RegAdc, 0x3ff<<11)
	FieldVpsAdc           = mustField(RegAdc, 0x3ff<<1)
)

// Enumerated field values, relative to their field (already shifted down).

// BridgeDeadTime selects the dead time inserted between complementary
// switch transitions of a bridge.
type BridgeDeadTime uint32

const (
	DeadTime1us BridgeDeadTime = iota
	DeadTime2us
	DeadTime4us
	DeadTime8us
)

// TdiagTimer selects which timer bounds the external diagnostic pulse.
type TdiagTimer uint32

const (
	TdiagTimerHBridge TdiagTimer = iota
	TdiagTimerStandard
)

// BridgeTOff selects the freewheeling off time of a bridge.
type BridgeTOff uint32

const (
	TOff31us BridgeTOff = iota
	TOff48us
	TOff62us
	TOff125us
)

// BatteryFactor selects the battery compensation factor source.
type BatteryFactor uint32

const (
	BatteryFactorCv BatteryFactor = iota
	BatteryFactorPv
)

// FreewheelLs selects passive or active low-side freewheeling.
type FreewheelLs uint32

const (
	FreewheelPassive FreewheelLs = iota
	FreewheelActive
)

// GccOverride selects selective or global gate current control override.
type GccOverride uint32

const (
	GccSelective GccOverride = iota
	GccGlobal
)

// PeakHoldDiagReport selects what the diagnostics report for a
// peak-and-hold configured bridge.
type PeakHoldDiagReport uint32

const (
	PeakHoldNoOlStgStbFailure PeakHoldDiagReport = iota
	PeakHoldNoDiagDone
)

// ChannelTdiagOff selects the off-diagnosis timer range of a channel.
type ChannelTdiagOff uint32

const (
	TdiagOff11to25us ChannelTdiagOff = iota
	TdiagOff28to61us
	TdiagOff40to105us
	TdiagOff51to150us
)

// OcThresholdSource selects whether reads of the over-current
// threshold report the fixed or the actual compensated value.
type OcThresholdSource uint32

const (
	OcThresholdFixed OcThresholdSource = iota
	OcThresholdActual
)

// OcTempComp selects the temperature compensation knee of the
// over-current threshold.
type OcTempComp uint32

const (
	OcTempCompNone OcTempComp = iota
	OcTempComp60deg
	OcTempComp40deg
	OcTempComp25deg
)

// OcBlankTime is the configured delay during which an over-current
// condition is ignored after switching.
type OcBlankTime uint32

const (
	OcBlank11us OcBlankTime = iota
	OcBlank15us
	OcBlank20us
	OcBlank31us
	OcBlank42us
	OcBlank53us
	OcBlank97us
	OcBlank142us
)

// OutputReEngage selects when a protected output re-engages.
type OutputReEngage uint32

const (
	ReEngageWithControlSignal OutputReEngage = iota
	ReEngageAfterControlSignal
)

// OcMeasure selects the over-current measurement source.
type OcMeasure uint32

const (
	OcMeasureDsm OcMeasure = iota
	OcMeasureShunt
)

// OlCurrent selects the open-load output current capability.
type OlCurrent uint32

const (
	OlCurrent100uA OlCurrent = iota
	OlCurrent1mA
)

// GateCurrent selects the gate charge current of a channel.
type GateCurrent uint32

const (
	GateCurrentExternalResistor GateCurrent = iota
	GateCurrent20mA
	GateCurrent5mA
	GateCurrent1mA
)

// HsFet selects the external FET polarity of a high-side channel.
type HsFet uint32

const (
	HsFetNmos HsFet = iota
	HsFetPmos
)

// Side selects whether a channel drives a low-side or high-side FET.
type Side uint32

const (
	SideLs Side = iota
	SideHs
)

// BistRequest and CommCheckRequest are two-bit one-shot request codes.
type BistRequest uint32

const (
	BistRequestYes BistRequest = 1
	BistRequestNo  BistRequest = 2
)

type CommCheckRequest uint32

const (
	CommCheckYes CommCheckRequest = 1
	CommCheckNo  CommCheckRequest = 2
)

// ChannelDiag is the three diagnostic bits of one channel, kept in
// their register positions (bits 0, 8 and 16 of the value).
type ChannelDiag uint32

const (
	DiagOcPinFail      ChannelDiag = 0x000000
	DiagOcFail         ChannelDiag = 0x000001
	DiagStgStbFail     ChannelDiag = 0x000100
	DiagOlFail         ChannelDiag = 0x000101
	DiagNoFail         ChannelDiag = 0x010000
	DiagNoOcFail       ChannelDiag = 0x010001
	DiagNoOlStgStbFail ChannelDiag = 0x010100
	DiagNoDiagDone     ChannelDiag = 0x010101
)

var channelDiagNames = [8]string{
	"OcPinFail", "OcFail", "StgStbFail", "OlFail",
	"NoFail", "NoOcFail", "NoOlStgStbFail", "NoDiagDone",
}

func (d ChannelDiag) String() string {
	compacted := (uint32(d) | uint32(d)>>7 | uint32(d)>>14) & 7
	return channelDiagNames[compacted]
}

// CurrentSource is the decoded current-source pull state of a channel.
type CurrentSource uint32

const (
	SourceCompromised CurrentSource = iota
	SourceFetOn
	SourceFetOff
	SourceFetTriState
)

var currentSourceNames = [4]string{"Corrupt", "FetOn", "FetOff", "Fet3st"}

func (s CurrentSource) String() string {
	if s > SourceFetTriState {
		return "Unknown"
	}
	return currentSourceNames[s]
}

// currentSourceDecoder maps the 4 raw pull bits of a channel, plus bit
// 3 selecting the LS-or-NMOS interpretation, to the decoded state.
var currentSourceDecoder = [0x10]CurrentSource{
	// HS and PMOS
	SourceFetTriState, SourceCompromised, SourceFetOff, SourceCompromised,
	SourceFetOn, SourceCompromised, SourceCompromised, SourceCompromised,
	// LS or NMOS
	SourceFetTriState, SourceFetOn, SourceFetOff, SourceCompromised,
	SourceCompromised, SourceCompromised, SourceCompromised, SourceCompromised,
}

// StatusLatch combines a live status bit with its sticky latch bit.
type StatusLatch uint8

const (
	Both0 StatusLatch = iota
	Status1
	Latch1
	Both1
)

var statusLatchNames = [4]string{"Both0", "Status1", "Latch1", "Both1"}

func (s StatusLatch) String() string {
	if s > Both1 {
		return "Unknown"
	}
	return statusLatchNames[s]
}
