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
	"io"
)

// reportWriter remembers the first write error so the line inventory
// below stays free of error plumbing.
type reportWriter struct {
	w   io.Writer
	err error
}

func (rw *reportWriter) line(format string, args ...interface{}) {
	if rw.err != nil {
		return
	}
	_, rw.err = fmt.Fprintf(rw.w, format+"\n", args...)
}

func (rw *reportWriter) optional(value bool, ok bool, present string, missing string) {
	if ok {
		rw.line("%s%t", present, value)
	} else {
		rw.line("%s", missing)
	}
}

// WriteReport renders a diagnostic result as the human-readable
// multi-line report, one observation per line. Channel masks print in
// binary, channel 8 leftmost.
func WriteReport(w io.Writer, r *Result) error {
	rw := &reportWriter{w: w}
	rw.line("Test: %s", r.Test)
	rw.line("HS PFET: %08b", r.HsFetIsPmosMask())
	rw.line("channel HS: %08b", r.SideIsHsMask())
	rw.line("out on: %08b", r.OutputOnMask())
	rw.line("out en: %08b", r.OutputEnableMask())
	limit, ok := r.BridgeCurrentLimit(Bridge1)
	rw.optional(limit, ok, "bridge 1 curr lim: ", "bridge 1 curr lim N/A")
	limit, ok = r.BridgeCurrentLimit(Bridge2)
	rw.optional(limit, ok, "bridge 2 curr lim: ", "bridge 2 curr lim N/A")
	for ch := Channel(1); ch <= ChannelCount; ch++ {
		if diag, ok := r.ChannelDiagnostics(ch); ok {
			rw.line("channel %d diag: %s", ch, diag)
		} else {
			rw.line("channel %d diag: N/A", ch)
		}
	}
	rw.line("dis: EN6: %s", r.En6Disable())
	rw.line("dis: Vdd OV latch: %t", r.VddOvDisableLatch())
	rw.line("dis: Vdd UV: %s", r.VddUvDisable())
	rw.line("dis: pin DIS: %s", r.DeviceDis())
	rw.line("dis: pin NDIS: %s", r.DeviceNdisOn())
	rw.line("nDIS out latch: %t", r.DeviceNdisOutLatch())
	comm, ok := r.CommCheckLatch()
	rw.optional(comm, ok, "comm error: ", "comm error N/A")
	bist, ok := r.BistResult()
	rw.optional(bist, ok, "BIST: ", "BIST N/A")
	hwsc, ok := r.HwscResult()
	rw.optional(hwsc, ok, "HWSC: ", "HWSC N/A")
	rw.line("Vdd OV: %s", r.VddOvComp())
	rw.line("Vdd UV: %s", r.VddUvComp())
	rw.line("POR latch: %t", r.PowerOnResetLatch())
	rw.line("nRES latch: %t", r.NresLatch())
	rw.line("CP UV: %s", r.VcpUv())
	rw.line("Vps UV: %s", r.VpsUv())
	rw.line("FET status: %08b", r.ExternalFetOnMask())
	rw.line("FET cmd: %08b", r.ExternalFetCommandMask())
	for ch := Channel(1); ch <= ChannelCount; ch++ {
		rw.line("channel %d curr src: %s", ch, r.CurrentSource(ch))
	}
	rw.line("nDIS protect latch: %t", r.NdisProtectLatch())
	rw.line("overtemp latch: %t", r.OverTempState())
	rw.line("SPI SDO OV latch: %t", r.SdoOvLatch())
	rw.line("temperature: %.2f", r.Temperature())
	rw.line("Vps: %.3f", r.SupplyVoltage())
	return rw.err
}
