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

package srv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nowtech/go-l9945/pkg/config"
	"github.com/nowtech/go-l9945/pkg/device"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "state.db")
	state, err := NewState(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}
	t.Cleanup(state.Close)
	return state
}

func TestStateRegRoundTrip(t *testing.T) {
	state := newTestState(t)

	if err := state.SetReg(device.RegChannel3, 0x30001234); err != nil {
		t.Fatalf("SetReg failed: %v", err)
	}
	value, err := state.GetReg(device.RegChannel3)
	if err != nil {
		t.Fatalf("GetReg failed: %v", err)
	}
	if value != 0x30001234 {
		t.Errorf("GetReg = %#010x, want 0x30001234", value)
	}
	if _, err := state.GetReg(device.RegAdc); err == nil {
		t.Error("GetReg returned a value for a register never stored")
	}
}

func TestStateRegAllRoundTrip(t *testing.T) {
	state := newTestState(t)

	if _, err := state.GetRegAll(); err == nil {
		t.Error("GetRegAll succeeded on an empty store")
	}
	var values [device.RegisterCount]uint32
	for reg := range values {
		values[reg] = uint32(reg) << 24
	}
	if err := state.SetRegAll(values); err != nil {
		t.Fatalf("SetRegAll failed: %v", err)
	}
	got, err := state.GetRegAll()
	if err != nil {
		t.Fatalf("GetRegAll failed: %v", err)
	}
	if got != values {
		t.Errorf("GetRegAll = %v, want %v", got, values)
	}
}

func TestStateReportHistory(t *testing.T) {
	state := newTestState(t)

	if _, _, err := state.LastReport(); err == nil {
		t.Error("LastReport succeeded on an empty store")
	}
	seq1, err := state.PutReport("first report")
	if err != nil {
		t.Fatalf("PutReport failed: %v", err)
	}
	seq2, err := state.PutReport("second report")
	if err != nil {
		t.Fatalf("PutReport failed: %v", err)
	}
	if seq2 <= seq1 {
		t.Errorf("sequence numbers not increasing: %d then %d", seq1, seq2)
	}

	text, err := state.GetReport(seq1)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if text != "first report" {
		t.Errorf("GetReport(%d) = %q", seq1, text)
	}
	if _, err := state.GetReport(seq2 + 1); err == nil {
		t.Error("GetReport returned a report never stored")
	}

	lastSeq, lastText, err := state.LastReport()
	if err != nil {
		t.Fatalf("LastReport failed: %v", err)
	}
	if lastSeq != seq2 || lastText != "second report" {
		t.Errorf("LastReport = %d, %q; want %d, %q", lastSeq, lastText, seq2, "second report")
	}
}
