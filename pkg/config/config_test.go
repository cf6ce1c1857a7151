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

package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateTransport(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config rejected: %v", err)
	}
	cfg.Transport = TransportSpidev
	if err := cfg.Validate(); err != nil {
		t.Errorf("spidev transport rejected: %v", err)
	}
	cfg.Transport = "uart"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown transport accepted")
	}
}

func TestValidateLogLevel(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.LogLevel = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown log level accepted")
	}
}

func TestPersistLoadRoundTrip(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.filepath = filepath.Join(t.TempDir(), "config")
	cfg.Transport = TransportSpidev
	cfg.ApiPort = 9000
	if err := cfg.Persist(false); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if err := cfg.Persist(false); err == nil {
		t.Error("Persist overwrote an existing file without consent")
	}
	if err := cfg.Persist(true); err != nil {
		t.Errorf("Persist with overwrite failed: %v", err)
	}

	loaded := NewDefaultConfig()
	loaded.filepath = cfg.filepath
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Transport != TransportSpidev || loaded.ApiPort != 9000 {
		t.Errorf("loaded transport %q port %d, want %q 9000", loaded.Transport, loaded.ApiPort, TransportSpidev)
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.filepath = filepath.Join(t.TempDir(), "absent")
	if err := cfg.Load(); err != nil {
		t.Errorf("Load of a missing file failed: %v", err)
	}
	if cfg.Transport != DefaultTransport {
		t.Errorf("transport changed to %q", cfg.Transport)
	}
}

func TestStringRendersYaml(t *testing.T) {
	s := NewDefaultConfig().String()
	for _, want := range []string{"transport: sim", "speed_hz: 1000000", "api_port: 8009"} {
		if !strings.Contains(s, want) {
			t.Errorf("config string lacks %q:\n%s", want, s)
		}
	}
}
