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

package cmd

import (
	"io"

	"github.com/nowtech/go-l9945/pkg/config"
	"github.com/nowtech/go-l9945/pkg/device"
	"github.com/nowtech/go-l9945/pkg/spi"
)

// Bench wires one driver instance to the transport the config selects,
// with the recording harness standing in for the bench-side pins and
// PWM hardware.
type Bench struct {
	Dev     *device.Device
	Harness *spi.Harness
	Chip    *spi.Chip // only set with the sim transport
	closer  io.Closer
}

func NewBench(cfg *config.Config) (*Bench, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	harness := spi.NewHarness()
	harness.Sleep = true
	if cfg.Transport == config.TransportSim {
		chip := spi.NewChip()
		return &Bench{
			Dev:     device.New(chip, harness, harness, harness),
			Harness: harness,
			Chip:    chip,
		}, nil
	}
	sp, err := spi.OpenSpidev(cfg.Spidev.Path, cfg.Spidev.SpeedHz, cfg.Spidev.Mode)
	if err != nil {
		return nil, err
	}
	return &Bench{
		Dev:     device.New(sp, harness, harness, harness),
		Harness: harness,
		closer:  sp,
	}, nil
}

func (b *Bench) Close() error {
	if b.closer != nil {
		return b.closer.Close()
	}
	return nil
}
