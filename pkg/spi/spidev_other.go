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

//go:build !linux

package spi

import (
	"fmt"

	"github.com/nowtech/go-l9945/pkg/device/ifc"
)

// Spidev is only available on Linux, other platforms get the simulator.
type Spidev struct{}

func OpenSpidev(path string, speedHz uint32, mode uint8) (*Spidev, error) {
	return nil, fmt.Errorf("spidev transport is only available on linux")
}

func (s *Spidev) Close() error {
	return nil
}

func (s *Spidev) EnableTransfer(enable bool) {
}

func (s *Spidev) Exchange(tx []byte, rx []byte) ifc.ExchangeStatus {
	return ifc.ExchangeError
}
