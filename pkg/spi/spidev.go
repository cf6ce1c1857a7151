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

//go:build linux

package spi

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/nowtech/go-l9945/pkg/device/ifc"
	"github.com/nowtech/go-l9945/pkg/log"
)

// spidev ioctl request numbers, from linux/spi/spidev.h.
const (
	spiIocWrMode        = 0x40016b01
	spiIocWrBitsPerWord = 0x40016b03
	spiIocWrMaxSpeedHz  = 0x40046b04
	spiIocMessage1      = 0x40206b00 // SPI_IOC_MESSAGE(1)
)

// spiIocTransfer mirrors struct spi_ioc_transfer.
type spiIocTransfer struct {
	txBuf          uint64
	rxBuf          uint64
	length         uint32
	speedHz        uint32
	delayUsecs     uint16
	bitsPerWord    uint8
	csChange       uint8
	txNbits        uint8
	rxNbits        uint8
	wordDelayUsecs uint8
	pad            uint8
}

// Spidev is the Transport over a kernel spidev character device.
type Spidev struct {
	file    *os.File
	speedHz uint32
}

// OpenSpidev opens a spidev device and configures its clock mode and
// maximum speed. The chip samples on the falling edge, mode 1.
func OpenSpidev(path string, speedHz uint32, mode uint8) (*Spidev, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s := &Spidev{file: file, speedHz: speedHz}
	if err := s.ioctl(spiIocWrMode, unsafe.Pointer(&mode)); err != nil {
		file.Close()
		return nil, fmt.Errorf("set mode on %s: %w", path, err)
	}
	bits := uint8(8)
	if err := s.ioctl(spiIocWrBitsPerWord, unsafe.Pointer(&bits)); err != nil {
		file.Close()
		return nil, fmt.Errorf("set word size on %s: %w", path, err)
	}
	if err := s.ioctl(spiIocWrMaxSpeedHz, unsafe.Pointer(&speedHz)); err != nil {
		file.Close()
		return nil, fmt.Errorf("set speed on %s: %w", path, err)
	}
	return s, nil
}

func (s *Spidev) Close() error {
	return s.file.Close()
}

func (s *Spidev) ioctl(request uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, s.file.Fd(), request, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// EnableTransfer is a no-op: the kernel cycles the chip-select line
// around every SPI_IOC_MESSAGE on its own.
func (s *Spidev) EnableTransfer(enable bool) {
}

func (s *Spidev) Exchange(tx []byte, rx []byte) ifc.ExchangeStatus {
	transfer := spiIocTransfer{
		txBuf:       uint64(uintptr(unsafe.Pointer(&tx[0]))),
		rxBuf:       uint64(uintptr(unsafe.Pointer(&rx[0]))),
		length:      uint32(len(tx)),
		speedHz:     s.speedHz,
		bitsPerWord: 8,
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, s.file.Fd(), spiIocMessage1,
		uintptr(unsafe.Pointer(&transfer)))
	switch errno {
	case 0:
		return ifc.ExchangeOk
	case unix.EBUSY:
		return ifc.ExchangeBusy
	case unix.ETIMEDOUT:
		return ifc.ExchangeTimeout
	}
	log.Error("spidev exchange failed: %v", errno)
	return ifc.ExchangeError
}
