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
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/nowtech/go-l9945/pkg/config"
	"github.com/nowtech/go-l9945/pkg/device"
	"github.com/nowtech/go-l9945/pkg/log"
)

const (
	BucketNameRegs    = "regs"
	BucketNameReports = "reports"
)

// State persists the last observed register image and the diagnostic
// report history across daemon restarts.
type State struct {
	context.Context
	DB *bbolt.DB
}

func NewState(ctx context.Context, cfg *config.Config) (*State, error) {
	db, err := bbolt.Open(cfg.DBPath, 0600, nil)
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{BucketNameRegs, BucketNameReports} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &State{
		Context: ctx,
		DB:      db,
	}, nil
}

func (s *State) Close() {
	s.DB.Close()
}

func uint32ToByte(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func uint64ToByte(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// SetReg stores one observed register value.
func (s *State) SetReg(reg device.Register, value uint32) error {
	log.Debug("Setting register: Addr: %x Value: %x", uint32(reg), value)
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketNameRegs))
		if b == nil {
			return fmt.Errorf("bucket not found: %s", BucketNameRegs)
		}
		return b.Put(uint32ToByte(uint32(reg)), uint32ToByte(value))
	})
}

// SetRegAll stores a full register image.
func (s *State) SetRegAll(values [device.RegisterCount]uint32) error {
	log.Debug("Setting all registers")
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketNameRegs))
		if b == nil {
			return fmt.Errorf("bucket not found: %s", BucketNameRegs)
		}
		for reg, value := range values {
			if err := b.Put(uint32ToByte(uint32(reg)), uint32ToByte(value)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetReg returns the last stored value of one register.
func (s *State) GetReg(reg device.Register) (uint32, error) {
	log.Debug("Getting register: Addr: %x", uint32(reg))
	var value uint32
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketNameRegs))
		if b == nil {
			return fmt.Errorf("bucket not found: %s", BucketNameRegs)
		}
		valueBytes := b.Get(uint32ToByte(uint32(reg)))
		if valueBytes == nil {
			return fmt.Errorf("key not found: %d", reg)
		}
		value = binary.BigEndian.Uint32(valueBytes)
		return nil
	}); err != nil {
		return 0, err
	}
	return value, nil
}

// GetRegAll returns the last stored register image.
func (s *State) GetRegAll() ([device.RegisterCount]uint32, error) {
	log.Debug("Getting all registers")
	var values [device.RegisterCount]uint32
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketNameRegs))
		if b == nil {
			return fmt.Errorf("bucket not found: %s", BucketNameRegs)
		}
		for reg := range values {
			valueBytes := b.Get(uint32ToByte(uint32(reg)))
			if valueBytes == nil {
				return fmt.Errorf("key not found: %d", reg)
			}
			values[reg] = binary.BigEndian.Uint32(valueBytes)
		}
		return nil
	}); err != nil {
		return values, err
	}
	return values, nil
}

// PutReport appends a rendered diagnostic report to the history and
// returns its sequence number.
func (s *State) PutReport(text string) (uint64, error) {
	var seq uint64
	if err := s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketNameReports))
		if b == nil {
			return fmt.Errorf("bucket not found: %s", BucketNameReports)
		}
		var err error
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(uint64ToByte(seq), []byte(text))
	}); err != nil {
		return 0, err
	}
	return seq, nil
}

// GetReport returns one stored report by sequence number.
func (s *State) GetReport(seq uint64) (string, error) {
	var text string
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketNameReports))
		if b == nil {
			return fmt.Errorf("bucket not found: %s", BucketNameReports)
		}
		valueBytes := b.Get(uint64ToByte(seq))
		if valueBytes == nil {
			return fmt.Errorf("report not found: %d", seq)
		}
		text = string(valueBytes)
		return nil
	}); err != nil {
		return "", err
	}
	return text, nil
}

// LastReport returns the most recent stored report.
func (s *State) LastReport() (uint64, string, error) {
	var seq uint64
	var text string
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketNameReports))
		if b == nil {
			return fmt.Errorf("bucket not found: %s", BucketNameReports)
		}
		key, value := b.Cursor().Last()
		if key == nil {
			return fmt.Errorf("no reports stored")
		}
		seq = binary.BigEndian.Uint64(key)
		text = string(value)
		return nil
	}); err != nil {
		return 0, "", err
	}
	return seq, text, nil
}
