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
	"io/ioutil"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/nowtech/go-l9945/pkg/log"
)

// SpidevConfig describes the Linux spidev device the chip is wired to.
type SpidevConfig struct {
	Path    string `yaml:"path"`
	SpeedHz uint32 `yaml:"speed_hz"`
	Mode    uint8  `yaml:"mode"`
}

type Config struct {
	Transport string        `yaml:"transport"`
	Spidev    *SpidevConfig `yaml:"spidev,omitempty"`
	IP        string        `yaml:"ip"`
	ApiPort   int           `yaml:"api_port"`
	LogLevel  string        `yaml:"log_level"`
	DBPath    string        `yaml:"db_path"`
	filepath  string
}

func (c *Config) Validate() error {
	if c.Transport != TransportSim && c.Transport != TransportSpidev {
		return ErrUnknownTransport{Transport: c.Transport}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	err = ioutil.WriteFile(c.filepath, data, 0644)
	if err != nil {
		return err
	}

	return nil
}

// Load fills the config from the config file if one exists. A missing
// file is not an error, the defaults stay in place.
func (c *Config) Load() error {
	data, err := ioutil.ReadFile(c.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) String() string {
	data, err := yaml.Marshal(&c)
	if err != nil {
		return ""
	}
	return string(data)
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, StateFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		Transport: DefaultTransport,
		Spidev: &SpidevConfig{
			Path:    DefaultSpidevPath,
			SpeedHz: DefaultSpidevSpeed,
			Mode:    DefaultSpidevMode,
		},
		IP:       DefaultIP,
		ApiPort:  DefaultApiPort,
		LogLevel: DefaultLogLevel,
		DBPath:   DefaultDBPath(),
		filepath: DefaultConfigPath(),
	}
}
