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

// Package client talks to a running daemon over its RESTful API.
package client

import (
	"errors"
	"fmt"

	"github.com/imroc/req"

	"github.com/nowtech/go-l9945/pkg/config"
	"github.com/nowtech/go-l9945/pkg/srv"
)

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s:%d/api", cfg.IP, cfg.ApiPort),
	}
}

// Status fetches the driver state of the daemon.
func (c *ApiClient) Status() (*srv.Status, error) {
	r, err := req.Get(fmt.Sprintf("%s/status", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	status := &srv.Status{}
	if err = r.ToJSON(status); err != nil {
		return nil, err
	}
	return status, nil
}

// RegRead requests a live read of one register.
func (c *ApiClient) RegRead(addr string) (string, error) {
	r, err := req.Get(fmt.Sprintf("%s/reg/r/%s", c.ApiPrefix, addr))
	if err != nil {
		return "", err
	}
	if r.Response().StatusCode != 200 {
		return "", errors.New(r.Response().Status)
	}
	reg := &srv.RegHex{}
	if err = r.ToJSON(reg); err != nil {
		return "", err
	}
	return reg.Value, nil
}

// RegReadAll requests a live read of all registers.
func (c *ApiClient) RegReadAll() (map[string]string, error) {
	r, err := req.Get(fmt.Sprintf("%s/reg/r", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	var regs []*srv.RegHex
	if err = r.ToJSON(&regs); err != nil {
		return nil, err
	}
	result := make(map[string]string)
	for _, reg := range regs {
		result[reg.Addr] = reg.Value
	}
	return result, nil
}

// RegWrite requests a live write of one register.
func (c *ApiClient) RegWrite(addr, value string) error {
	reg := &srv.RegHex{
		Addr:  addr,
		Value: value,
	}
	r, err := req.Post(fmt.Sprintf("%s/reg/w", c.ApiPrefix), req.BodyJSON(reg))
	if err != nil {
		return err
	}
	if r.Response().StatusCode != 200 {
		return errors.New(r.Response().Status)
	}
	return nil
}

// Diag runs a diagnostic test on the daemon and returns the rendered report.
func (c *ApiClient) Diag(test string) (string, error) {
	r, err := req.Get(fmt.Sprintf("%s/diag/%s", c.ApiPrefix, test))
	if err != nil {
		return "", err
	}
	if r.Response().StatusCode != 200 {
		return "", errors.New(r.Response().Status)
	}
	info := &srv.ReportInfo{}
	if err = r.ToJSON(info); err != nil {
		return "", err
	}
	return info.Report, nil
}

// LastReport fetches the most recent stored diagnostic report.
func (c *ApiClient) LastReport() (string, error) {
	r, err := req.Get(fmt.Sprintf("%s/report", c.ApiPrefix))
	if err != nil {
		return "", err
	}
	if r.Response().StatusCode != 200 {
		return "", errors.New(r.Response().Status)
	}
	info := &srv.ReportInfo{}
	if err = r.ToJSON(info); err != nil {
		return "", err
	}
	return info.Report, nil
}

// Reset asks the daemon to run the reset sequence.
func (c *ApiClient) Reset() error {
	r, err := req.Post(fmt.Sprintf("%s/reset", c.ApiPrefix), req.BodyJSON(struct{}{}))
	if err != nil {
		return err
	}
	if r.Response().StatusCode != 200 {
		return errors.New(r.Response().Status)
	}
	return nil
}

// BridgePwm sets the PWM drive of a bridge on the daemon.
func (c *ApiClient) BridgePwm(bridge uint32, value float64) error {
	setup := &srv.PwmSetup{Value: value}
	r, err := req.Post(fmt.Sprintf("%s/pwm/bridge/%d", c.ApiPrefix, bridge), req.BodyJSON(setup))
	if err != nil {
		return err
	}
	if r.Response().StatusCode != 200 {
		return errors.New(r.Response().Status)
	}
	return nil
}

// ChannelPwm sets the PWM duty of a channel on the daemon.
func (c *ApiClient) ChannelPwm(channel uint32, value float64) error {
	setup := &srv.PwmSetup{Value: value}
	r, err := req.Post(fmt.Sprintf("%s/pwm/channel/%d", c.ApiPrefix, channel), req.BodyJSON(setup))
	if err != nil {
		return err
	}
	if r.Response().StatusCode != 200 {
		return errors.New(r.Response().Status)
	}
	return nil
}
