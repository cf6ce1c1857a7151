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

// Package srv exposes one driven chip over a small RESTful API and
// persists observed state between runs.
package srv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/nowtech/go-l9945/pkg/config"
	"github.com/nowtech/go-l9945/pkg/device"
	"github.com/nowtech/go-l9945/pkg/log"
)

// RegHex carries one register address/value pair as hexadecimal strings.
type RegHex struct {
	Addr  string `json:"addr"`
	Value string `json:"value"`
}

func newRegHex(reg device.Register, value uint32) *RegHex {
	return &RegHex{
		Addr:  fmt.Sprintf("%#x", uint32(reg)),
		Value: fmt.Sprintf("%#010x", value),
	}
}

// Status describes the driver state for the status endpoint.
type Status struct {
	State     string `json:"state"`
	Transport string `json:"transport"`
}

// PwmSetup carries one PWM request body.
type PwmSetup struct {
	Value float64 `json:"value"`
}

// ReportInfo wraps a stored diagnostic report.
type ReportInfo struct {
	Seq    uint64 `json:"seq"`
	Report string `json:"report"`
}

// ApiServer serializes all access to the single device behind a mutex:
// the two-phase exchange protocol must never interleave.
type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router

	mu    sync.Mutex
	dev   *device.Device
	state *State
}

func NewApiServer(ctx context.Context, cfg *config.Config, dev *device.Device, state *State) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s port: %d", cfg.IP, cfg.ApiPort)
	s := &ApiServer{
		Context: ctx,
		Config:  cfg,
		dev:     dev,
		state:   state,
	}
	return s, nil
}

func (s *ApiServer) Run() error {
	log.Info("Starting API server: address: %s port: %d", s.Config.IP, s.Config.ApiPort)
	s.configureRouter()
	httpServer := &http.Server{
		Handler: handlers.LoggingHandler(os.Stdout, s.Router),
		Addr:    fmt.Sprintf("%s:%d", s.Config.IP, s.Config.ApiPort),
	}
	return httpServer.ListenAndServe()
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/status", s.handleStatus()).Methods("GET")
	subRouter.HandleFunc("/reg/r/{addr}", s.handleRegRead()).Methods("GET")
	subRouter.HandleFunc("/reg/r", s.handleRegReadAll()).Methods("GET")
	subRouter.HandleFunc("/reg/w", s.handleRegWrite()).Methods("POST")
	subRouter.HandleFunc("/diag/{test}", s.handleDiag()).Methods("GET")
	subRouter.HandleFunc("/report", s.handleLastReport()).Methods("GET")
	subRouter.HandleFunc("/report/{seq:[0-9]+}", s.handleReport()).Methods("GET")
	subRouter.HandleFunc("/reset", s.handleReset()).Methods("POST")
	subRouter.HandleFunc("/pwm/bridge/{bridge:[0-9]+}", s.handleBridgePwm()).Methods("POST")
	subRouter.HandleFunc("/pwm/channel/{channel:[0-9]+}", s.handleChannelPwm()).Methods("POST")
}

func (s *ApiServer) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		state := s.dev.State()
		s.mu.Unlock()
		json.NewEncoder(w).Encode(&Status{
			State:     state.String(),
			Transport: s.Config.Transport,
		})
	}
}

func (s *ApiServer) handleRegRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling reg read request: addr: %s", vars["addr"])
		addr, err := strconv.ParseUint(vars["addr"], 0, 32)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reg := device.Register(addr)
		if err := reg.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		value, err := s.dev.ReadRegister(reg)
		s.mu.Unlock()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		if err := s.state.SetReg(reg, value); err != nil {
			log.Error("Failed to persist register %d: %v", reg, err)
		}
		json.NewEncoder(w).Encode(newRegHex(reg, value))
	}
}

func (s *ApiServer) handleRegReadAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling reg read all request")
		s.mu.Lock()
		err := s.dev.ReadAll()
		var values [device.RegisterCount]uint32
		for reg := device.Register(0); reg < device.RegisterCount; reg++ {
			values[reg], _ = s.dev.Cached(reg)
		}
		s.mu.Unlock()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		if err := s.state.SetRegAll(values); err != nil {
			log.Error("Failed to persist register image: %v", err)
		}
		regsHex := []*RegHex{}
		for reg, value := range values {
			regsHex = append(regsHex, newRegHex(device.Register(reg), value))
		}
		json.NewEncoder(w).Encode(regsHex)
	}
}

func (s *ApiServer) handleRegWrite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regHex := &RegHex{}
		if err := json.NewDecoder(r.Body).Decode(regHex); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug("Handling reg write request: addr: %s value: %s", regHex.Addr, regHex.Value)
		addr, err := strconv.ParseUint(regHex.Addr, 0, 32)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		value, err := strconv.ParseUint(regHex.Value, 0, 32)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reg := device.Register(addr)
		if err := reg.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		err = s.dev.WriteRegister(reg, uint32(value))
		s.mu.Unlock()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
	}
}

func (s *ApiServer) handleDiag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling diag request: test: %s", vars["test"])
		test, err := device.ParseTest(vars["test"])
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		result, err := s.dev.Diagnose(test)
		s.mu.Unlock()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		var buf bytes.Buffer
		if err := device.WriteReport(&buf, result); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := s.state.SetRegAll(result.Regs); err != nil {
			log.Error("Failed to persist register image: %v", err)
		}
		seq, err := s.state.PutReport(buf.String())
		if err != nil {
			log.Error("Failed to persist report: %v", err)
		}
		json.NewEncoder(w).Encode(&ReportInfo{Seq: seq, Report: buf.String()})
	}
}

func (s *ApiServer) handleLastReport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seq, text, err := s.state.LastReport()
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(&ReportInfo{Seq: seq, Report: text})
	}
}

func (s *ApiServer) handleReport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		seq, err := strconv.ParseUint(vars["seq"], 10, 64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		text, err := s.state.GetReport(seq)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(&ReportInfo{Seq: seq, Report: text})
	}
}

func (s *ApiServer) handleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling reset request")
		s.mu.Lock()
		err := s.dev.Reset()
		s.mu.Unlock()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
	}
}

func (s *ApiServer) handleBridgePwm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		setup := &PwmSetup{}
		if err := json.NewDecoder(r.Body).Decode(setup); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		bridge, err := strconv.ParseUint(vars["bridge"], 10, 32)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		err = s.dev.SetBridgePwm(setup.Value, device.Bridge(bridge))
		s.mu.Unlock()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
	}
}

func (s *ApiServer) handleChannelPwm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		setup := &PwmSetup{}
		if err := json.NewDecoder(r.Body).Decode(setup); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		channel, err := strconv.ParseUint(vars["channel"], 10, 32)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		err = s.dev.SetChannelPwm(setup.Value, device.Channel(channel))
		s.mu.Unlock()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
	}
}
