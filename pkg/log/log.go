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

// Package log is the leveled logger of the tool. Register access
// tracing sits on the debug level, latched faults on the error level,
// so a bench session at the default level stays readable while a bus
// problem is investigated with --log-level debug.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

type LogLevel int

const (
	ErrorLevel LogLevel = iota
	WarningLevel
	InfoLevel
	DebugLevel
)

const (
	LogPrefix  = "[go-l9945] "
	HelpLevels = "Must be one of: error, warning, info, debug."
)

var levelNames = [...]string{"error", "warning", "info", "debug"}

func (l LogLevel) String() string {
	if l < ErrorLevel || l > DebugLevel {
		return "unknown"
	}
	return levelNames[l]
}

// ParseLevel resolves a level name from config or the command line.
func ParseLevel(name string) (LogLevel, error) {
	for l, n := range levelNames {
		if n == name {
			return LogLevel(l), nil
		}
	}
	return ErrorLevel, fmt.Errorf("wrong log level %q. %s", name, HelpLevels)
}

type Logger struct {
	level LogLevel
	*log.Logger
}

var logger = &Logger{
	level:  InfoLevel,
	Logger: log.New(os.Stderr, LogPrefix, log.LstdFlags),
}

func SetLevel(strLevel string) error {
	level, err := ParseLevel(strLevel)
	if err != nil {
		return err
	}
	logger.level = level
	return nil
}

func Init(out io.Writer, strLevel string) {
	logger.SetOutput(out)
	if err := SetLevel(strLevel); err != nil {
		panic(err)
	}
}

func emit(level LogLevel, format string, v ...interface{}) {
	if logger.level < level {
		return
	}
	logger.Printf("[%s] %s\n", level, fmt.Sprintf(format, v...))
}

func Error(format string, v ...interface{}) {
	emit(ErrorLevel, format, v...)
}

func Warning(format string, v ...interface{}) {
	emit(WarningLevel, format, v...)
}

func Info(format string, v ...interface{}) {
	emit(InfoLevel, format, v...)
}

func Debug(format string, v ...interface{}) {
	emit(DebugLevel, format, v...)
}
