// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// dcmdump prints the Part stream or the materialized data set of a DICOM
// Part 10 file. It reads the file in small chunks, so arbitrarily large
// files are dumped with bounded memory.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sanyexieai/dcmfx-sub000/dicom"
)

const chunkSize = 64 * 1024

var (
	showParts = flag.Bool("parts", false, "print the raw Part stream instead of the data set")
	maxDepth  = flag.Int("max-depth", 10000, "maximum sequence nesting depth")
)

func newConsoleLogger(writers ...zapcore.WriteSyncer) *zap.SugaredLogger {
	var writer zapcore.WriteSyncer
	if len(writers) == 1 {
		writer = writers[0]
	} else {
		writer = zapcore.NewMultiWriteSyncer(writers...)
	}
	encoderCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		EncodeLevel:    zapcore.LowercaseColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), writer, zapcore.DebugLevel)
	return zap.New(core).Sugar()
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] file\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	log := newConsoleLogger(zapcore.Lock(os.Stderr))
	defer log.Sync()

	path := flag.Arg(0)
	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	defer file.Close()

	if *showParts {
		err = dumpParts(file, log)
	} else {
		err = dumpDataSet(file)
	}
	if err != nil {
		log.Fatalf(`error reading "%s": %v`, filepath.Base(path), err)
	}
}

// dumpParts drives the part reader directly, printing each Part as it is
// emitted.
func dumpParts(file *os.File, log *zap.SugaredLogger) error {
	reader := dicom.NewPartReader(dicom.WithMaxSequenceDepth(*maxDepth))
	buf := make([]byte, chunkSize)
	count := 0

	for {
		parts, err := reader.ReadParts()
		switch err {
		case nil:
			for _, part := range parts {
				fmt.Println(part)
				count++
			}
		case dicom.ErrDataRequired:
			n, readErr := file.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				if err := reader.Write(chunk, false); err != nil {
					return err
				}
			}
			if readErr == io.EOF {
				if err := reader.Write(nil, true); err != nil {
					return err
				}
			} else if readErr != nil {
				return readErr
			}
		case io.EOF:
			log.Debugf("emitted %d parts", count)
			return nil
		default:
			return err
		}
	}
}

func dumpDataSet(file *os.File) error {
	dataSet, err := dicom.ReadDataSet(file, dicom.WithMaxSequenceDepth(*maxDepth))
	if err != nil {
		return err
	}
	fmt.Print(dataSet)
	return nil
}
