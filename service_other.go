//go:build !windows

package main

import (
	"errors"

	"youtube-transcription-service/internal/config"
)

const serviceName = config.ServiceDirName

var errServiceUnsupported = errors.New("service management is only supported on Windows; run the serve command under your init system instead")

func isWindowsService() bool { return false }

func runAsService() {}

func installService() error { return errServiceUnsupported }
func removeService() error  { return errServiceUnsupported }
func startService() error   { return errServiceUnsupported }
func stopService() error    { return errServiceUnsupported }
