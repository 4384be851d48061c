//go:build windows

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/eventlog"
	"golang.org/x/sys/windows/svc/mgr"

	"youtube-transcription-service/internal/config"
)

const (
	serviceName        = config.ServiceDirName
	serviceDisplayName = "YouTube Transcription Service"
	serviceDescription = "A service for transcribing YouTube videos"
)

// serviceStopTimeout is how long the SCM waits for the HTTP server to drain.
const serviceStopTimeout = 10 * time.Second

func isWindowsService() bool {
	ok, err := svc.IsWindowsService()
	return err == nil && ok
}

type transcriptionService struct {
	elog *eventlog.Log
}

func (s *transcriptionService) info(msg string) {
	if s.elog != nil {
		s.elog.Info(1, msg)
	}
}

func (s *transcriptionService) logError(msg string) {
	if s.elog != nil {
		s.elog.Error(1, msg)
	}
}

func (s *transcriptionService) Execute(args []string, requests <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	const accepted = svc.AcceptStop | svc.AcceptShutdown
	changes <- svc.Status{State: svc.StartPending}

	cfg, logFile, err := startup(false)
	if err != nil {
		s.logError(err.Error())
		return true, 1
	}
	defer logFile.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- runServer(ctx, cfg, serviceStopTimeout) }()

	changes <- svc.Status{State: svc.Running, Accepts: accepted}
	s.info(fmt.Sprintf("%s started on %s", serviceName, cfg.Addr()))

	for {
		select {
		case err := <-done:
			if err != nil {
				s.logError(fmt.Sprintf("%s stopped: %v", serviceName, err))
				return true, 2
			}
			return false, 0
		case c := <-requests:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				changes <- svc.Status{State: svc.StopPending}
				cancel()
				select {
				case <-done:
				case <-time.After(serviceStopTimeout + 5*time.Second):
					s.logError("server did not stop in time")
				}
				s.info(serviceName + " stopped")
				return false, 0
			default:
				s.logError(fmt.Sprintf("unexpected control request #%d", c.Cmd))
			}
		}
	}
}

func runAsService() {
	elog, err := eventlog.Open(serviceName)
	if err == nil {
		defer elog.Close()
	}
	if err := svc.Run(serviceName, &transcriptionService{elog: elog}); err != nil && elog != nil {
		elog.Error(1, fmt.Sprintf("%s failed: %v", serviceName, err))
	}
}

func installService() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	m, err := mgr.Connect()
	if err != nil {
		return err
	}
	defer m.Disconnect()

	if s, err := m.OpenService(serviceName); err == nil {
		s.Close()
		return fmt.Errorf("service %s already exists", serviceName)
	}

	s, err := m.CreateService(serviceName, exe, mgr.Config{
		DisplayName: serviceDisplayName,
		Description: serviceDescription,
		StartType:   mgr.StartAutomatic,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := eventlog.InstallAsEventCreate(serviceName, eventlog.Error|eventlog.Warning|eventlog.Info); err != nil {
		s.Delete()
		return fmt.Errorf("SetupEventLogSource() failed: %w", err)
	}
	return nil
}

func removeService() error {
	m, err := mgr.Connect()
	if err != nil {
		return err
	}
	defer m.Disconnect()

	s, err := m.OpenService(serviceName)
	if err != nil {
		return fmt.Errorf("service %s is not installed", serviceName)
	}
	defer s.Close()

	if err := s.Delete(); err != nil {
		return err
	}
	if err := eventlog.Remove(serviceName); err != nil {
		return fmt.Errorf("RemoveEventLogSource() failed: %w", err)
	}
	return nil
}

func startService() error {
	m, err := mgr.Connect()
	if err != nil {
		return err
	}
	defer m.Disconnect()

	s, err := m.OpenService(serviceName)
	if err != nil {
		return fmt.Errorf("could not access service: %w", err)
	}
	defer s.Close()

	if err := s.Start(); err != nil {
		return fmt.Errorf("could not start service: %w", err)
	}
	return nil
}

func stopService() error {
	m, err := mgr.Connect()
	if err != nil {
		return err
	}
	defer m.Disconnect()

	s, err := m.OpenService(serviceName)
	if err != nil {
		return fmt.Errorf("could not access service: %w", err)
	}
	defer s.Close()

	status, err := s.Control(svc.Stop)
	if err != nil {
		return fmt.Errorf("could not send stop control: %w", err)
	}

	deadline := time.Now().Add(serviceStopTimeout + 5*time.Second)
	for status.State != svc.Stopped {
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for service to stop")
		}
		time.Sleep(300 * time.Millisecond)
		if status, err = s.Query(); err != nil {
			return fmt.Errorf("could not retrieve service status: %w", err)
		}
	}
	return nil
}
