package utils

import (
	"log/slog"
	"net"
)

// GetLocalIP returns the address this machine uses for outbound traffic,
// or 127.0.0.1 when it cannot be determined. No packets are sent.
func GetLocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		slog.Error("Error getting local IP", "error", err)
		return "127.0.0.1"
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil {
		return "127.0.0.1"
	}
	return addr.IP.String()
}
