package engine

import (
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/roach88/lineage/internal/ir"
)

// processSession describes the current process. ID and StartTime are filled
// in by New.
func processSession() ir.Session {
	s := ir.Session{
		PID:         os.Getpid(),
		CommandLine: strings.Join(os.Args, " "),
		MACAddress:  macAddress(),
	}
	if len(os.Args) > 0 {
		s.Program = filepath.Base(os.Args[0])
	}
	if u, err := user.Current(); err == nil {
		s.User = u.Username
	}
	return s
}

// macAddress returns the hardware address of the first non-loopback
// interface that has one, or "" when none is found.
func macAddress() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		return iface.HardwareAddr.String()
	}
	return ""
}
