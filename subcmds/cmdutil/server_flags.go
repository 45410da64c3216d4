// Copyright (c) 2025 BVK Chaitanya

// Package cmdutil holds flag groups shared by multiple subcommands.
package cmdutil

import (
	"flag"
	"fmt"
	"net"
)

type ServerFlags struct {
	Port int
	IP   string
}

func (sf *ServerFlags) SetFlags(fset *flag.FlagSet) {
	fset.IntVar(&sf.Port, "listen-port", 10000, "TCP port number for the api endpoint")
	fset.StringVar(&sf.IP, "listen-ip", "127.0.0.1", "TCP ip address for the api endpoint")
}

// Addr validates the flag values and returns the TCP endpoint address.
func (sf *ServerFlags) Addr() (*net.TCPAddr, error) {
	ip := net.ParseIP(sf.IP)
	if ip == nil {
		return nil, fmt.Errorf("invalid ip address %q", sf.IP)
	}
	if sf.Port <= 0 || sf.Port > 65535 {
		return nil, fmt.Errorf("invalid port number %d", sf.Port)
	}
	return &net.TCPAddr{IP: ip, Port: sf.Port}, nil
}
