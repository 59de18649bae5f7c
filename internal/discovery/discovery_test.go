package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
		wantMeta map[string]string
	}{
		{
			name: "IPv4 instance with metadata",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "lutbox on suite3"},
				HostName:      "suite3.local.",
				Port:          8089,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{"backend=websocket", "prefix=vglb-lut", "flag"},
			},
			wantIP:   "192.168.4.16",
			wantPort: 8089,
			wantMeta: map[string]string{"backend": "websocket", "prefix": "vglb-lut", "flag": ""},
		},
		{
			name: "IPv6 fallback",
			entry: &zeroconf.ServiceEntry{
				HostName: "host.local.",
				Port:     8089,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
			},
			wantIP:   "fe80::1",
			wantPort: 8089,
			wantMeta: map[string]string{},
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				HostName: "host.local.",
				Port:     8089,
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseServiceEntry(tt.entry)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected an instance")
			}
			if got.IP != tt.wantIP {
				t.Errorf("IP = %s, want %s", got.IP, tt.wantIP)
			}
			if got.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", got.Port, tt.wantPort)
			}
			if got.Addr() != net.JoinHostPort(tt.wantIP, "8089") &&
				got.Addr() != tt.wantIP+":8089" {
				t.Errorf("Addr() = %s", got.Addr())
			}
			if len(got.Metadata) != len(tt.wantMeta) {
				t.Fatalf("Metadata = %v, want %v", got.Metadata, tt.wantMeta)
			}
			for key, want := range tt.wantMeta {
				if got.Metadata[key] != want {
					t.Errorf("Metadata[%s] = %q, want %q", key, got.Metadata[key], want)
				}
			}
		})
	}
}
