//go:build !pcap
// +build !pcap

package ingest

import (
	"context"
	"fmt"

	"github.com/banshee-data/tfgraph/tf"
)

// PcapSource is a stub when PCAP support is disabled. Rebuild with
// -tags=pcap to enable live UDP pose sniffing.
type PcapSource struct{}

func NewPcapSource(iface string, udpPort int, buffer *tf.BufferCore, authority string) (*PcapSource, error) {
	return nil, fmt.Errorf("PCAP support not enabled: rebuild with -tags=pcap")
}

func (p *PcapSource) Monitor(ctx context.Context) error {
	return fmt.Errorf("PCAP support not enabled: rebuild with -tags=pcap")
}
