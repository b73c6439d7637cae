//go:build pcap
// +build pcap

package ingest

import (
	"context"
	"fmt"
	"log"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/banshee-data/tfgraph/tf"
)

// PcapSource sniffs UDP pose broadcasts off a live network interface and
// applies each payload line to a Buffer, the same way SerialSource does for
// a serial port. Build with -tags=pcap to enable it; without the tag,
// NewPcapSource returns an error (see pcap_stub.go).
type PcapSource struct {
	handle    *pcap.Handle
	buffer    *tf.BufferCore
	authority string
}

// NewPcapSource opens iface in promiscuous mode and installs a BPF filter
// for UDP traffic on udpPort.
func NewPcapSource(iface string, udpPort int, buffer *tf.BufferCore, authority string) (*PcapSource, error) {
	handle, err := pcap.OpenLive(iface, 65536, true, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("failed to open interface %s: %w", iface, err)
	}
	filterStr := fmt.Sprintf("udp port %d", udpPort)
	if err := handle.SetBPFFilter(filterStr); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to set BPF filter %q: %w", filterStr, err)
	}
	return &PcapSource{handle: handle, buffer: buffer, authority: authority}, nil
}

// Monitor reads packets until ctx is cancelled, parsing each UDP payload as
// a pose telemetry line.
func (p *PcapSource) Monitor(ctx context.Context) error {
	defer p.handle.Close()
	packetSource := gopacket.NewPacketSource(p.handle, p.handle.LinkType())
	packets := packetSource.Packets()

	for {
		select {
		case <-ctx.Done():
			return nil
		case packet, ok := <-packets:
			if !ok || packet == nil {
				return nil
			}
			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue
			}
			udp, ok := udpLayer.(*layers.UDP)
			if !ok {
				continue
			}
			line := string(udp.Payload)
			sample, err := parsePoseLine(line)
			if err != nil {
				log.Printf("ingest: skipping malformed pose packet: %v", err)
				continue
			}
			p.buffer.SetTransform(sample.childFrame, sample.parentFrame, sample.stamp, sample.transform, p.authority)
		}
	}
}
