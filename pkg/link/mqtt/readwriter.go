package mqtt

import (
	"context"
	"io"
	"time"
)

// PublishTimeout bounds WritePacket.
const PublishTimeout = time.Second

// ReadWriter implements link.PacketReadWriter over a pair of topics.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh chan []byte
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{Queue: q, packetCh: make(chan []byte, 16)}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForNode uses the node side convention:
// SubTopic = <node>/<channel>/up, PubTopic = <node>/<channel>/down.
func (p *ReadWriter) ForNode(nodeID, channel string) *ReadWriter {
	prefix := nodeID + "/" + channel
	return p.WithTopics(prefix+"/up", prefix+"/down")
}

// ForPeer is the opposite of ForNode, used by the remote side.
func (p *ReadWriter) ForPeer(nodeID, channel string) *ReadWriter {
	prefix := nodeID + "/" + channel
	return p.WithTopics(prefix+"/down", prefix+"/up")
}

// ReadPacket implements link.PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	pkt, ok := <-p.packetCh
	if !ok {
		return nil, io.EOF
	}
	return pkt, nil
}

// WritePacket implements link.PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	if !token.WaitTimeout(PublishTimeout) {
		return &TimeoutError{Op: "publish"}
	}
	return token.Error()
}

// Run implements fx.Runnable. ReadPacket returns io.EOF once it stops.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, p.handleMsg)
	defer close(p.packetCh)
	defer sub.Close()
	<-ctx.Done()
	return ctx.Err()
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	default:
		// the reader is behind; a poll lost here is retried by the peer
	}
}
