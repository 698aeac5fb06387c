package network

import (
	"bytes"
	"io"
	"testing"
)

func TestPacket_EncodeDecode(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 70000)
	raw := EncodePacket(MsgTypeProjection, payload)

	packet, err := DecodePacket(raw)
	if err != nil {
		t.Fatalf("DecodePacket failed: %v", err)
	}
	if packet.MsgID != MsgTypeProjection {
		t.Errorf("Expected msg ID %d, got %d", MsgTypeProjection, packet.MsgID)
	}
	if packet.Length != uint32(len(payload)) || !bytes.Equal(packet.Data, payload) {
		t.Errorf("Expected %d bytes of payload, got %d", len(payload), packet.Length)
	}
}

func TestPacket_DecodeShort(t *testing.T) {
	if _, err := DecodePacket([]byte{0, 1, 0}); err != io.ErrShortBuffer {
		t.Errorf("Expected io.ErrShortBuffer for a short header, got %v", err)
	}

	raw := EncodePacket(MsgTypeHeartbeat, []byte("hello"))
	if _, err := DecodePacket(raw[:len(raw)-1]); err != io.ErrShortBuffer {
		t.Errorf("Expected io.ErrShortBuffer for a truncated body, got %v", err)
	}
}
