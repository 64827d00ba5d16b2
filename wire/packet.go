package wire

// Packet is implemented by every decoded MQTT v5 control packet.
type Packet interface {
	// Type returns the MQTT control packet type.
	Type() uint8

	// Append encodes the packet and appends it to dst, returning the
	// extended slice.
	Append(dst []byte) []byte
}

// Encode allocates a pooled buffer, encodes pkt into it, and returns a copy
// sized to the encoded length. Callers on a hot path that want to avoid the
// final copy should use Append directly against their own buffer.
func Encode(pkt Packet) []byte {
	bufPtr := GetBuffer()
	defer PutBuffer(bufPtr)
	encoded := pkt.Append((*bufPtr)[:0])
	out := make([]byte, len(encoded))
	copy(out, encoded)
	return out
}

// Decode decodes one complete packet from the front of buf, honoring
// maxPacketSize as the ceiling on the fixed header's remaining-length.
// Returns the packet, the number of bytes consumed from buf, and an error:
// ErrIncomplete if buf doesn't yet hold a whole packet, ErrMalformed or
// ErrBadProperties if it never will, ErrPacketTooLarge if the declared
// remaining-length alone already exceeds maxPacketSize.
func Decode(buf []byte, maxPacketSize int) (Packet, int, error) {
	h, headerLen, err := decodeFixedHeader(buf, maxPacketSize)
	if err != nil {
		return nil, 0, err
	}
	total := headerLen + h.RemainingLength
	if len(buf) < total {
		return nil, 0, ErrIncomplete
	}
	body := buf[headerLen:total]

	var pkt Packet
	switch h.Type {
	case CONNECT:
		pkt, err = decodeConnect(body)
	case CONNACK:
		pkt, err = decodeConnack(body)
	case PUBLISH:
		pkt, err = decodePublish(body, h.Flags)
	case PUBACK:
		pkt, err = decodePubAck(body)
	case PUBREC:
		pkt, err = decodePubRec(body)
	case PUBREL:
		pkt, err = decodePubRel(body)
	case PUBCOMP:
		pkt, err = decodePubComp(body)
	case SUBSCRIBE:
		pkt, err = decodeSubscribe(body)
	case SUBACK:
		pkt, err = decodeSubAck(body)
	case UNSUBSCRIBE:
		pkt, err = decodeUnsubscribe(body)
	case UNSUBACK:
		pkt, err = decodeUnsubAck(body)
	case PINGREQ:
		pkt, err = decodePingReq(body)
	case PINGRESP:
		pkt, err = decodePingResp(body)
	case DISCONNECT:
		pkt, err = decodeDisconnect(body)
	case AUTH:
		pkt, err = decodeAuth(body)
	default:
		return nil, 0, ErrMalformed
	}
	if err != nil {
		if err == ErrIncomplete {
			// The whole body is already in buf, so a field that runs past
			// its end can never be completed by more bytes.
			err = ErrMalformed
		}
		return nil, 0, err
	}
	return pkt, total, nil
}
