package wire

// ConnAckPacket is the MQTT v5 CONNACK control packet.
type ConnAckPacket struct {
	SessionPresent bool
	ReasonCode     ReasonCode
	Properties     *Properties
}

func (p *ConnAckPacket) Type() uint8 { return CONNACK }

func (p *ConnAckPacket) Append(dst []byte) []byte {
	var flags uint8
	if p.SessionPresent {
		flags = 0x01
	}
	var body []byte
	body = append(body, flags, byte(p.ReasonCode))
	body = appendProperties(body, p.Properties)

	dst = appendFixedHeader(dst, CONNACK, 0, len(body))
	return append(dst, body...)
}

func decodeConnack(buf []byte) (*ConnAckPacket, error) {
	if len(buf) < 2 {
		return nil, ErrIncomplete
	}
	pkt := &ConnAckPacket{
		SessionPresent: buf[0]&0x01 != 0,
		ReasonCode:     ReasonCode(buf[1]),
	}
	props, _, err := decodeProperties(buf[2:], CONNACK)
	if err != nil {
		return nil, err
	}
	pkt.Properties = props
	return pkt, nil
}
