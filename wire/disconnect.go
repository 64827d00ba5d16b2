package wire

// DisconnectPacket is the MQTT v5 DISCONNECT control packet, sent by either
// side to close the connection cleanly or report a protocol-level error.
type DisconnectPacket struct {
	ReasonCode ReasonCode
	Properties *Properties
}

func (p *DisconnectPacket) Type() uint8 { return DISCONNECT }

func (p *DisconnectPacket) Append(dst []byte) []byte {
	if p.ReasonCode == Success && p.Properties == nil {
		return appendFixedHeader(dst, DISCONNECT, 0, 0)
	}
	var body []byte
	body = append(body, byte(p.ReasonCode))
	body = appendProperties(body, p.Properties)
	dst = appendFixedHeader(dst, DISCONNECT, 0, len(body))
	return append(dst, body...)
}

func decodeDisconnect(buf []byte) (*DisconnectPacket, error) {
	if len(buf) == 0 {
		return &DisconnectPacket{ReasonCode: Success}, nil
	}
	pkt := &DisconnectPacket{ReasonCode: ReasonCode(buf[0])}
	if len(buf) > 1 {
		props, _, err := decodeProperties(buf[1:], DISCONNECT)
		if err != nil {
			return nil, err
		}
		pkt.Properties = props
	}
	return pkt, nil
}
