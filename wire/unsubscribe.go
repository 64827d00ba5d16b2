package wire

import "encoding/binary"

// UnsubscribePacket is the MQTT v5 UNSUBSCRIBE control packet.
type UnsubscribePacket struct {
	PacketID   uint16
	Filters    []string
	Properties *Properties
}

func (p *UnsubscribePacket) Type() uint8 { return UNSUBSCRIBE }

func (p *UnsubscribePacket) Append(dst []byte) []byte {
	var body []byte
	body = binary.BigEndian.AppendUint16(body, p.PacketID)
	body = appendProperties(body, p.Properties)
	for _, f := range p.Filters {
		body = appendString(body, f)
	}
	dst = appendFixedHeader(dst, UNSUBSCRIBE, 0x02, len(body))
	return append(dst, body...)
}

func decodeUnsubscribe(buf []byte) (*UnsubscribePacket, error) {
	id, n, err := decodeUint16(buf)
	if err != nil {
		return nil, err
	}
	off := n
	props, n, err := decodeProperties(buf[off:], UNSUBSCRIBE)
	if err != nil {
		return nil, err
	}
	off += n
	pkt := &UnsubscribePacket{PacketID: id, Properties: props}
	if off >= len(buf) {
		return nil, ErrMalformed
	}
	for off < len(buf) {
		f, n, err := decodeString(buf[off:])
		if err != nil {
			return nil, err
		}
		pkt.Filters = append(pkt.Filters, f)
		off += n
	}
	return pkt, nil
}

// UnsubAckPacket is the MQTT v5 UNSUBACK control packet.
type UnsubAckPacket struct {
	PacketID    uint16
	ReasonCodes []ReasonCode
	Properties  *Properties
}

func (p *UnsubAckPacket) Type() uint8 { return UNSUBACK }

func (p *UnsubAckPacket) Append(dst []byte) []byte {
	var body []byte
	body = binary.BigEndian.AppendUint16(body, p.PacketID)
	body = appendProperties(body, p.Properties)
	for _, rc := range p.ReasonCodes {
		body = append(body, byte(rc))
	}
	dst = appendFixedHeader(dst, UNSUBACK, 0, len(body))
	return append(dst, body...)
}

func decodeUnsubAck(buf []byte) (*UnsubAckPacket, error) {
	id, n, err := decodeUint16(buf)
	if err != nil {
		return nil, err
	}
	off := n
	props, n, err := decodeProperties(buf[off:], UNSUBACK)
	if err != nil {
		return nil, err
	}
	off += n
	pkt := &UnsubAckPacket{PacketID: id, Properties: props}
	for _, b := range buf[off:] {
		pkt.ReasonCodes = append(pkt.ReasonCodes, ReasonCode(b))
	}
	return pkt, nil
}
