package wire

import "encoding/binary"

// AckPacket is the shared wire shape of PUBACK, PUBREC, PUBREL, and PUBCOMP:
// a packet identifier plus an optional reason code and properties, which
// MQTT v5 permits to be omitted entirely when the reason code is Success
// and there are no properties (sections 3.4.2, 3.5.2, 3.6.2, 3.7.2).
type AckPacket struct {
	PacketType uint8
	PacketID   uint16
	ReasonCode ReasonCode
	Properties *Properties
}

func (p *AckPacket) Type() uint8 { return p.PacketType }

// fixedFlags returns the fixed-header flags MQTT v5 mandates for this
// packet type; only PUBREL reserves a nonzero bit (3.6.1).
func (p *AckPacket) fixedFlags() uint8 {
	if p.PacketType == PUBREL {
		return 0x02
	}
	return 0
}

func (p *AckPacket) Append(dst []byte) []byte {
	var body []byte
	body = binary.BigEndian.AppendUint16(body, p.PacketID)
	if p.ReasonCode != Success || p.Properties != nil {
		body = append(body, byte(p.ReasonCode))
		body = appendProperties(body, p.Properties)
	}
	dst = appendFixedHeader(dst, p.PacketType, p.fixedFlags(), len(body))
	return append(dst, body...)
}

func decodeAck(buf []byte, packetType uint8) (*AckPacket, error) {
	id, n, err := decodeUint16(buf)
	if err != nil {
		return nil, err
	}
	pkt := &AckPacket{PacketType: packetType, PacketID: id, ReasonCode: Success}
	if len(buf) == n {
		return pkt, nil
	}
	if len(buf) < n+1 {
		return nil, ErrIncomplete
	}
	pkt.ReasonCode = ReasonCode(buf[n])
	off := n + 1
	if len(buf) > off {
		props, _, err := decodeProperties(buf[off:], packetType)
		if err != nil {
			return nil, err
		}
		pkt.Properties = props
	}
	return pkt, nil
}

func decodePubAck(buf []byte) (*AckPacket, error)  { return decodeAck(buf, PUBACK) }
func decodePubRec(buf []byte) (*AckPacket, error)  { return decodeAck(buf, PUBREC) }
func decodePubRel(buf []byte) (*AckPacket, error)  { return decodeAck(buf, PUBREL) }
func decodePubComp(buf []byte) (*AckPacket, error) { return decodeAck(buf, PUBCOMP) }
