package wire

import "encoding/binary"

// PublishPacket is the MQTT v5 PUBLISH control packet, carrying an
// application message in either direction.
type PublishPacket struct {
	Dup      bool
	QoS      uint8
	Retain   bool
	Topic    string
	PacketID uint16 // present only when QoS > 0

	Payload    []byte
	Properties *Properties
}

func (p *PublishPacket) Type() uint8 { return PUBLISH }

func (p *PublishPacket) Append(dst []byte) []byte {
	var flags uint8
	if p.Dup {
		flags |= 0x08
	}
	flags |= (p.QoS & 0x03) << 1
	if p.Retain {
		flags |= 0x01
	}

	var body []byte
	body = appendString(body, p.Topic)
	if p.QoS > 0 {
		body = binary.BigEndian.AppendUint16(body, p.PacketID)
	}
	body = appendProperties(body, p.Properties)
	body = append(body, p.Payload...)

	dst = appendFixedHeader(dst, PUBLISH, flags, len(body))
	return append(dst, body...)
}

func decodePublish(buf []byte, flags uint8) (*PublishPacket, error) {
	pkt := &PublishPacket{
		Dup:    flags&0x08 != 0,
		QoS:    (flags >> 1) & 0x03,
		Retain: flags&0x01 != 0,
	}
	if pkt.QoS > 2 {
		return nil, ErrMalformed
	}

	topic, n, err := decodeString(buf)
	if err != nil {
		return nil, err
	}
	pkt.Topic = topic
	off := n

	if pkt.QoS > 0 {
		id, n, err := decodeUint16(buf[off:])
		if err != nil {
			return nil, err
		}
		if id == 0 {
			return nil, ErrMalformed
		}
		pkt.PacketID = id
		off += n
	}

	props, n, err := decodeProperties(buf[off:], PUBLISH)
	if err != nil {
		return nil, err
	}
	pkt.Properties = props
	off += n

	// An empty Topic Name is only valid when a Topic Alias property
	// substitutes for it (section 3.3.2.1); otherwise the topic is
	// mandatory.
	if topic == "" && (props == nil || props.Presence&PresTopicAlias == 0) {
		return nil, ErrMalformed
	}

	pkt.Payload = append([]byte(nil), buf[off:]...)
	return pkt, nil
}
