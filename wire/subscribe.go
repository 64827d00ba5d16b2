package wire

import "encoding/binary"

// Retain handling options for a subscription (section 3.8.3.1).
const (
	SendRetainedAlways            uint8 = 0
	SendRetainedIfNewSubscription uint8 = 1
	DoNotSendRetained             uint8 = 2
)

// Subscription is one topic-filter entry of a SUBSCRIBE packet.
type Subscription struct {
	Filter            string
	QoS               uint8
	NoLocal           bool
	RetainAsPublished bool
	RetainHandling    uint8
}

func (s Subscription) optionsByte() byte {
	b := s.QoS & 0x03
	if s.NoLocal {
		b |= 0x04
	}
	if s.RetainAsPublished {
		b |= 0x08
	}
	b |= (s.RetainHandling & 0x03) << 4
	return b
}

// SubscribePacket is the MQTT v5 SUBSCRIBE control packet. The codec
// supports an arbitrary number of filters per packet, matching the wire
// protocol; callers that only ever issue one filter per SUBSCRIBE (as this
// client's Subscribe does) simply pass a one-element slice.
type SubscribePacket struct {
	PacketID      uint16
	Subscriptions []Subscription
	Properties    *Properties
}

func (p *SubscribePacket) Type() uint8 { return SUBSCRIBE }

func (p *SubscribePacket) Append(dst []byte) []byte {
	var body []byte
	body = binary.BigEndian.AppendUint16(body, p.PacketID)
	body = appendProperties(body, p.Properties)
	for _, s := range p.Subscriptions {
		body = appendString(body, s.Filter)
		body = append(body, s.optionsByte())
	}
	dst = appendFixedHeader(dst, SUBSCRIBE, 0x02, len(body))
	return append(dst, body...)
}

func decodeSubscribe(buf []byte) (*SubscribePacket, error) {
	id, n, err := decodeUint16(buf)
	if err != nil {
		return nil, err
	}
	off := n

	props, n, err := decodeProperties(buf[off:], SUBSCRIBE)
	if err != nil {
		return nil, err
	}
	off += n

	pkt := &SubscribePacket{PacketID: id, Properties: props}
	if off >= len(buf) {
		return nil, ErrMalformed
	}
	for off < len(buf) {
		filter, n, err := decodeString(buf[off:])
		if err != nil {
			return nil, err
		}
		off += n
		if off >= len(buf) {
			return nil, ErrIncomplete
		}
		opts := buf[off]
		off++
		pkt.Subscriptions = append(pkt.Subscriptions, Subscription{
			Filter:            filter,
			QoS:               opts & 0x03,
			NoLocal:           opts&0x04 != 0,
			RetainAsPublished: opts&0x08 != 0,
			RetainHandling:    (opts >> 4) & 0x03,
		})
	}
	return pkt, nil
}

// SubAckPacket is the MQTT v5 SUBACK control packet: one reason code per
// requested filter, in request order.
type SubAckPacket struct {
	PacketID    uint16
	ReasonCodes []ReasonCode
	Properties  *Properties
}

func (p *SubAckPacket) Type() uint8 { return SUBACK }

func (p *SubAckPacket) Append(dst []byte) []byte {
	var body []byte
	body = binary.BigEndian.AppendUint16(body, p.PacketID)
	body = appendProperties(body, p.Properties)
	for _, rc := range p.ReasonCodes {
		body = append(body, byte(rc))
	}
	dst = appendFixedHeader(dst, SUBACK, 0, len(body))
	return append(dst, body...)
}

func decodeSubAck(buf []byte) (*SubAckPacket, error) {
	id, n, err := decodeUint16(buf)
	if err != nil {
		return nil, err
	}
	off := n
	props, n, err := decodeProperties(buf[off:], SUBACK)
	if err != nil {
		return nil, err
	}
	off += n
	pkt := &SubAckPacket{PacketID: id, Properties: props}
	for _, b := range buf[off:] {
		pkt.ReasonCodes = append(pkt.ReasonCodes, ReasonCode(b))
	}
	return pkt, nil
}
