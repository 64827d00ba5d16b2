package wire

import "encoding/binary"

// protocolName and protocolLevel are fixed for MQTT v5.0 (section 3.1.2.1).
const (
	protocolName  = "MQTT"
	protocolLevel = 5
)

// Will carries the Will message a broker publishes on the client's behalf
// when the session ends abnormally (section 3.1.3.2/3.1.3.3).
type Will struct {
	Topic      string
	Payload    []byte
	QoS        uint8
	Retain     bool
	Properties *Properties
}

// ConnectPacket is the MQTT v5 CONNECT control packet.
type ConnectPacket struct {
	CleanStart bool
	KeepAlive  uint16
	ClientID   string

	Will *Will

	Username     string
	HasUsername  bool
	Password     string
	HasPassword  bool

	Properties *Properties
}

func (p *ConnectPacket) Type() uint8 { return CONNECT }

func (p *ConnectPacket) Append(dst []byte) []byte {
	var flags uint8
	if p.CleanStart {
		flags |= 0x02
	}
	if p.Will != nil {
		flags |= 0x04
		flags |= (p.Will.QoS & 0x03) << 3
		if p.Will.Retain {
			flags |= 0x20
		}
	}
	if p.HasPassword {
		flags |= 0x40
	}
	if p.HasUsername {
		flags |= 0x80
	}

	var body []byte
	body = appendString(body, protocolName)
	body = append(body, protocolLevel, flags)
	body = binary.BigEndian.AppendUint16(body, p.KeepAlive)
	body = appendProperties(body, p.Properties)
	body = appendString(body, p.ClientID)

	if p.Will != nil {
		body = appendProperties(body, p.Will.Properties)
		body = appendString(body, p.Will.Topic)
		body = appendBinary(body, p.Will.Payload)
	}
	if p.HasUsername {
		body = appendString(body, p.Username)
	}
	if p.HasPassword {
		body = appendString(body, p.Password)
	}

	dst = appendFixedHeader(dst, CONNECT, 0, len(body))
	return append(dst, body...)
}

func decodeConnect(buf []byte) (*ConnectPacket, error) {
	name, n, err := decodeString(buf)
	if err != nil {
		return nil, err
	}
	if name != protocolName {
		return nil, ErrMalformed
	}
	off := n

	if len(buf) < off+2 {
		return nil, ErrIncomplete
	}
	level := buf[off]
	if level != protocolLevel {
		return nil, ErrMalformed
	}
	off++
	flags := buf[off]
	off++

	keepAlive, n, err := decodeUint16(buf[off:])
	if err != nil {
		return nil, err
	}
	off += n

	props, n, err := decodeProperties(buf[off:], CONNECT)
	if err != nil {
		return nil, err
	}
	off += n

	pkt := &ConnectPacket{
		CleanStart: flags&0x02 != 0,
		KeepAlive:  keepAlive,
		Properties: props,
	}

	clientID, n, err := decodeString(buf[off:])
	if err != nil {
		return nil, err
	}
	pkt.ClientID = clientID
	off += n

	if flags&0x04 != 0 {
		will := &Will{
			QoS:    (flags >> 3) & 0x03,
			Retain: flags&0x20 != 0,
		}
		wprops, n, err := decodePropertiesWithWhitelist(buf[off:], willPropertyWhitelist)
		if err != nil {
			return nil, err
		}
		will.Properties = wprops
		off += n

		topic, n, err := decodeString(buf[off:])
		if err != nil {
			return nil, err
		}
		will.Topic = topic
		off += n

		payload, n, err := decodeBinary(buf[off:])
		if err != nil {
			return nil, err
		}
		will.Payload = append([]byte(nil), payload...)
		off += n

		pkt.Will = will
	}

	if flags&0x80 != 0 {
		username, n, err := decodeString(buf[off:])
		if err != nil {
			return nil, err
		}
		pkt.Username = username
		pkt.HasUsername = true
		off += n
	}
	if flags&0x40 != 0 {
		password, n, err := decodeString(buf[off:])
		if err != nil {
			return nil, err
		}
		pkt.Password = password
		pkt.HasPassword = true
		off += n
	}

	return pkt, nil
}
