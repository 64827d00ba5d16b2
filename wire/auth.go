package wire

// AuthPacket is the MQTT v5 AUTH control packet, used for extended (e.g.
// SCRAM, Kerberos) authentication exchanges beyond CONNECT's username and
// password.
type AuthPacket struct {
	ReasonCode ReasonCode
	Properties *Properties
}

func (p *AuthPacket) Type() uint8 { return AUTH }

func (p *AuthPacket) Append(dst []byte) []byte {
	if p.ReasonCode == Success && p.Properties == nil {
		return appendFixedHeader(dst, AUTH, 0, 0)
	}
	var body []byte
	body = append(body, byte(p.ReasonCode))
	body = appendProperties(body, p.Properties)
	dst = appendFixedHeader(dst, AUTH, 0, len(body))
	return append(dst, body...)
}

func decodeAuth(buf []byte) (*AuthPacket, error) {
	if len(buf) == 0 {
		return &AuthPacket{ReasonCode: Success}, nil
	}
	pkt := &AuthPacket{ReasonCode: ReasonCode(buf[0])}
	if len(buf) > 1 {
		props, _, err := decodeProperties(buf[1:], AUTH)
		if err != nil {
			return nil, err
		}
		pkt.Properties = props
	}
	return pkt, nil
}
