package wire

import "encoding/binary"

// Property identifiers, MQTT v5.0 section 2.2.2.2.
const (
	PropPayloadFormatIndicator          uint8 = 0x01
	PropMessageExpiryInterval           uint8 = 0x02
	PropContentType                     uint8 = 0x03
	PropResponseTopic                   uint8 = 0x08
	PropCorrelationData                 uint8 = 0x09
	PropSubscriptionIdentifier          uint8 = 0x0B
	PropSessionExpiryInterval           uint8 = 0x11
	PropAssignedClientIdentifier        uint8 = 0x12
	PropServerKeepAlive                 uint8 = 0x13
	PropAuthenticationMethod            uint8 = 0x15
	PropAuthenticationData              uint8 = 0x16
	PropRequestProblemInformation       uint8 = 0x17
	PropWillDelayInterval               uint8 = 0x18
	PropRequestResponseInformation      uint8 = 0x19
	PropResponseInformation             uint8 = 0x1A
	PropServerReference                 uint8 = 0x1C
	PropReasonString                    uint8 = 0x1F
	PropReceiveMaximum                  uint8 = 0x21
	PropTopicAliasMaximum               uint8 = 0x22
	PropTopicAlias                      uint8 = 0x23
	PropMaximumQoS                      uint8 = 0x24
	PropRetainAvailable                 uint8 = 0x25
	PropUserProperty                    uint8 = 0x26
	PropMaximumPacketSize               uint8 = 0x27
	PropWildcardSubscriptionAvailable   uint8 = 0x28
	PropSubscriptionIdentifierAvailable uint8 = 0x29
	PropSharedSubscriptionAvailable     uint8 = 0x2A
)

// Presence bits, one per scalar property, set when decoded or explicitly
// assigned for encoding. Multi-valued properties (SubscriptionIdentifier,
// UserProperty, CorrelationData, AuthenticationData) are presence-tested by
// slice length instead.
const (
	PresPayloadFormatIndicator uint32 = 1 << iota
	PresMessageExpiryInterval
	PresContentType
	PresResponseTopic
	PresSessionExpiryInterval
	PresAssignedClientIdentifier
	PresServerKeepAlive
	PresAuthenticationMethod
	PresRequestProblemInformation
	PresWillDelayInterval
	PresRequestResponseInformation
	PresResponseInformation
	PresServerReference
	PresReasonString
	PresReceiveMaximum
	PresTopicAliasMaximum
	PresTopicAlias
	PresMaximumQoS
	PresRetainAvailable
	PresMaximumPacketSize
	PresWildcardSubscriptionAvailable
	PresSubscriptionIdentifierAvailable
	PresSharedSubscriptionAvailable
)

// UserProperty is a single MQTT User Property key/value pair. The protocol
// permits repeated keys; callers must not assume uniqueness.
type UserProperty struct {
	Key   string
	Value string
}

// Properties is the decoded form of an MQTT v5 properties section. Only the
// fields relevant to the enclosing packet type are populated; Decode rejects
// any identifier not on that packet type's whitelist.
type Properties struct {
	Presence uint32

	PayloadFormatIndicator uint8
	MessageExpiryInterval  uint32
	ContentType            string
	ResponseTopic          string
	CorrelationData        []byte

	SubscriptionIdentifier []int

	SessionExpiryInterval    uint32
	AssignedClientIdentifier string
	ServerKeepAlive          uint16

	AuthenticationMethod string
	AuthenticationData   []byte

	RequestProblemInformation  uint8
	WillDelayInterval          uint32
	RequestResponseInformation uint8
	ResponseInformation        string
	ServerReference            string
	ReasonString               string

	ReceiveMaximum                  uint16
	TopicAliasMaximum               uint16
	TopicAlias                      uint16
	MaximumQoS                      uint8
	RetainAvailable                 bool
	MaximumPacketSize               uint32
	WildcardSubscriptionAvailable   bool
	SubscriptionIdentifierAvailable bool
	SharedSubscriptionAvailable     bool

	UserProperties []UserProperty
}

func (p *Properties) has(bit uint32) bool { return p != nil && p.Presence&bit != 0 }

// propertyWhitelist enumerates, per control packet type, the property
// identifiers MQTT v5.0 permits in that packet's properties section
// (sections 3.1.2.11, 3.2.2.3, 3.3.2.3, 3.4.2.2, 3.8.2.1, 3.9.2.1, 3.10.2.1,
// 3.11.2.1, 3.14.2.2, 3.15.2.2). Will properties (3.1.3.2) are validated
// separately via willPropertyWhitelist since they travel inside CONNECT's
// payload, not its properties section.
var propertyWhitelist = map[uint8]map[uint8]bool{
	CONNECT: set(PropSessionExpiryInterval, PropReceiveMaximum, PropMaximumPacketSize,
		PropTopicAliasMaximum, PropRequestResponseInformation, PropRequestProblemInformation,
		PropUserProperty, PropAuthenticationMethod, PropAuthenticationData),
	CONNACK: set(PropSessionExpiryInterval, PropReceiveMaximum, PropMaximumQoS,
		PropRetainAvailable, PropMaximumPacketSize, PropAssignedClientIdentifier,
		PropTopicAliasMaximum, PropReasonString, PropUserProperty,
		PropWildcardSubscriptionAvailable, PropSubscriptionIdentifierAvailable,
		PropSharedSubscriptionAvailable, PropServerKeepAlive, PropResponseInformation,
		PropServerReference, PropAuthenticationMethod, PropAuthenticationData),
	PUBLISH: set(PropPayloadFormatIndicator, PropMessageExpiryInterval, PropContentType,
		PropResponseTopic, PropCorrelationData, PropSubscriptionIdentifier,
		PropTopicAlias, PropUserProperty),
	PUBACK:      set(PropReasonString, PropUserProperty),
	PUBREC:      set(PropReasonString, PropUserProperty),
	PUBREL:      set(PropReasonString, PropUserProperty),
	PUBCOMP:     set(PropReasonString, PropUserProperty),
	SUBSCRIBE:   set(PropSubscriptionIdentifier, PropUserProperty),
	SUBACK:      set(PropReasonString, PropUserProperty),
	UNSUBSCRIBE: set(PropUserProperty),
	UNSUBACK:    set(PropReasonString, PropUserProperty),
	DISCONNECT:  set(PropSessionExpiryInterval, PropReasonString, PropUserProperty, PropServerReference),
	AUTH:        set(PropAuthenticationMethod, PropAuthenticationData, PropReasonString, PropUserProperty),
}

var willPropertyWhitelist = set(PropWillDelayInterval, PropPayloadFormatIndicator,
	PropMessageExpiryInterval, PropContentType, PropResponseTopic, PropCorrelationData,
	PropUserProperty)

func set(ids ...uint8) map[uint8]bool {
	m := make(map[uint8]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// appendProperties appends the length-prefixed properties section for p to
// dst. A nil p encodes as a single zero length byte.
func appendProperties(dst []byte, p *Properties) []byte {
	lenPos := len(dst)
	dst = append(dst, 0) // placeholder, patched below if it doesn't fit in one byte
	bodyStart := len(dst)

	if p != nil {
		dst = p.appendScalars(dst)
		dst = p.appendMulti(dst)
	}

	bodyLen := len(dst) - bodyStart
	if bodyLen < 128 {
		dst[lenPos] = byte(bodyLen)
		return dst
	}

	lenBytes := appendVarInt(nil, bodyLen)
	grown := make([]byte, len(dst)+len(lenBytes)-1)
	copy(grown, dst[:lenPos])
	copy(grown[lenPos:], lenBytes)
	copy(grown[lenPos+len(lenBytes):], dst[bodyStart:])
	return grown
}

func (p *Properties) appendScalars(dst []byte) []byte {
	if p.has(PresPayloadFormatIndicator) {
		dst = append(dst, PropPayloadFormatIndicator, p.PayloadFormatIndicator)
	}
	if p.has(PresMessageExpiryInterval) {
		dst = append(dst, PropMessageExpiryInterval)
		dst = binary.BigEndian.AppendUint32(dst, p.MessageExpiryInterval)
	}
	if p.has(PresContentType) {
		dst = append(dst, PropContentType)
		dst = appendString(dst, p.ContentType)
	}
	if p.has(PresResponseTopic) {
		dst = append(dst, PropResponseTopic)
		dst = appendString(dst, p.ResponseTopic)
	}
	if len(p.CorrelationData) > 0 {
		dst = append(dst, PropCorrelationData)
		dst = appendBinary(dst, p.CorrelationData)
	}
	if p.has(PresSessionExpiryInterval) {
		dst = append(dst, PropSessionExpiryInterval)
		dst = binary.BigEndian.AppendUint32(dst, p.SessionExpiryInterval)
	}
	if p.has(PresAssignedClientIdentifier) {
		dst = append(dst, PropAssignedClientIdentifier)
		dst = appendString(dst, p.AssignedClientIdentifier)
	}
	if p.has(PresServerKeepAlive) {
		dst = append(dst, PropServerKeepAlive)
		dst = binary.BigEndian.AppendUint16(dst, p.ServerKeepAlive)
	}
	if p.has(PresAuthenticationMethod) {
		dst = append(dst, PropAuthenticationMethod)
		dst = appendString(dst, p.AuthenticationMethod)
	}
	if len(p.AuthenticationData) > 0 {
		dst = append(dst, PropAuthenticationData)
		dst = appendBinary(dst, p.AuthenticationData)
	}
	if p.has(PresRequestProblemInformation) {
		dst = append(dst, PropRequestProblemInformation, p.RequestProblemInformation)
	}
	if p.has(PresWillDelayInterval) {
		dst = append(dst, PropWillDelayInterval)
		dst = binary.BigEndian.AppendUint32(dst, p.WillDelayInterval)
	}
	if p.has(PresRequestResponseInformation) {
		dst = append(dst, PropRequestResponseInformation, p.RequestResponseInformation)
	}
	if p.has(PresResponseInformation) {
		dst = append(dst, PropResponseInformation)
		dst = appendString(dst, p.ResponseInformation)
	}
	if p.has(PresServerReference) {
		dst = append(dst, PropServerReference)
		dst = appendString(dst, p.ServerReference)
	}
	if p.has(PresReasonString) {
		dst = append(dst, PropReasonString)
		dst = appendString(dst, p.ReasonString)
	}
	if p.has(PresReceiveMaximum) {
		dst = append(dst, PropReceiveMaximum)
		dst = binary.BigEndian.AppendUint16(dst, p.ReceiveMaximum)
	}
	if p.has(PresTopicAliasMaximum) {
		dst = append(dst, PropTopicAliasMaximum)
		dst = binary.BigEndian.AppendUint16(dst, p.TopicAliasMaximum)
	}
	if p.has(PresTopicAlias) {
		dst = append(dst, PropTopicAlias)
		dst = binary.BigEndian.AppendUint16(dst, p.TopicAlias)
	}
	if p.has(PresMaximumQoS) {
		dst = append(dst, PropMaximumQoS, p.MaximumQoS)
	}
	if p.has(PresRetainAvailable) {
		dst = append(dst, PropRetainAvailable, boolByte(p.RetainAvailable))
	}
	if p.has(PresMaximumPacketSize) {
		dst = append(dst, PropMaximumPacketSize)
		dst = binary.BigEndian.AppendUint32(dst, p.MaximumPacketSize)
	}
	if p.has(PresWildcardSubscriptionAvailable) {
		dst = append(dst, PropWildcardSubscriptionAvailable, boolByte(p.WildcardSubscriptionAvailable))
	}
	if p.has(PresSubscriptionIdentifierAvailable) {
		dst = append(dst, PropSubscriptionIdentifierAvailable, boolByte(p.SubscriptionIdentifierAvailable))
	}
	if p.has(PresSharedSubscriptionAvailable) {
		dst = append(dst, PropSharedSubscriptionAvailable, boolByte(p.SharedSubscriptionAvailable))
	}
	return dst
}

func (p *Properties) appendMulti(dst []byte) []byte {
	for _, id := range p.SubscriptionIdentifier {
		dst = append(dst, PropSubscriptionIdentifier)
		dst = appendVarInt(dst, id)
	}
	for _, up := range p.UserProperties {
		dst = append(dst, PropUserProperty)
		dst = appendString(dst, up.Key)
		dst = appendString(dst, up.Value)
	}
	return dst
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// decodeProperties decodes the properties section at the front of buf for
// the given enclosing packet type. An identifier absent from that packet
// type's whitelist yields ErrBadProperties.
func decodeProperties(buf []byte, packetType uint8) (*Properties, int, error) {
	allowed := propertyWhitelist[packetType]
	return decodePropertiesWithWhitelist(buf, allowed)
}

func decodePropertiesWithWhitelist(buf []byte, allowed map[uint8]bool) (*Properties, int, error) {
	propLen, n, err := decodeVarInt(buf)
	if err != nil {
		return nil, 0, err
	}
	total := n + propLen
	if len(buf) < total {
		return nil, 0, ErrIncomplete
	}
	if propLen == 0 {
		return nil, total, nil
	}

	p := &Properties{}
	body := buf[n:total]
	off := 0
	var seen [256]bool
	for off < len(body) {
		id := body[off]
		off++
		if !allowed[id] {
			return nil, 0, ErrBadProperties
		}
		// Only User Property and Subscription Identifier may repeat.
		if seen[id] && id != PropUserProperty && id != PropSubscriptionIdentifier {
			return nil, 0, ErrBadProperties
		}
		seen[id] = true
		consumed, err := p.decodeOne(id, body[off:])
		if err != nil {
			return nil, 0, err
		}
		off += consumed
	}
	return p, total, nil
}

func (p *Properties) decodeOne(id uint8, data []byte) (int, error) {
	switch id {
	case PropPayloadFormatIndicator:
		if len(data) < 1 {
			return 0, ErrIncomplete
		}
		p.PayloadFormatIndicator = data[0]
		p.Presence |= PresPayloadFormatIndicator
		return 1, nil
	case PropMessageExpiryInterval:
		v, n, err := decodeUint32(data)
		if err != nil {
			return 0, err
		}
		p.MessageExpiryInterval = v
		p.Presence |= PresMessageExpiryInterval
		return n, nil
	case PropContentType:
		s, n, err := decodeString(data)
		if err != nil {
			return 0, err
		}
		p.ContentType = s
		p.Presence |= PresContentType
		return n, nil
	case PropResponseTopic:
		s, n, err := decodeString(data)
		if err != nil {
			return 0, err
		}
		p.ResponseTopic = s
		p.Presence |= PresResponseTopic
		return n, nil
	case PropCorrelationData:
		b, n, err := decodeBinary(data)
		if err != nil {
			return 0, err
		}
		p.CorrelationData = append([]byte(nil), b...)
		return n, nil
	case PropSubscriptionIdentifier:
		v, n, err := decodeVarInt(data)
		if err != nil {
			return 0, err
		}
		p.SubscriptionIdentifier = append(p.SubscriptionIdentifier, v)
		return n, nil
	case PropSessionExpiryInterval:
		v, n, err := decodeUint32(data)
		if err != nil {
			return 0, err
		}
		p.SessionExpiryInterval = v
		p.Presence |= PresSessionExpiryInterval
		return n, nil
	case PropAssignedClientIdentifier:
		s, n, err := decodeString(data)
		if err != nil {
			return 0, err
		}
		p.AssignedClientIdentifier = s
		p.Presence |= PresAssignedClientIdentifier
		return n, nil
	case PropServerKeepAlive:
		v, n, err := decodeUint16(data)
		if err != nil {
			return 0, err
		}
		p.ServerKeepAlive = v
		p.Presence |= PresServerKeepAlive
		return n, nil
	case PropAuthenticationMethod:
		s, n, err := decodeString(data)
		if err != nil {
			return 0, err
		}
		p.AuthenticationMethod = s
		p.Presence |= PresAuthenticationMethod
		return n, nil
	case PropAuthenticationData:
		b, n, err := decodeBinary(data)
		if err != nil {
			return 0, err
		}
		p.AuthenticationData = append([]byte(nil), b...)
		return n, nil
	case PropRequestProblemInformation:
		if len(data) < 1 {
			return 0, ErrIncomplete
		}
		p.RequestProblemInformation = data[0]
		p.Presence |= PresRequestProblemInformation
		return 1, nil
	case PropWillDelayInterval:
		v, n, err := decodeUint32(data)
		if err != nil {
			return 0, err
		}
		p.WillDelayInterval = v
		p.Presence |= PresWillDelayInterval
		return n, nil
	case PropRequestResponseInformation:
		if len(data) < 1 {
			return 0, ErrIncomplete
		}
		p.RequestResponseInformation = data[0]
		p.Presence |= PresRequestResponseInformation
		return 1, nil
	case PropResponseInformation:
		s, n, err := decodeString(data)
		if err != nil {
			return 0, err
		}
		p.ResponseInformation = s
		p.Presence |= PresResponseInformation
		return n, nil
	case PropServerReference:
		s, n, err := decodeString(data)
		if err != nil {
			return 0, err
		}
		p.ServerReference = s
		p.Presence |= PresServerReference
		return n, nil
	case PropReasonString:
		s, n, err := decodeString(data)
		if err != nil {
			return 0, err
		}
		p.ReasonString = s
		p.Presence |= PresReasonString
		return n, nil
	case PropReceiveMaximum:
		v, n, err := decodeUint16(data)
		if err != nil {
			return 0, err
		}
		p.ReceiveMaximum = v
		p.Presence |= PresReceiveMaximum
		return n, nil
	case PropTopicAliasMaximum:
		v, n, err := decodeUint16(data)
		if err != nil {
			return 0, err
		}
		p.TopicAliasMaximum = v
		p.Presence |= PresTopicAliasMaximum
		return n, nil
	case PropTopicAlias:
		v, n, err := decodeUint16(data)
		if err != nil {
			return 0, err
		}
		p.TopicAlias = v
		p.Presence |= PresTopicAlias
		return n, nil
	case PropMaximumQoS:
		if len(data) < 1 {
			return 0, ErrIncomplete
		}
		p.MaximumQoS = data[0]
		p.Presence |= PresMaximumQoS
		return 1, nil
	case PropRetainAvailable:
		if len(data) < 1 {
			return 0, ErrIncomplete
		}
		p.RetainAvailable = data[0] != 0
		p.Presence |= PresRetainAvailable
		return 1, nil
	case PropUserProperty:
		k, nk, err := decodeString(data)
		if err != nil {
			return 0, err
		}
		v, nv, err := decodeString(data[nk:])
		if err != nil {
			return 0, err
		}
		p.UserProperties = append(p.UserProperties, UserProperty{Key: k, Value: v})
		return nk + nv, nil
	case PropMaximumPacketSize:
		v, n, err := decodeUint32(data)
		if err != nil {
			return 0, err
		}
		p.MaximumPacketSize = v
		p.Presence |= PresMaximumPacketSize
		return n, nil
	case PropWildcardSubscriptionAvailable:
		if len(data) < 1 {
			return 0, ErrIncomplete
		}
		p.WildcardSubscriptionAvailable = data[0] != 0
		p.Presence |= PresWildcardSubscriptionAvailable
		return 1, nil
	case PropSubscriptionIdentifierAvailable:
		if len(data) < 1 {
			return 0, ErrIncomplete
		}
		p.SubscriptionIdentifierAvailable = data[0] != 0
		p.Presence |= PresSubscriptionIdentifierAvailable
		return 1, nil
	case PropSharedSubscriptionAvailable:
		if len(data) < 1 {
			return 0, ErrIncomplete
		}
		p.SharedSubscriptionAvailable = data[0] != 0
		p.Presence |= PresSharedSubscriptionAvailable
		return 1, nil
	}
	// allowed[id] was true but the identifier isn't one we recognize: the
	// whitelist tables above are exhaustive for MQTT v5, so this path is
	// unreachable for a conformant whitelist entry.
	return 0, ErrBadProperties
}
