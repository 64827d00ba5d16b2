package mqttc

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/riftio/mqttc/wire"
)

// MQTT-defined limits; fixed, with no client option to override them.
const (
	maxTopicLength  = 65535
	maxPayloadBytes = 268435455 // 256MB - 1, the VBI ceiling
)

// matchTopic reports whether topic matches filter under MQTT wildcard
// semantics ('+' matches exactly one level, '#' matches any number of
// trailing levels and must be the final segment of filter).
func matchTopic(filter, topic string) bool {
	// MQTT-4.7.2-1: a filter starting with a wildcard must not match a
	// topic starting with '$' (reserved for broker-internal topics such
	// as $SYS).
	if len(topic) > 0 && topic[0] == '$' {
		if len(filter) > 0 && (filter[0] == '+' || filter[0] == '#') {
			return false
		}
	}

	fIdx, tIdx := 0, 0
	fLen, tLen := len(filter), len(topic)

	for fIdx <= fLen {
		var fLevel string
		var fNext int
		if idx := strings.IndexByte(filter[fIdx:], '/'); idx >= 0 {
			fNext = fIdx + idx
			fLevel = filter[fIdx:fNext]
		} else {
			fNext = fLen
			fLevel = filter[fIdx:]
		}

		if fLevel == "#" {
			return true
		}

		if tIdx > tLen {
			return false
		}

		var tLevel string
		var tNext int
		if idx := strings.IndexByte(topic[tIdx:], '/'); idx >= 0 {
			tNext = tIdx + idx
			tLevel = topic[tIdx:tNext]
		} else {
			tNext = tLen
			tLevel = topic[tIdx:]
		}

		if fLevel != "+" && fLevel != tLevel {
			return false
		}

		if fNext == fLen {
			fIdx = fLen + 1
		} else {
			fIdx = fNext + 1
		}
		if tNext == tLen {
			tIdx = tLen + 1
		} else {
			tIdx = tNext + 1
		}
	}

	return tIdx > tLen
}

// validatePublishTopic enforces the Topic filter invariants from §3 for a
// PUBLISH topic name: non-empty, UTF-8, no null octet, and (unlike a
// subscription filter) no wildcard tokens at all.
func validatePublishTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: topic cannot be empty", BadParameter)
	}
	if len(topic) > maxTopicLength {
		return fmt.Errorf("%w: topic length %d exceeds %d", BadParameter, len(topic), maxTopicLength)
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: publish topic must not contain wildcard characters", BadParameter)
	}
	if strings.Contains(topic, "\x00") {
		return fmt.Errorf("%w: topic contains a null octet", BadParameter)
	}
	if !utf8.ValidString(topic) {
		return fmt.Errorf("%w: topic is not valid UTF-8", BadParameter)
	}
	return nil
}

// validateSubscribeTopic enforces the Topic filter invariants from §3 for a
// SUBSCRIBE/UNSUBSCRIBE filter: wildcards are permitted but only at segment
// boundaries, and '#' only as the final segment.
func validateSubscribeTopic(filter string) error {
	if filter == "" {
		return fmt.Errorf("%w: topic filter cannot be empty", BadParameter)
	}
	if len(filter) > maxTopicLength {
		return fmt.Errorf("%w: topic filter length %d exceeds %d", BadParameter, len(filter), maxTopicLength)
	}
	if strings.Contains(filter, "\x00") {
		return fmt.Errorf("%w: topic filter contains a null octet", BadParameter)
	}
	if !utf8.ValidString(filter) {
		return fmt.Errorf("%w: topic filter is not valid UTF-8", BadParameter)
	}

	segments := strings.Split(filter, "/")
	for i, seg := range segments {
		if strings.Contains(seg, "+") && seg != "+" {
			return fmt.Errorf("%w: '+' must occupy an entire topic level", BadParameter)
		}
		if strings.Contains(seg, "#") {
			if seg != "#" {
				return fmt.Errorf("%w: '#' must occupy an entire topic level", BadParameter)
			}
			if i != len(segments)-1 {
				return fmt.Errorf("%w: '#' must be the final topic level", BadParameter)
			}
		}
	}
	return nil
}

// validatePayload enforces the payload-size ceiling implied by the VBI
// remaining-length encoding, and, when a Payload Format Indicator property
// of 1 (UTF-8) is present, that the payload is valid UTF-8.
func validatePayload(payload []byte, props *Properties) error {
	if len(payload) > maxPayloadBytes {
		return fmt.Errorf("%w: payload size %d exceeds %d", BadParameter, len(payload), maxPayloadBytes)
	}
	if props != nil && props.Presence&wire.PresPayloadFormatIndicator != 0 &&
		props.PayloadFormatIndicator == 1 && !utf8.Valid(payload) {
		return fmt.Errorf("%w: payload is not valid UTF-8 as required by PayloadFormat", BadProperties)
	}
	return nil
}
