package services

import (
	"fmt"
	"strings"

	"github.com/benmeehan/rssi-collector/pkg/beacon"
)

// parseGatewayLine splits a gateway report "MAC,payload" or "MAC payload".
func parseGatewayLine(line string) (mac string, payload string, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", fmt.Errorf("%w: empty line", beacon.ErrInvalidPayload)
	}

	idx := strings.IndexAny(line, ", \t")
	if idx <= 0 {
		return "", "", fmt.Errorf("%w: %q", beacon.ErrInvalidPayload, line)
	}
	mac = beacon.NormalizeMAC(line[:idx])
	payload = strings.TrimSpace(line[idx+1:])
	if payload == "" {
		return "", "", fmt.Errorf("%w: %q", beacon.ErrInvalidPayload, line)
	}
	return mac, payload, nil
}

// macFromTopic extracts the level of topic matched by the single-level
// wildcard of pattern.
func macFromTopic(pattern, topic string) (string, bool) {
	patternLevels := strings.Split(pattern, "/")
	topicLevels := strings.Split(topic, "/")
	if len(patternLevels) != len(topicLevels) {
		return "", false
	}
	for i, p := range patternLevels {
		if p == "+" {
			if topicLevels[i] == "" {
				return "", false
			}
			return beacon.NormalizeMAC(topicLevels[i]), true
		}
	}
	return "", false
}
