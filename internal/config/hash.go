package config

import (
	"encoding/json"
	"hash/fnv"
)

func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

func hashConfig(cfg *Config) uint64 {
	if cfg == nil {
		return 0
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return 0
	}
	return hashBytes(b)
}

// HashAlarm fingerprints one alarm definition so reloads can tell which
// alarms actually changed.
func HashAlarm(a AlarmConfig) uint64 {
	b, err := json.Marshal(a)
	if err != nil {
		return 0
	}
	return hashBytes(b)
}
