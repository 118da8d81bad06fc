//go:build tinygo && esp8266

package alarm

// Capacity is the number of alarm slots in every Registry.
const Capacity = 20
