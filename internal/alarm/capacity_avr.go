//go:build tinygo && avr

package alarm

// Capacity is the number of alarm slots in every Registry.
const Capacity = 6
