package domain

import "time"

// Sample is one point-in-time snapshot of host metrics.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	// Temperature is the thermal sensor reading in whole degrees Celsius.
	Temperature int    `json:"temperature"`
	Memory      Memory `json:"memory"`
	CPU         CPU    `json:"cpu"`
}

// Memory holds byte counts; UsedBytes is always TotalBytes - FreeBytes.
type Memory struct {
	FreeBytes  uint64 `json:"freeBytes"`
	UsedBytes  uint64 `json:"usedBytes"`
	TotalBytes uint64 `json:"totalBytes"`
}

// NewMemory derives the used byte count from free and total.
func NewMemory(free, total uint64) Memory {
	used := uint64(0)
	if total > free {
		used = total - free
	}
	return Memory{FreeBytes: free, UsedBytes: used, TotalBytes: total}
}

// CPU holds the processor model and per-core load in percent (0-100).
type CPU struct {
	Name       string    `json:"name"`
	CoresCount int       `json:"coresCount"`
	Load       []float64 `json:"load"`
}
