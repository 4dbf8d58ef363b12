// Package sysinfo exposes process-wide resource signals used by the adaptive
// concurrency governor.
package sysinfo

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

// MemorySampler reports system memory utilization via gopsutil. It implements
// the task.MemorySampler interface.
type MemorySampler struct{}

// NewMemorySampler creates a MemorySampler.
func NewMemorySampler() *MemorySampler {
	return &MemorySampler{}
}

// UsedPercent returns the current used-memory percentage of the host.
func (s *MemorySampler) UsedPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("read virtual memory stats: %w", err)
	}
	return vm.UsedPercent, nil
}
