package sampler

import (
	"context"
	"errors"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// CounterSource reads raw OS counters.
type CounterSource interface {
	// IdleTimes returns cumulative idle time per core in seconds.
	IdleTimes(ctx context.Context) ([]float64, error)
	// CPUModel returns the model name of the first core.
	CPUModel(ctx context.Context) (string, error)
	// Memory returns free and total physical memory in bytes.
	Memory(ctx context.Context) (free, total uint64, err error)
}

// HostSource reads counters of the local host through gopsutil.
type HostSource struct{}

func (HostSource) IdleTimes(ctx context.Context) ([]float64, error) {
	times, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return nil, err
	}
	idle := make([]float64, len(times))
	for i, t := range times {
		idle[i] = t.Idle
	}
	return idle, nil
}

func (HostSource) CPUModel(ctx context.Context) (string, error) {
	info, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return "", err
	}
	if len(info) == 0 {
		return "", errors.New("no cpu info")
	}
	return info[0].ModelName, nil
}

func (HostSource) Memory(ctx context.Context) (uint64, uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return vm.Free, vm.Total, nil
}
