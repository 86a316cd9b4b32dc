// Package resource determines the memory budget available to a conversion
// job. A Signal abstracts where memory figures come from (cluster
// scheduler allocation, OS introspection); Probe applies a fixed
// precedence order over those signals and a safety factor to the result.
//
// The probe itself never inspects scheduler variable names. All
// environment coupling lives in EnvSignal, so planning and mode-selection
// logic can be tested against StaticSignal without a cluster or a real OS
// memory reading.
package resource

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/mem"
)

// Signal answers the three memory queries the probe consumes, in order of
// precedence: a direct per-node allocation, a per-unit allocation with a
// unit count, and OS available memory.
type Signal interface {
	// NodeAllocationMB returns the scheduler's whole-node memory grant
	// in MB, if one is present.
	NodeAllocationMB() (int64, bool)

	// PerUnitAllocationMB returns the scheduler's per-compute-unit
	// memory grant in MB and the number of units granted to the task,
	// if both are present.
	PerUnitAllocationMB() (mb int64, units int, ok bool)

	// OSAvailableBytes returns the OS view of available memory.
	OSAvailableBytes() (uint64, error)

	// InJobContext reports whether a scheduler job context was detected
	// at all, used only for diagnostics when no allocation parses.
	InJobContext() bool

	// SchedulerEnv returns the raw scheduler variables for diagnostic
	// logging. Never used to compute the budget.
	SchedulerEnv() map[string]string
}

// EnvSignal is the production Signal: SLURM environment variables plus
// gopsutil for OS memory.
type EnvSignal struct{}

// NewEnvSignal returns the production signal.
func NewEnvSignal() *EnvSignal {
	return &EnvSignal{}
}

// NodeAllocationMB reads SLURM_MEM_PER_NODE.
func (s *EnvSignal) NodeAllocationMB() (int64, bool) {
	raw, ok := os.LookupEnv("SLURM_MEM_PER_NODE")
	if !ok {
		return 0, false
	}
	mb, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return mb, true
}

// PerUnitAllocationMB reads SLURM_MEM_PER_CPU and SLURM_CPUS_PER_TASK.
func (s *EnvSignal) PerUnitAllocationMB() (int64, int, bool) {
	rawMem, okMem := os.LookupEnv("SLURM_MEM_PER_CPU")
	rawCPUs, okCPUs := os.LookupEnv("SLURM_CPUS_PER_TASK")
	if !okMem || !okCPUs {
		return 0, 0, false
	}
	mb, err := strconv.ParseInt(strings.TrimSpace(rawMem), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	units, err := strconv.Atoi(strings.TrimSpace(rawCPUs))
	if err != nil {
		return 0, 0, false
	}
	return mb, units, true
}

// OSAvailableBytes reads available memory from the OS.
func (s *EnvSignal) OSAvailableBytes() (uint64, error) {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vmStat.Available, nil
}

// InJobContext reports whether SLURM_JOB_ID is set.
func (s *EnvSignal) InJobContext() bool {
	_, ok := os.LookupEnv("SLURM_JOB_ID")
	return ok
}

// SchedulerEnv returns all SLURM_* variables, sorted by name.
func (s *EnvSignal) SchedulerEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, found := strings.Cut(kv, "=")
		if found && strings.HasPrefix(key, "SLURM_") {
			env[key] = value
		}
	}
	return env
}

// sortedKeys returns the map keys in sorted order for stable log output.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StaticSignal is a Signal returning fixed values, for tests.
type StaticSignal struct {
	NodeMB       int64
	HasNode      bool
	UnitMB       int64
	Units        int
	HasUnit      bool
	OSBytes      uint64
	OSErr        error
	JobContext   bool
	SchedulerVar map[string]string
}

// NodeAllocationMB returns the fixed node allocation.
func (s *StaticSignal) NodeAllocationMB() (int64, bool) {
	return s.NodeMB, s.HasNode
}

// PerUnitAllocationMB returns the fixed per-unit allocation.
func (s *StaticSignal) PerUnitAllocationMB() (int64, int, bool) {
	return s.UnitMB, s.Units, s.HasUnit
}

// OSAvailableBytes returns the fixed OS reading.
func (s *StaticSignal) OSAvailableBytes() (uint64, error) {
	return s.OSBytes, s.OSErr
}

// InJobContext returns the fixed job-context flag.
func (s *StaticSignal) InJobContext() bool {
	return s.JobContext
}

// SchedulerEnv returns the fixed scheduler variables.
func (s *StaticSignal) SchedulerEnv() map[string]string {
	return s.SchedulerVar
}
