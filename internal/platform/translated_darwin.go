package platform

import "syscall"

// translated reports whether the process runs under Rosetta. The sysctl is
// absent on machines without the translator, which means "not translated".
func translated() bool {
	v, err := syscall.SysctlUint32("sysctl.proc_translated")
	if err != nil {
		return false
	}
	return v == 1
}
