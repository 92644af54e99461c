package scenario

import "github.com/bobuhiro11/hvconfig/platform"

// SetHostInfo replaces the host probe and returns a function restoring it.
func SetHostInfo(fn func() (platform.Info, error)) func() {
	orig := hostInfo
	hostInfo = fn

	return func() { hostInfo = orig }
}
