package vmcfg

// ResetPublished forgets the process-wide registry.
func ResetPublished() {
	published.Store(nil)
}
