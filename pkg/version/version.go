package version

var (
	// Version is set at build time with -ldflags "-X".
	Version = "v0.0.0-dev"
	// GitCommit is set at build time with -ldflags "-X".
	GitCommit = "unknown"
)
