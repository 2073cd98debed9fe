package version

// Version contains the application version information.
// Set it at build time:
// go build -ldflags "-X github.com/ahmadMuhammadGd/nanosite/internal/version.Version=v0.3.0".
var Version = "dev"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version.
func String() string {
	return Version + " (" + GitCommit + ", built " + BuildTime + ")"
}
