// Package build holds what the linker knows about the binary. The values are
// set with -ldflags, like:
//
//	go build -ldflags "-X github.com/nemakiware/cmis-fixture/pkg/config.Version=1.2.0"
package build

// The two build modes. A development build logs with more details.
const (
	ModeDev  = "development"
	ModeProd = "production"
)

var (
	// Version is the release, "dev" for a build made without -ldflags.
	Version = "dev"
	// BuildTime is the time of the build, in RFC 3339.
	BuildTime string
	// BuildMode is ModeDev or ModeProd.
	BuildMode = ModeDev
)

// IsDevRelease returns true for a development build.
func IsDevRelease() bool {
	return BuildMode == ModeDev
}

// UserAgent is the User-Agent header sent to the CMIS server.
func UserAgent() string {
	return "cmis-fixture/" + Version
}

// Summary is the version line printed by the CLI.
func Summary() string {
	if BuildTime == "" {
		return Version + " (" + BuildMode + ")"
	}
	return Version + " (" + BuildMode + ", built at " + BuildTime + ")"
}
