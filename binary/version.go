package binary

import (
	"github.com/blang/semver/v4"
	"golang.org/x/crypto/blake2b"
)

// BuildVersion is the version of the serialized layout. Any change to a
// record layout must bump it so that old blobs are rejected.
var BuildVersion = semver.MustParse("1.2.0")

// BuildIDSize is the size of the build identifier at the start of a blob.
const BuildIDSize = blake2b.Size256

// BuildID returns the identifier written at the start of every blob.
func BuildID() [BuildIDSize]byte {
	return blake2b.Sum256([]byte("shaderlink program binary " + BuildVersion.String()))
}

// ParseBuildVersion validates a version string against BuildVersion and
// reports whether blobs written by that version can be loaded.
func ParseBuildVersion(s string) (semver.Version, bool, error) {
	v, err := semver.Parse(s)
	if err != nil {
		return semver.Version{}, false, err
	}
	return v, v.EQ(BuildVersion), nil
}
