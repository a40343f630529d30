// Package cache implements the process-wide program cache: serialized
// executables keyed by a content hash of everything that influences a
// link.
package cache

import (
	"encoding/binary"
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/blake2b"

	linkbinary "github.com/gogpu/shaderlink/binary"
	"github.com/gogpu/shaderlink/link"
	"github.com/gogpu/shaderlink/shader"
)

// KeySize is the size of a cache key in bytes.
const KeySize = blake2b.Size256

// Key identifies a linked program.
type Key [KeySize]byte

// String returns the key in hex.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// KeyBuilder accumulates link inputs into a Key. The build identifier and
// client API version always lead the hash, so keys from another build never
// collide with current ones.
type KeyBuilder struct {
	h hash.Hash
}

// NewKeyBuilder starts a key for the given client API version.
func NewKeyBuilder(api link.Version) *KeyBuilder {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only a key longer than 64 bytes fails.
		panic(err)
	}
	b := &KeyBuilder{h: h}
	id := linkbinary.BuildID()
	b.h.Write(id[:])
	b.Int(api.Major)
	b.Int(api.Minor)
	return b
}

// Int adds an integer.
func (b *KeyBuilder) Int(v int) *KeyBuilder {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
	b.h.Write(buf[:])
	return b
}

// Bool adds a bool.
func (b *KeyBuilder) Bool(v bool) *KeyBuilder {
	if v {
		return b.Int(1)
	}
	return b.Int(0)
}

// String adds a length-prefixed string.
func (b *KeyBuilder) String(s string) *KeyBuilder {
	b.Int(len(s))
	b.h.Write([]byte(s))
	return b
}

// Strings adds a counted list of strings.
func (b *KeyBuilder) Strings(list []string) *KeyBuilder {
	b.Int(len(list))
	for _, s := range list {
		b.String(s)
	}
	return b
}

// Shaders adds the attached stages: stage, version and source of each, in
// stage order. Detached stages contribute a marker so that moving a source
// between stages changes the key.
func (b *KeyBuilder) Shaders(shaders [shader.StageCount]*shader.Shader) *KeyBuilder {
	for _, s := range shaders {
		if s == nil {
			b.Int(-1)
			continue
		}
		b.Int(int(s.Stage)).Int(s.Version).String(s.Source)
	}
	return b
}

// Bindings adds API-assigned locations in name order.
func (b *KeyBuilder) Bindings(names []string, location func(string) int) *KeyBuilder {
	b.Int(len(names))
	for _, name := range names {
		b.String(name).Int(location(name))
	}
	return b
}

func (b *KeyBuilder) aliasedBindings(ab *link.AliasedBindings) {
	names := ab.Names()
	b.Bindings(names, ab.ByName)
	for _, name := range names {
		b.Bool(ab.Aliased(name))
	}
}

// Key returns the accumulated key.
func (b *KeyBuilder) Key() Key {
	var k Key
	copy(k[:], b.h.Sum(nil))
	return k
}

// InputKey hashes every field of a link input that changes the executable.
// Settings outside the input (translation features) are added by the
// caller through extra.
func InputKey(in *link.Input, extra func(*KeyBuilder)) Key {
	b := NewKeyBuilder(in.ClientVersion)
	b.Shaders(in.Shaders)
	b.Bool(in.WebGL).Bool(in.Limitations.NoVertexAttributeAliasing)
	b.Bindings(in.AttributeBindings.Names(), in.AttributeBindings.ByName)
	b.Bindings(in.UniformLocationBindings.Names(), in.UniformLocationBindings.ByName)
	b.aliasedBindings(&in.FragmentOutputLocations)
	b.aliasedBindings(&in.FragmentOutputIndexes)
	b.Strings(in.TransformFeedbackVaryingNames)
	b.Int(int(in.TransformFeedbackBufferMode))
	if extra != nil {
		extra(b)
	}
	return b.Key()
}
