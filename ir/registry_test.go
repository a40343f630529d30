package ir

import (
	"testing"
)

func TestTypeRegistry_Deduplication(t *testing.T) {
	m := newTestModule(StageFragment)
	r := NewTypeRegistry(m)

	// vec4 already exists in the test module at handle 2
	if h := r.Vector(Vec4, ScalarFloat); h != 2 {
		t.Errorf("Vector(Vec4, float) = %d, want existing handle 2", h)
	}
	before := len(m.Types)
	h1 := r.Vector(Vec3, ScalarSint)
	h2 := r.Vector(Vec3, ScalarSint)
	if h1 != h2 {
		t.Errorf("ivec3 registered twice: %d and %d", h1, h2)
	}
	if len(m.Types) != before+1 {
		t.Errorf("len(Types) = %d, want %d", len(m.Types), before+1)
	}
}

func TestTypeRegistry_NamedStructsStayDistinct(t *testing.T) {
	m := newTestModule(StageFragment)
	r := NewTypeRegistry(m)
	members := []StructMember{{Name: "a", Type: 0}}

	s1 := r.GetOrCreate("S1", StructType{Members: members})
	s2 := r.GetOrCreate("S2", StructType{Members: members})
	if s1 == s2 {
		t.Error("structs with different names share a handle")
	}
	if again := r.GetOrCreate("S1", StructType{Members: members}); again != s1 {
		t.Errorf("GetOrCreate(S1) = %d, want %d", again, s1)
	}
}

func TestTypeRegistry_Arrays(t *testing.T) {
	m := newTestModule(StageFragment)
	r := NewTypeRegistry(m)
	a4 := r.Array(0, 4)
	a5 := r.Array(0, 5)
	if a4 == a5 {
		t.Error("float[4] and float[5] share a handle")
	}
	if got := r.Array(0, 4); got != a4 {
		t.Errorf("Array(float, 4) = %d, want %d", got, a4)
	}
}
