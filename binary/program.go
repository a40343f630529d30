package binary

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/gogpu/shaderlink/glsl"
	"github.com/gogpu/shaderlink/link"
	"github.com/gogpu/shaderlink/shader"
)

// Program is a linked executable together with the code generated for it:
// what a program cache entry holds.
type Program struct {
	Executable *link.Executable

	// Sources is the generated code indexed by stage; empty for stages
	// that are not linked.
	Sources [shader.StageCount]string

	// Variables is the merged placement of every declaration.
	Variables map[string]glsl.VariableInfo
}

// SaveProgram serializes a program. Variables are written in name order so
// equal programs produce equal blobs.
func SaveProgram(p *Program) []byte {
	w := &Writer{}
	writeHeader(w, p.Executable.Version)
	writeExecutable(w, p.Executable)
	for _, src := range p.Sources {
		w.WriteString(src)
	}
	names := maps.Keys(p.Variables)
	slices.Sort(names)
	w.WriteUint32(uint32(len(names))) //nolint:gosec // G115: bounded by program resources
	for _, name := range names {
		info := p.Variables[name]
		w.WriteString(name)
		w.WriteInt(info.DescriptorSet)
		w.WriteInt(info.Binding)
		w.WriteInt(info.Location)
		w.WriteInt(info.Index)
		w.WriteUint8(uint8(info.ActiveStages))
	}
	return w.Bytes()
}

// LoadProgram deserializes a program saved by SaveProgram, with the same
// rejection rules as Load.
func LoadProgram(data []byte, api link.Version) (*Program, error) {
	r := NewReader(data)
	if err := readHeader(r, api); err != nil {
		return nil, err
	}
	p := &Program{Executable: readExecutable(r, api)}
	for i := range p.Sources {
		p.Sources[i] = r.ReadString()
	}
	n := r.readLength("variables")
	p.Variables = make(map[string]glsl.VariableInfo, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		name := r.ReadString()
		p.Variables[name] = glsl.VariableInfo{
			DescriptorSet: r.ReadInt(),
			Binding:       r.ReadInt(),
			Location:      r.ReadInt(),
			Index:         r.ReadInt(),
			ActiveStages:  shader.StageMask(r.ReadUint8()),
		}
	}
	if err := finish(r); err != nil {
		return nil, err
	}
	p.Executable.Finalize()
	return p, nil
}
