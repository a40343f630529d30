package link

import (
	"strings"

	"github.com/gogpu/shaderlink/shader"
)

// isActiveBlock reports whether a block takes part in linking. Blocks with a
// non-packed layout are active even when unused.
func isActiveBlock(b *shader.InterfaceBlock) bool {
	return b.Active || b.Layout != shader.LayoutPacked
}

func blocksOf(s *shader.Shader, storage bool) []shader.InterfaceBlock {
	if storage {
		return s.StorageBlocks
	}
	return s.UniformBlocks
}

func blockLimitName(stage shader.Stage, storage bool) string {
	ext := ""
	if stage == shader.StageGeometry {
		ext = "_EXT"
	}
	if storage {
		return "GL_MAX_" + strings.ToUpper(stage.String()) + "_SHADER_STORAGE_BLOCKS" + ext
	}
	return "GL_MAX_" + strings.ToUpper(stage.String()) + "_UNIFORM_BUFFERS" + ext
}

// linkInterfaceBlocks checks block counts and cross-stage identity, then
// defines the linked uniform and storage blocks with their members.
func (l *linker) linkInterfaceBlocks() error {
	caps := &l.in.Caps
	for _, storage := range []bool{false, true} {
		combined := 0
		for _, s := range l.attached() {
			count := 0
			for _, b := range blocksOf(s, storage) {
				if isActiveBlock(&b) {
					count += b.ElementCount()
				}
			}
			limit := caps.MaxShaderUniformBlocks[s.Stage]
			kind := "uniform block"
			if storage {
				limit = caps.MaxShaderStorageBlocks[s.Stage]
				kind = "shader storage block"
			}
			if count > limit {
				return newError(ErrResourceExhausted, "%s shader %s count exceeds %s (%d)",
					s.Stage, kind, blockLimitName(s.Stage, storage), limit)
			}
			combined += count
		}
		if storage {
			if combined > caps.MaxCombinedShaderStorageBlocks {
				return newError(ErrResourceExhausted,
					"The sum of the number of active shader storage blocks exceeds MAX_COMBINED_SHADER_STORAGE_BLOCKS (%d).",
					caps.MaxCombinedShaderStorageBlocks)
			}
			l.combinedStorageBlocks = combined
		} else if combined > caps.MaxCombinedUniformBlocks {
			return newError(ErrResourceExhausted,
				"The sum of the number of active uniform blocks exceeds MAX_COMBINED_UNIFORM_BLOCKS (%d).",
				caps.MaxCombinedUniformBlocks)
		}
	}

	if err := l.validateBlocksMatch(); err != nil {
		return err
	}
	l.defineBlocks(false)
	l.defineBlocks(true)
	return nil
}

type linkedBlockRef struct {
	block *shader.InterfaceBlock
	stage shader.Stage
}

// validateBlocksMatch checks that same-named blocks agree across stages and
// that no field name is claimed by two different instanceless blocks.
func (l *linker) validateBlocksMatch() error {
	instanceless := make(map[string]linkedBlockRef)
	for _, s := range l.attached() {
		for _, storage := range []bool{false, true} {
			blocks := blocksOf(s, storage)
			for i := range blocks {
				if err := checkInstancelessFields(&blocks[i], s.Stage, instanceless); err != nil {
					return err
				}
			}
		}
	}

	for _, storage := range []bool{false, true} {
		linked := make(map[string]linkedBlockRef)
		for _, s := range l.attached() {
			blocks := blocksOf(s, storage)
			for i := range blocks {
				b := &blocks[i]
				prev, ok := linked[b.Name]
				if !ok {
					linked[b.Name] = linkedBlockRef{block: b, stage: s.Stage}
					continue
				}
				if kind, field := MatchInterfaceBlocks(b, prev.block, l.in.WebGL); kind != MismatchNone {
					return mismatchError(&Mismatch{
						Kind:         kind,
						Name:         b.Name,
						VariableType: b.TypeName(),
						Field:        field,
						Stage1:       prev.stage,
						Stage2:       s.Stage,
					})
				}
			}
		}
	}
	return nil
}

func checkInstancelessFields(b *shader.InterfaceBlock, stage shader.Stage, seen map[string]linkedBlockRef) error {
	if b.InstanceName != "" {
		return nil
	}
	for i := range b.Fields {
		name := b.Fields[i].Name
		prev, ok := seen[name]
		if !ok {
			seen[name] = linkedBlockRef{block: b, stage: stage}
			continue
		}
		if prev.block.Name != b.Name {
			return newError(ErrInterfaceMismatch,
				"Ambiguous field '%s' in blocks '%s' (%s shader) and '%s' (%s shader) which don't have instance names.",
				name, prev.block.Name, prev.stage, b.Name, stage)
		}
	}
	return nil
}

// defineBlocks appends one linked block per block element, in stage order,
// merging blocks already defined by an earlier stage.
func (l *linker) defineBlocks(storage bool) {
	defined := make(map[string][]int)
	list := &l.exe.UniformBlocks
	if storage {
		list = &l.exe.ShaderStorageBlocks
	}

	for _, s := range l.attached() {
		blocks := blocksOf(s, storage)
		for i := range blocks {
			b := &blocks[i]
			if !isActiveBlock(b) {
				continue
			}
			if indexes, ok := defined[b.Name]; ok {
				if b.Active {
					l.markBlockActive(*list, indexes, s.Stage, storage)
				}
				continue
			}

			var stages shader.StageMask
			if b.Active {
				stages = shader.MaskOf(s.Stage)
			}
			blockIndex := len(*list)
			members, dataSize := l.defineBlockMembers(b, blockIndex, stages, storage)

			for e := 0; e < b.ElementCount(); e++ {
				binding := 0
				if b.Binding != -1 {
					binding = b.Binding + e
				}
				defined[b.Name] = append(defined[b.Name], len(*list))
				*list = append(*list, InterfaceBlock{
					ShaderVariableBuffer: ShaderVariableBuffer{
						Binding:       binding,
						DataSize:      dataSize,
						ActiveStages:  stages,
						MemberIndexes: append([]int(nil), members...),
					},
					Name:         b.Name,
					MappedName:   b.MappedName,
					IsArray:      b.IsArray(),
					ArrayElement: e,
					InstanceName: b.InstanceName,
					Readonly:     b.Readonly,
				})
			}
		}
	}
}

// defineBlockMembers lays out the block and appends its leaf members to the
// uniform list or the buffer variable list.
func (l *linker) defineBlockMembers(b *shader.InterfaceBlock, blockIndex int, stages shader.StageMask, storage bool) ([]int, int) {
	var members []int
	dataSize := encodeBlock(b, func(name string, leaf *shader.Variable, info BlockMemberInfo, topLevelArraySize int) {
		v := leaf.Clone()
		v.Name = name
		v.MappedName = name
		v.Fields = nil
		v.Location = -1
		v.Binding = -1
		v.ActiveStages = stages
		v.Active = b.Active
		v.StaticUse = b.StaticUse

		if storage {
			members = append(members, len(l.exe.BufferVariables))
			l.exe.BufferVariables = append(l.exe.BufferVariables, BufferVariable{
				Variable:          v,
				BufferIndex:       blockIndex,
				BlockInfo:         info,
				TopLevelArraySize: topLevelArraySize,
			})
			return
		}
		members = append(members, len(l.exe.Uniforms))
		l.exe.Uniforms = append(l.exe.Uniforms, LinkedUniform{
			Variable:    v,
			BufferIndex: blockIndex,
			BlockInfo:   info,
		})
	})
	return members, dataSize
}

func (l *linker) markBlockActive(blocks []InterfaceBlock, indexes []int, stage shader.Stage, storage bool) {
	for _, bi := range indexes {
		blk := &blocks[bi]
		blk.ActiveStages = blk.ActiveStages.With(stage)
		for _, m := range blk.MemberIndexes {
			if storage {
				l.exe.BufferVariables[m].ActiveStages = l.exe.BufferVariables[m].ActiveStages.With(stage)
				l.exe.BufferVariables[m].Active = true
			} else {
				l.exe.Uniforms[m].ActiveStages = l.exe.Uniforms[m].ActiveStages.With(stage)
				l.exe.Uniforms[m].Active = true
			}
		}
	}
}
