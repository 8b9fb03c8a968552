// pkg/jit/passes.go
package jit

import (
	"fmt"
	"strconv"
)

// Pass is a function-level transformation; Run reports whether it changed
// the function.
type Pass interface {
	Name() string
	Run(f *Function) bool
}

// PassManager runs function passes in order, mirroring the legacy
// FunctionPassManager the original engine attached to each fresh module.
type PassManager struct {
	passes []Pass
}

// NewPassManager creates an empty pass manager.
func NewPassManager() *PassManager {
	return &PassManager{}
}

// Add appends a pass to the pipeline.
func (pm *PassManager) Add(p Pass) {
	pm.passes = append(pm.passes, p)
}

// Run applies the pipeline to the function and reports whether any pass
// changed it.
func (pm *PassManager) Run(f *Function) bool {
	changed := false
	for _, p := range pm.passes {
		if p.Run(f) {
			changed = true
		}
	}
	return changed
}

// StandardPasses returns the optimization lineup applied when
// optimizations are enabled: peephole combining, reassociation, common
// subexpression elimination, dead instruction elimination, and
// loop-invariant hoisting. No pass changes the block structure.
func StandardPasses() []Pass {
	return []Pass{
		InstCombine{},
		Reassociate{},
		GVN{},
		SimplifyCFG{},
		LICM{},
	}
}

// replaceUses swaps every operand reference to old for new across the
// function.
func replaceUses(f *Function, old, new Value) {
	for _, blk := range f.Blocks {
		for _, ins := range blk.Instructions {
			for i, op := range ins.Operands {
				if op == old {
					ins.Operands[i] = new
				}
			}
		}
	}
}

// used reports whether v is referenced by any instruction.
func used(f *Function, v Value) bool {
	for _, blk := range f.Blocks {
		for _, ins := range blk.Instructions {
			for _, op := range ins.Operands {
				if op == v {
					return true
				}
			}
		}
	}
	return false
}

// pure reports whether the instruction has no side effects and can be
// removed or deduplicated when its value is unneeded or already computed.
// Loads are excluded: they observe memory.
func pure(ins *Instruction) bool {
	switch ins.Op {
	case OpFAdd, OpFSub, OpFMul, OpFDiv, OpFCmp, OpAnd, OpOr,
		OpAdd, OpICmp, OpSIToFP, OpFPExt, OpUIToFP, OpGEP, OpBitcast:
		return true
	}
	return false
}

// InstCombine does simple peephole optimizations: constant folding and
// algebraic identities.
type InstCombine struct{}

func (InstCombine) Name() string { return "instcombine" }

func (InstCombine) Run(f *Function) bool {
	changed := false
	replaced := make(map[*Instruction]bool)
	// iterate to a fixpoint: folding an operand can make its user foldable
	for again := true; again; {
		again = false
		for _, blk := range f.Blocks {
			for _, ins := range blk.Instructions {
				if replaced[ins] {
					continue
				}
				if repl := combine(ins); repl != nil {
					replaceUses(f, ins, repl)
					replaced[ins] = true
					changed = true
					again = true
				}
			}
		}
	}
	return changed
}

func combine(ins *Instruction) Value {
	switch ins.Op {
	case OpFAdd, OpFSub, OpFMul, OpFDiv:
		l, lok := ins.Operands[0].(*ConstFloat)
		r, rok := ins.Operands[1].(*ConstFloat)
		if lok && rok {
			return NewConstFloat(F64Type, foldArith(ins.Op, l.Value, r.Value))
		}
		// x+0, x-0, x*1, x/1, and the mirrored forms 0+x and 1*x
		if rok {
			if (ins.Op == OpFAdd || ins.Op == OpFSub) && r.Value == 0 {
				return ins.Operands[0]
			}
			if (ins.Op == OpFMul || ins.Op == OpFDiv) && r.Value == 1 {
				return ins.Operands[0]
			}
		}
		if lok {
			if ins.Op == OpFAdd && l.Value == 0 {
				return ins.Operands[1]
			}
			if ins.Op == OpFMul && l.Value == 1 {
				return ins.Operands[1]
			}
		}
	case OpFCmp:
		l, lok := ins.Operands[0].(*ConstFloat)
		r, rok := ins.Operands[1].(*ConstFloat)
		if lok && rok {
			if foldCompare(ins.Pred, l.Value, r.Value) {
				return NewConstInt(I1Type, 1)
			}
			return NewConstInt(I1Type, 0)
		}
	case OpAnd, OpOr:
		l, lok := ins.Operands[0].(*ConstInt)
		r, rok := ins.Operands[1].(*ConstInt)
		if lok && rok {
			if ins.Op == OpAnd {
				return NewConstInt(I1Type, l.Value&r.Value)
			}
			return NewConstInt(I1Type, l.Value|r.Value)
		}
	}
	return nil
}

func foldArith(op Opcode, l, r float64) float64 {
	switch op {
	case OpFAdd:
		return l + r
	case OpFSub:
		return l - r
	case OpFMul:
		return l * r
	default:
		return l / r
	}
}

func foldCompare(pred Predicate, l, r float64) bool {
	switch pred {
	case PredOLT:
		return l < r
	case PredOLE:
		return l <= r
	case PredOEQ:
		return l == r
	case PredONE:
		return l != r
	case PredOGT:
		return l > r
	case PredOGE:
		return l >= r
	default:
		return false
	}
}

// Reassociate canonicalizes commutative expressions: constants move to
// the right-hand side so later folding sees them together.
type Reassociate struct{}

func (Reassociate) Name() string { return "reassociate" }

func (Reassociate) Run(f *Function) bool {
	changed := false
	for _, blk := range f.Blocks {
		for _, ins := range blk.Instructions {
			if ins.Op != OpFAdd && ins.Op != OpFMul {
				continue
			}
			_, lok := ins.Operands[0].(*ConstFloat)
			_, rok := ins.Operands[1].(*ConstFloat)
			if lok && !rok {
				ins.Operands[0], ins.Operands[1] = ins.Operands[1], ins.Operands[0]
				changed = true
			}
		}
	}
	return changed
}

// GVN eliminates common subexpressions: a pure instruction identical in
// opcode, predicate, and operands to an earlier one in the same block is
// replaced by the earlier value.
type GVN struct{}

func (GVN) Name() string { return "gvn" }

type gvnKey struct {
	op   Opcode
	pred Predicate
	l, r string
}

// valueNumber identifies an operand for CSE: constants by value, other
// values by identity.
func valueNumber(v Value) string {
	switch c := v.(type) {
	case *ConstFloat:
		return "f" + strconv.FormatFloat(c.Value, 'g', -1, 64)
	case *ConstInt:
		return "i" + strconv.FormatInt(c.Value, 10)
	default:
		return fmt.Sprintf("%p", v)
	}
}

func (GVN) Run(f *Function) bool {
	changed := false
	for _, blk := range f.Blocks {
		seen := make(map[gvnKey]*Instruction)
		for _, ins := range blk.Instructions {
			if !pure(ins) {
				continue
			}
			key := gvnKey{op: ins.Op, pred: ins.Pred, l: valueNumber(ins.Operands[0])}
			if len(ins.Operands) > 1 {
				key.r = valueNumber(ins.Operands[1])
			}
			if prev, ok := seen[key]; ok {
				replaceUses(f, ins, prev)
				changed = true
				continue
			}
			seen[key] = ins
		}
	}
	return changed
}

// SimplifyCFG removes dead instructions: pure instructions, loads, and
// allocas that nothing references, and stores into allocas that nothing
// loads from, repeating until no more can be removed so the allocas behind
// such stores become dead too. Blocks and branches are left unchanged.
type SimplifyCFG struct{}

func (SimplifyCFG) Name() string { return "simplifycfg" }

func (SimplifyCFG) Run(f *Function) bool {
	changed := false
	for again := true; again; {
		again = false
		for _, blk := range f.Blocks {
			kept := blk.Instructions[:0]
			for _, ins := range blk.Instructions {
				if removable(f, ins) {
					again = true
					changed = true
					continue
				}
				kept = append(kept, ins)
			}
			blk.Instructions = kept
		}
	}
	return changed
}

func removable(f *Function, ins *Instruction) bool {
	switch {
	case pure(ins) || ins.Op == OpLoad || ins.Op == OpAlloca:
		return !used(f, ins)
	case ins.Op == OpStore:
		// a store into an alloca nothing loads from is dead
		if target, ok := ins.Operands[1].(*Instruction); ok && target.Op == OpAlloca {
			return !loadedFrom(f, target)
		}
	}
	return false
}

func loadedFrom(f *Function, alloca *Instruction) bool {
	for _, blk := range f.Blocks {
		for _, ins := range blk.Instructions {
			if ins.Op == OpLoad && ins.Operands[0] == alloca {
				return true
			}
		}
	}
	return false
}

// LICM hoists loop-invariant pure instructions out of the loop body into
// the entry block.
type LICM struct{}

func (LICM) Name() string { return "licm" }

func (LICM) Run(f *Function) bool {
	entry := blockByName(f, "entry")
	body := blockByName(f, "for.body")
	if entry == nil || body == nil || len(entry.Instructions) == 0 {
		return false
	}

	invariant := make(map[Value]bool)
	for _, a := range f.Args {
		invariant[a] = true
	}
	for _, ins := range entry.Instructions {
		invariant[ins] = true
	}

	changed := false
	kept := body.Instructions[:0]
	for _, ins := range body.Instructions {
		if pure(ins) && operandsInvariant(ins, invariant) {
			// insert before entry's terminator
			term := entry.Instructions[len(entry.Instructions)-1]
			entry.Instructions[len(entry.Instructions)-1] = ins
			entry.Instructions = append(entry.Instructions, term)
			invariant[ins] = true
			changed = true
			continue
		}
		kept = append(kept, ins)
	}
	body.Instructions = kept
	return changed
}

func operandsInvariant(ins *Instruction, invariant map[Value]bool) bool {
	for _, op := range ins.Operands {
		switch op.(type) {
		case *ConstFloat, *ConstInt:
			continue
		}
		if !invariant[op] {
			return false
		}
	}
	return true
}

func blockByName(f *Function, name string) *Block {
	for _, blk := range f.Blocks {
		if blk.Name == name {
			return blk
		}
	}
	return nil
}
