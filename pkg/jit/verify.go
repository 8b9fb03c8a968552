// pkg/jit/verify.go
package jit

import (
	"fmt"

	errors "gopkg.in/src-d/go-errors.v1"
)

// ErrVerify is returned when a module fails verification; the message
// carries the verifier's diagnostic.
var ErrVerify = errors.NewKind("module verification failed: %s")

// Verify checks every function of the module: blocks must end in exactly
// one terminator, values must be defined before use in block layout order,
// and operands must type-check per opcode.
func Verify(m *Module) error {
	for _, f := range m.Funcs {
		if err := verifyFunction(f); err != nil {
			return ErrVerify.New(fmt.Sprintf("function %s: %v", f.Name, err))
		}
	}
	return nil
}

func verifyFunction(f *Function) error {
	if len(f.Blocks) == 0 {
		return fmt.Errorf("no basic blocks")
	}

	defined := make(map[Value]bool)
	for _, a := range f.Args {
		defined[a] = true
	}

	for _, blk := range f.Blocks {
		if len(blk.Instructions) == 0 {
			return fmt.Errorf("block %s: empty block", blk.Name)
		}
		for idx, ins := range blk.Instructions {
			last := idx == len(blk.Instructions)-1
			if ins.Terminator() != last {
				if last {
					return fmt.Errorf("block %s: missing terminator", blk.Name)
				}
				return fmt.Errorf("block %s: terminator in mid-block", blk.Name)
			}
			for _, op := range ins.Operands {
				if !operandDefined(op, defined) {
					return fmt.Errorf("block %s: operand %s used before definition",
						blk.Name, op.Ref())
				}
			}
			if err := checkTypes(ins); err != nil {
				return fmt.Errorf("block %s: %s: %v", blk.Name, ins, err)
			}
			defined[ins] = true
		}
	}
	return nil
}

func operandDefined(v Value, defined map[Value]bool) bool {
	switch v.(type) {
	case *ConstFloat, *ConstInt:
		return true
	default:
		return defined[v]
	}
}

func checkTypes(ins *Instruction) error {
	switch ins.Op {
	case OpAlloca:
		return nil
	case OpLoad:
		ptr := ins.Operands[0].Type()
		if ptr.Kind != KindPointer || !ptr.Elem.Equal(ins.typ) {
			return fmt.Errorf("load type mismatch")
		}
	case OpStore:
		val, ptr := ins.Operands[0].Type(), ins.Operands[1].Type()
		if ptr.Kind != KindPointer || !ptr.Elem.Equal(val) {
			return fmt.Errorf("store type mismatch")
		}
	case OpGEP:
		if ins.Operands[0].Type().Kind != KindPointer {
			return fmt.Errorf("getelementptr base is not a pointer")
		}
		if !ins.Operands[1].Type().Integer() {
			return fmt.Errorf("getelementptr index is not an integer")
		}
	case OpBitcast:
		if ins.Operands[0].Type().Kind != KindPointer || ins.typ.Kind != KindPointer {
			return fmt.Errorf("bitcast requires pointer operands")
		}
	case OpFAdd, OpFSub, OpFMul, OpFDiv:
		if !sameType(ins) || !ins.Operands[0].Type().Float() {
			return fmt.Errorf("%s requires matching float operands", ins.Op)
		}
	case OpFCmp:
		if !sameType(ins) || !ins.Operands[0].Type().Float() {
			return fmt.Errorf("fcmp requires matching float operands")
		}
	case OpAnd, OpOr:
		if ins.Operands[0].Type().Kind != KindI1 || ins.Operands[1].Type().Kind != KindI1 {
			return fmt.Errorf("%s requires i1 operands", ins.Op)
		}
	case OpAdd:
		if !sameType(ins) || !ins.Operands[0].Type().Integer() {
			return fmt.Errorf("add requires matching integer operands")
		}
	case OpICmp:
		if !sameType(ins) || !ins.Operands[0].Type().Integer() {
			return fmt.Errorf("icmp requires matching integer operands")
		}
	case OpSIToFP:
		if !ins.Operands[0].Type().Integer() || !ins.typ.Float() {
			return fmt.Errorf("sitofp requires integer to float")
		}
	case OpFPExt:
		if !ins.Operands[0].Type().Float() || !ins.typ.Float() {
			return fmt.Errorf("fpext requires float operands")
		}
	case OpUIToFP:
		if !ins.Operands[0].Type().Integer() || !ins.typ.Float() {
			return fmt.Errorf("uitofp requires integer to float")
		}
	case OpCondBr:
		if ins.Operands[0].Type().Kind != KindI1 {
			return fmt.Errorf("conditional branch requires an i1 condition")
		}
		if len(ins.Blocks) != 2 {
			return fmt.Errorf("conditional branch requires two targets")
		}
	case OpBr:
		if len(ins.Blocks) != 1 {
			return fmt.Errorf("branch requires one target")
		}
	case OpRet:
		return nil
	default:
		return fmt.Errorf("unknown opcode")
	}
	return nil
}

func sameType(ins *Instruction) bool {
	return ins.Operands[0].Type().Equal(ins.Operands[1].Type())
}
