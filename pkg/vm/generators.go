package vm

import "github.com/kristofer/lumen/pkg/object"

// startGenerator implements calling a generator function (spec.md §4.4,
// §9): rather than pushing a CallFrame and running the body, it snapshots
// the not-yet-started activation (just the closure and its arguments,
// IP 0) into a Generator object in the Start state and leaves that on the
// stack in place of the call.
func (vm *VM) startGenerator(closureID object.ObjectId, argCount int) error {
	base := vm.stackTop - argCount - 1
	slots := make([]object.Value, argCount+1)
	copy(slots, vm.stack[base:vm.stackTop])

	gen := object.NewGenerator(object.FrameSnapshot{
		Closure: closureID,
		IP:      0,
		Slots:   slots,
	}, vm.runningGenerator)
	genID := vm.heap.Allocate(gen)

	vm.stackTop = base
	vm.push(object.Obj(genID))
	return nil
}

// yield suspends the currently running generator at an OpYield
// instruction, snapshotting the frame exactly as startGenerator does for
// an unstarted one (spec.md §4.4: "snapshotting the current CallFrame
// ... into the Generator object and returning the yielded value to the
// caller"). Open upvalues rooted in the frame are closed rather than
// carried as live stack references, since the frame's slots move to a
// fresh stack base on resume.
func (vm *VM) yield(v object.Value) (object.Value, bool) {
	genID := vm.runningGenerator
	if genID == object.NilId {
		return v, false
	}
	gen := vm.heap.Get(genID).(*object.GeneratorObject)
	frame := vm.currentFrame()

	vm.closeUpvalues(frame.slots)
	slots := make([]object.Value, vm.stackTop-frame.slots)
	copy(slots, vm.stack[frame.slots:vm.stackTop])

	gen.Frame = object.FrameSnapshot{
		Closure: frame.Closure,
		IP:      frame.ip,
		Slots:   slots,
	}
	gen.State = object.GenYield
	gen.Latest = v

	vm.frameCount--
	vm.stackTop = frame.slots
	return v, true
}

// resume restarts a suspended generator's frame from its snapshot, pushes
// sent as the result of the yield expression that suspended it, and
// drives it forward until the next yield or its return (spec.md §4.4:
// "resume(value) restores the frame and pushes value as the result of
// the yielding expression").
func (vm *VM) resume(genID object.ObjectId, sent object.Value) (object.Value, error) {
	gen := vm.heap.Get(genID).(*object.GeneratorObject)
	switch gen.State {
	case object.GenReturn, object.GenError:
		return object.Nil, vm.runtimeError("Cannot resume a finished generator.")
	}
	if vm.frameCount == framesMax {
		return object.Nil, vm.runtimeError("Stack overflow.")
	}

	base := vm.stackTop
	for _, s := range gen.Frame.Slots {
		vm.push(s)
	}
	vm.frames[vm.frameCount] = CallFrame{
		Closure: gen.Frame.Closure,
		ip:      gen.Frame.IP,
		slots:   base,
	}
	vm.frameCount++
	stopDepth := vm.frameCount - 1

	// The Start state has never executed OpYield, so there is no pending
	// yield expression to resume into; sent is simply discarded (matching
	// spec.md §9: the first resume after creation just starts the body).
	if gen.State != object.GenStart {
		vm.push(sent)
	}

	prevRunning := vm.runningGenerator
	vm.runningGenerator = genID
	gen.State = object.GenResume
	gen.Received = sent

	result, err := vm.run(stopDepth)
	vm.runningGenerator = prevRunning

	if err != nil {
		gen.State = object.GenError
		return object.Nil, err
	}
	if gen.State == object.GenYield {
		return result, nil
	}
	gen.State = object.GenReturn
	gen.Latest = result
	return result, nil
}

func nativeGeneratorResume(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
	vm := vmb.(*VM)
	sent := object.Nil
	if len(args) > 0 {
		sent = args[0]
	}
	return vm.resume(receiver.AsObject(), sent)
}

func nativeGeneratorDone(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
	vm := vmb.(*VM)
	gen := vm.heap.Get(receiver.AsObject()).(*object.GeneratorObject)
	return object.Bool(gen.State == object.GenReturn || gen.State == object.GenError), nil
}

var generatorMethods = map[string]object.NativeMethodFn{
	"resume":   nativeGeneratorResume,
	"done":     nativeGeneratorDone,
	"toString": generatorToString,
}

func generatorToString(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
	vm := vmb.(*VM)
	return object.Obj(vm.heap.CopyString("<generator>")), nil
}
