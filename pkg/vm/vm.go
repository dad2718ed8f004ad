// Package vm implements Lumen's bytecode interpreter: a stack-based
// dispatch loop over object.Chunk, call frames with closures and
// upvalues, property access with interceptor hooks, superclass/trait
// method dispatch, exception propagation, generators, and promises
// (spec.md §4.4).
//
// This keeps the teacher (kristofer-smog)'s pkg/vm package shape — a VM
// struct driving a dispatch loop, a CallFrame stack, a disassembler — but
// the frame/value model and every opcode handler are rewritten for
// spec.md's stack machine instead of the teacher's Smalltalk message-send
// interpreter.
package vm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kristofer/lumen/pkg/bytecode"
	"github.com/kristofer/lumen/pkg/gc"
	"github.com/kristofer/lumen/pkg/object"
)

const (
	framesMax = 256
	// stackMax bounds the value stack at framesMax * a generous per-frame
	// slot budget (spec.md §5: "Value stack (fixed capacity, e.g. 256 ×
	// frame limit)").
	stackMax = framesMax * 64
)

// CallFrame is one activation record on the VM's call stack (spec.md
// §3.2/§5): the running closure, its instruction pointer, the base slot
// of its locals within the shared value stack, and the handler stack
// active try blocks have pushed (spec.md §4.4).
type CallFrame struct {
	Closure  object.ObjectId
	ip       int
	slots    int
	handlers []handlerEntry
}

type handlerEntry struct {
	ip         int // catch-jump target, relative to this frame's chunk
	stackDepth int // value-stack depth to restore to on unwind
}

// VM executes one compiled program. It owns the heap, the live value
// stack, open upvalues, the global/namespace/class registries, and the
// collector (spec.md §5's "State per VM").
type VM struct {
	heap *object.Heap
	gc   *gc.Collector
	log  *zap.Logger

	stack    []object.Value
	stackTop int

	frames     []CallFrame
	frameCount int

	openUpvalues []object.ObjectId // stack-slot-sorted, nearest-first

	globals map[string]object.Value

	namespaceStack []object.ObjectId
	namespaces     map[string]object.ObjectId

	classes map[string]object.ObjectId

	// objectClass is the root Object class every user class implicitly
	// inherits from (spec.md §4 supplement, original_source/std/lang.c).
	objectClass object.ObjectId

	initString string

	runningGenerator object.ObjectId

	// pendingException holds the value being propagated while
	// unwindToHandler searches for a catch target (spec.md §4.4: an
	// Exception is an ordinary Instance of the built-in Exception class,
	// not a distinct non-object kind).
	pendingException *object.Value
}

// New creates a VM over heap, wired to collector for allocation-pressure
// collection triggers (spec.md §4.5) and logger for structured zap
// diagnostics.
func New(heap *object.Heap, collector *gc.Collector, log *zap.Logger) *VM {
	vm := &VM{
		heap:       heap,
		gc:         collector,
		log:        log,
		stack:      make([]object.Value, stackMax),
		frames:     make([]CallFrame, framesMax),
		globals:    make(map[string]object.Value),
		namespaces: make(map[string]object.ObjectId),
		classes:    make(map[string]object.ObjectId),
		initString: "init",
	}
	collector.SetRootProvider(vm)
	registerNatives(vm)
	return vm
}

// Heap satisfies object.VMBridge so native function/method closures can
// allocate without pkg/object importing pkg/vm.
func (vm *VM) Heap() *object.Heap { return vm.heap }

// ThrowError satisfies object.VMBridge (see Heap's doc comment).
func (vm *VM) ThrowError(class, format string, args ...interface{}) error {
	return vm.runtimeError(format, args...)
}

func (vm *VM) push(v object.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() object.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) object.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// Interpret loads a compiled root function as a closure and runs it to
// completion (spec.md §4.4's "data flow" entry point).
func (vm *VM) Interpret(fn *object.FunctionObject, fnID object.ObjectId) (object.Value, error) {
	vm.resetStack()
	closure := object.NewClosure(fnID, fn.UpvalueCount)
	closureID := vm.heap.Allocate(closure)
	vm.push(object.Obj(closureID))
	if err := vm.callClosure(closureID, closure, 0); err != nil {
		return object.Nil, err
	}
	result, err := vm.run(0)
	if err != nil {
		return object.Nil, err
	}
	vm.pop()
	return result, nil
}

func chunkOf(heap *object.Heap, closureID object.ObjectId) *object.Chunk {
	closure := heap.Get(closureID).(*object.ClosureObject)
	fn := heap.Get(closure.Function).(*object.FunctionObject)
	return fn.Chunk
}

func (vm *VM) currentFrame() *CallFrame { return &vm.frames[vm.frameCount-1] }

func (vm *VM) readByte(frame *CallFrame) byte {
	chunk := chunkOf(vm.heap, frame.Closure)
	b := chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readShort(frame *CallFrame) uint16 {
	hi := vm.readByte(frame)
	lo := vm.readByte(frame)
	return bytecode.DecodeJumpOffset(hi, lo)
}

func (vm *VM) readConstant(frame *CallFrame) object.Value {
	chunk := chunkOf(vm.heap, frame.Closure)
	return chunk.Constants[vm.readByte(frame)]
}

func (vm *VM) readIdentifier(frame *CallFrame) string {
	chunk := chunkOf(vm.heap, frame.Closure)
	return chunk.Identifiers[vm.readByte(frame)]
}

// run is the dispatch loop (spec.md §4.4): "a large switch over the
// opcode byte". Every fallible opcode handler returns an error with one
// contract: nil means "either it succeeded, or it threw and the
// exception found a handler" (in which case frame/ip were already
// updated in place) — the loop always re-reads vm.currentFrame() at the
// top of its next iteration, so neither case needs special-case frame
// bookkeeping here. A non-nil error is unhandled and ends Interpret.
func (vm *VM) run(stopDepth int) (object.Value, error) {
	for {
		if vm.frameCount <= stopDepth {
			return object.Nil, nil
		}
		if vm.gc != nil {
			vm.gc.CollectIfNeeded(object.Eden)
		}
		frame := vm.currentFrame()
		chunk := chunkOf(vm.heap, frame.Closure)

		if frame.ip >= len(chunk.Code) {
			return object.Nil, fmt.Errorf("frame ran off the end of its chunk")
		}

		op := bytecode.Opcode(vm.readByte(frame))
		var err error

		switch op {
		case bytecode.OpConstant:
			vm.push(vm.readConstant(frame))
		case bytecode.OpNil:
			vm.push(object.Nil)
		case bytecode.OpTrue:
			vm.push(object.True)
		case bytecode.OpFalse:
			vm.push(object.False)

		case bytecode.OpPop:
			vm.pop()
		case bytecode.OpDup:
			vm.push(vm.peek(0))

		case bytecode.OpGetLocal:
			slot := int(vm.readByte(frame))
			vm.push(vm.stack[frame.slots+slot])
		case bytecode.OpSetLocal:
			slot := int(vm.readByte(frame))
			vm.stack[frame.slots+slot] = vm.peek(0)

		case bytecode.OpGetGlobal:
			name := vm.readIdentifier(frame)
			v, ok := vm.globals[name]
			if !ok {
				err = vm.runtimeError("Undefined variable '%s'.", name)
				break
			}
			vm.push(v)
		case bytecode.OpSetGlobal:
			name := vm.readIdentifier(frame)
			if _, ok := vm.globals[name]; !ok {
				err = vm.runtimeError("Undefined variable '%s'.", name)
				break
			}
			vm.globals[name] = vm.peek(0)
		case bytecode.OpDefineGlobal:
			name := vm.readIdentifier(frame)
			vm.globals[name] = vm.pop()

		case bytecode.OpGetUpvalue:
			slot := int(vm.readByte(frame))
			closure := vm.heap.Get(frame.Closure).(*object.ClosureObject)
			up := vm.heap.Get(closure.Upvalues[slot]).(*object.UpvalueObject)
			if up.IsClosed {
				vm.push(up.Closed)
			} else {
				vm.push(vm.stack[up.Location])
			}
		case bytecode.OpSetUpvalue:
			slot := int(vm.readByte(frame))
			closure := vm.heap.Get(frame.Closure).(*object.ClosureObject)
			upID := closure.Upvalues[slot]
			up := vm.heap.Get(upID).(*object.UpvalueObject)
			if up.IsClosed {
				up.Closed = vm.peek(0)
				vm.heap.WriteBarrier(upID, valueObjectID(up.Closed))
			} else {
				vm.stack[up.Location] = vm.peek(0)
			}
		case bytecode.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case bytecode.OpGetProperty:
			err = vm.getProperty(vm.readIdentifier(frame))
		case bytecode.OpSetProperty:
			err = vm.setProperty(vm.readIdentifier(frame))
		case bytecode.OpGetSuper:
			name := vm.readIdentifier(frame)
			superclass := vm.pop().AsObject()
			receiver := vm.pop()
			err = vm.bindSuperMethod(receiver, superclass, name)

		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(object.Bool(object.ValuesEqual(a, b)))
		case bytecode.OpGreater, bytecode.OpLess:
			err = vm.compare(op)
		case bytecode.OpAdd, bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide:
			err = vm.arithmetic(op)
		case bytecode.OpNot:
			vm.push(object.Bool(vm.pop().IsFalsey()))
		case bytecode.OpNegate:
			if !vm.peek(0).IsNumber() {
				err = vm.runtimeError("Operand must be a number.")
				break
			}
			v := vm.pop()
			if v.IsInt() {
				vm.push(object.Int(-v.AsInt()))
			} else {
				vm.push(object.Float(-v.AsFloat()))
			}

		case bytecode.OpJump:
			offset := vm.readShort(frame)
			frame.ip += int(offset)
		case bytecode.OpJumpIfFalse:
			offset := vm.readShort(frame)
			if vm.peek(0).IsFalsey() {
				frame.ip += int(offset)
			}
		case bytecode.OpLoop:
			offset := vm.readShort(frame)
			frame.ip -= int(offset)

		case bytecode.OpSwitchEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(object.Bool(object.ValuesEqual(a, b)))

		case bytecode.OpCall:
			argCount := int(vm.readByte(frame))
			err = vm.callValue(vm.peek(argCount), argCount)
		case bytecode.OpInvoke:
			name := vm.readIdentifier(frame)
			argCount := int(vm.readByte(frame))
			err = vm.invoke(name, argCount)
		case bytecode.OpSuperInvoke:
			name := vm.readIdentifier(frame)
			argCount := int(vm.readByte(frame))
			superclass := vm.pop().AsObject()
			err = vm.invokeFromClass(superclass, name, argCount)

		case bytecode.OpClosure:
			vm.makeClosure(frame)

		case bytecode.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.slots)
			vm.frameCount--
			vm.stackTop = frame.slots
			vm.push(result)
			if vm.frameCount <= stopDepth {
				return result, nil
			}

		case bytecode.OpClass:
			vm.defineClassLike(vm.readIdentifier(frame), object.BehaviorClass)
		case bytecode.OpTrait:
			vm.defineClassLike(vm.readIdentifier(frame), object.BehaviorTrait)
		case bytecode.OpInherit:
			err = vm.inherit()
		case bytecode.OpTraitUse:
			vm.traitUse()
		case bytecode.OpMethod:
			vm.defineMethod(vm.readIdentifier(frame))

		case bytecode.OpArray:
			count := int(vm.readByte(frame))
			elems := make([]object.Value, count)
			copy(elems, vm.stack[vm.stackTop-count:vm.stackTop])
			vm.stackTop -= count
			vm.push(object.Obj(vm.heap.Allocate(object.NewArray(elems))))
		case bytecode.OpDictionary:
			count := int(vm.readByte(frame))
			dict := object.NewDictionary()
			base := vm.stackTop - count*2
			for i := 0; i < count; i++ {
				dict.Set(vm.stack[base+i*2], vm.stack[base+i*2+1], vm.heap)
			}
			vm.stackTop = base
			vm.push(object.Obj(vm.heap.Allocate(dict)))
		case bytecode.OpRange:
			to := vm.pop()
			from := vm.pop()
			if !from.IsInt() || !to.IsInt() {
				err = vm.runtimeError("Range bounds must be integers.")
				break
			}
			vm.push(object.Obj(vm.heap.Allocate(object.NewRange(from.AsInt(), to.AsInt(), true))))
		case bytecode.OpGetIndex:
			err = vm.getIndex()
		case bytecode.OpSetIndex:
			err = vm.setIndex()

		case bytecode.OpNamespace:
			vm.openNamespace(vm.readIdentifier(frame))
		case bytecode.OpPopNamespace:
			vm.namespaceStack = vm.namespaceStack[:len(vm.namespaceStack)-1]
		case bytecode.OpGetNamespaceMember:
			name := vm.readIdentifier(frame)
			nsVal := vm.pop()
			ns := vm.heap.Get(nsVal.AsObject()).(*object.NamespaceObject)
			v, ok := ns.Values[name]
			if !ok {
				err = vm.runtimeError("Undefined namespace member '%s'.", name)
				break
			}
			vm.push(v)
		case bytecode.OpSetNamespaceMember:
			name := vm.readIdentifier(frame)
			nsID := vm.namespaceStack[len(vm.namespaceStack)-1]
			ns := vm.heap.Get(nsID).(*object.NamespaceObject)
			value := vm.pop()
			ns.Values[name] = value
			vm.heap.WriteBarrier(nsID, valueObjectID(value))

		case bytecode.OpThrow:
			err = vm.throwValue(vm.pop())

		case bytecode.OpPushHandler:
			offset := vm.readShort(frame)
			frame.handlers = append(frame.handlers, handlerEntry{
				ip:         frame.ip + int(offset),
				stackDepth: vm.stackTop,
			})
		case bytecode.OpPopHandler:
			frame.handlers = frame.handlers[:len(frame.handlers)-1]

		case bytecode.OpYield:
			v := vm.pop()
			result, suspended := vm.yield(v)
			if suspended {
				return result, nil
			}
		case bytecode.OpAwait:
			var result object.Value
			result, err = vm.await(vm.pop())
			if err == nil {
				vm.push(result)
			}

		default:
			err = vm.runtimeError("Unknown opcode %d.", byte(op))
		}

		if err != nil {
			return object.Nil, err
		}
	}
}

// runtimeError formats a message (spec.md §8's runtime-error set:
// "arity mismatch, type mismatch in operators, undefined property,
// undefined variable, too many constants/locals/upvalues/cases, stack
// overflow, division by zero"), wraps it as an Exception instance, and
// feeds it through the same propagation path a user `throw` takes.
func (vm *VM) runtimeError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	trace := vm.captureStackTrace()
	excID := vm.heap.Allocate(object.NewException(msg, trace))
	return vm.throwValue(object.Obj(excID))
}

func (vm *VM) throwValue(v object.Value) error {
	vm.pendingException = &v
	return vm.unwindToHandler()
}

// unwindToHandler walks the frame stack innermost-first looking for a
// try block's handler (spec.md §4.4). Finding one restores the value
// stack to the depth recorded when the handler was pushed, pushes the
// exception value as the catch clause's bound variable, and resumes
// there. Finding none empties the call stack and turns the exception
// into a Go error that ends Interpret.
func (vm *VM) unwindToHandler() error {
	exc := *vm.pendingException
	for vm.frameCount > 0 {
		f := &vm.frames[vm.frameCount-1]
		if len(f.handlers) > 0 {
			h := f.handlers[len(f.handlers)-1]
			f.handlers = f.handlers[:len(f.handlers)-1]
			vm.stackTop = h.stackDepth
			vm.push(exc)
			f.ip = h.ip
			vm.pendingException = nil
			return nil
		}
		vm.closeUpvalues(f.slots)
		vm.frameCount--
		vm.stackTop = f.slots
	}
	vm.pendingException = nil

	msg := "uncaught exception"
	var trace []string
	if exc.IsObject() {
		switch ex := vm.heap.Get(exc.AsObject()).(type) {
		case *object.ExceptionObject:
			msg = ex.Message
			trace = ex.StackTrace
		case *object.InstanceObject:
			// A user-thrown instance of Exception (or a subclass): its
			// message lives in an ordinary field, not ExceptionObject.Message.
			if s, err := vm.toDisplayString(exc); err == nil {
				msg = s
			}
		}
	}
	return &RuntimeError{Message: msg, StackTrace: trace}
}

func (vm *VM) captureStackTrace() []string {
	trace := make([]string, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		closure := vm.heap.Get(f.Closure).(*object.ClosureObject)
		fn := vm.heap.Get(closure.Function).(*object.FunctionObject)
		name := "<script>"
		if fn.Name != object.NilId {
			name = vm.heap.StringAt(fn.Name)
		}
		line := 0
		if f.ip-1 >= 0 && f.ip-1 < len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[f.ip-1]
		}
		trace = append(trace, fmt.Sprintf("%s:%d", name, line))
	}
	return trace
}
