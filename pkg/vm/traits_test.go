package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraitConflictResolvesLastWins(t *testing.T) {
	machine := newTestVM(t)
	v := run(t, machine, `
		trait Greets {
			hello() { return "hi from Greets"; }
		}
		trait Shouts {
			hello() { return "HI FROM SHOUTS"; }
		}
		class Person with Greets, Shouts {
		}
		return Person().hello();
	`)
	s, err := machine.Stringify(v)
	require.NoError(t, err)
	assert.Equal(t, "HI FROM SHOUTS", s)
}

func TestClassOwnMethodWinsOverTraits(t *testing.T) {
	machine := newTestVM(t)
	v := run(t, machine, `
		trait Greets {
			hello() { return "hi from Greets"; }
		}
		class Person with Greets {
			hello() { return "hi from Person"; }
		}
		return Person().hello();
	`)
	s, err := machine.Stringify(v)
	require.NoError(t, err)
	assert.Equal(t, "hi from Person", s)
}

func TestTraitInterceptorBitPropagatesToClass(t *testing.T) {
	machine := newTestVM(t)
	v := run(t, machine, `
		trait Proxying {
			__undefinedInvoke__(name, args) { return name; }
		}
		class Proxy with Proxying {
		}
		return Proxy().whatever(1, 2);
	`)
	s, err := machine.Stringify(v)
	require.NoError(t, err)
	assert.Equal(t, "whatever", s)
}
