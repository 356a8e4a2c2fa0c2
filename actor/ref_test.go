package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPath(t *testing.T) {
	t.Run("name", func(t *testing.T) {
		assert.Equal(t, "task-7", Path("/user/manager/task-7").Name())
		assert.Equal(t, "user", Path("/user").Name())
		assert.Equal(t, "bare", Path("bare").Name())
	})

	t.Run("parent", func(t *testing.T) {
		assert.Equal(t, Path("/user/manager"), Path("/user/manager/task-7").Parent())
		assert.Equal(t, Path(""), Path("/user").Parent())
		assert.Equal(t, Path(""), Path("bare").Parent())
	})

	t.Run("child", func(t *testing.T) {
		assert.Equal(t, Path("/user/manager"), Path("/user").Child("manager"))
		assert.Equal(t, Path("/user/manager/task-7"), Path("/user").Child("manager").Child("task-7"))
	})

	t.Run("round trip", func(t *testing.T) {
		p := Path("/user").Child("a").Child("b")
		assert.Equal(t, "b", p.Name())
		assert.Equal(t, Path("/user/a"), p.Parent())
	})
}

func TestRef(t *testing.T) {
	t.Run("is zero", func(t *testing.T) {
		assert.True(t, Ref{}.IsZero())
		assert.False(t, Ref{Path: "/user/a", UID: "u1", SystemID: "s1"}.IsZero())
	})

	t.Run("same path different incarnation", func(t *testing.T) {
		a := Ref{Path: "/user/a", UID: "u1", SystemID: "s1"}
		b := Ref{Path: "/user/a", UID: "u2", SystemID: "s1"}
		assert.NotEqual(t, a, b)
	})

	t.Run("string is the path", func(t *testing.T) {
		r := Ref{Path: "/user/a", UID: "u1", SystemID: "s1"}
		assert.Equal(t, "/user/a", r.String())
	})
}
