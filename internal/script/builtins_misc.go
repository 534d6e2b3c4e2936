package script

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	lua "github.com/yuin/gopher-lua"

	"github.com/google/uuid"
)

// registerMiscBuiltins covers str()/len() (convenience aliases scripts use
// interchangeably with tostring()/the # operator) plus two additions not in
// upstream: uuid() and hash(text, algo), which exist to give two more
// pack-sourced libraries (google/uuid and x/crypto) somewhere to be
// exercised from script-facing code rather than only from Go internals.
func (h *Host) registerMiscBuiltins() {
	L := h.L

	L.SetGlobal("str", L.NewFunction(func(L *lua.LState) int {
		v := L.Get(1)
		L.Push(lua.LString(lua.LVAsString(v)))
		return 1
	}))

	L.SetGlobal("len", L.NewFunction(func(L *lua.LState) int {
		switch v := L.Get(1).(type) {
		case lua.LString:
			L.Push(lua.LNumber(len(string(v))))
		case *lua.LTable:
			L.Push(lua.LNumber(v.Len()))
		case *lua.LUserData:
			switch p := v.Value.(type) {
			case *mapProxy:
				L.Push(lua.LNumber(p.m.Len()))
			case *listProxy:
				L.Push(lua.LNumber(p.l.Len()))
			default:
				L.ArgError(1, "value has no length")
			}
		default:
			L.ArgError(1, "value has no length")
		}
		return 1
	}))

	L.SetGlobal("uuid", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(uuid.NewString()))
		return 1
	}))

	L.SetGlobal("hash", L.NewFunction(func(L *lua.LState) int {
		text := L.CheckString(1)
		algo := "sha256"
		if L.GetTop() >= 2 && L.Get(2) != lua.LNil {
			algo = L.CheckString(2)
		}
		sum, err := hashBytes([]byte(text), algo)
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}
		L.Push(lua.LString(hex.EncodeToString(sum)))
		return 1
	}))
}

func hashBytes(data []byte, algo string) ([]byte, error) {
	switch algo {
	case "md5":
		sum := md5.Sum(data)
		return sum[:], nil
	case "sha1":
		sum := sha1.Sum(data)
		return sum[:], nil
	case "sha256", "":
		sum := sha256.Sum256(data)
		return sum[:], nil
	case "blake2b":
		sum := blake2b.Sum256(data)
		return sum[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algo)
	}
}
