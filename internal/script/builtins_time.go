package script

import (
	"strconv"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Every timestamp builtin here works in whole seconds since the Unix epoch,
// carried as a Go int64 (exposed to Lua as a float, which is exact up to
// 2^53 seconds — comfortably beyond any date these scripts will see). The
// source this is ported from stored epoch seconds in a 32-bit field, which
// overflows in 2038; int64 avoids that bug outright rather than reproducing it.

// guessTSLayouts is tried in order until one parses. Entries whose layout
// has no year are annotated so the current year can be spliced in first.
type guessLayout struct {
	layout   string
	needYear bool
}

var guessTSLayouts = []guessLayout{
	{time.RFC3339, false},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02", false},
	{"02/Jan/2006:15:04:05 -0700", false},
	{"Jan 2 15:04:05", true},
	{"20060102T150405", false},
	{"200601021504", false},
	{"02.01.2006 15:04:05", false},
	{"02.01.2006", false},
	{"2006-01-02-15.04.05.000000", false},
	{"02-01-2006", false},
	{"02-01-2006 15:04:05", false},
	{"06/01/02 15:04:05", false},
	{"[Mon Jan 02 15:04:05 2006]", false},
}

func (h *Host) registerTimeBuiltins() {
	L := h.L

	L.SetGlobal("now", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(time.Now().Unix()))
		return 1
	}))

	L.SetGlobal("parse_ts", L.NewFunction(func(L *lua.LState) int {
		text := L.CheckString(1)
		layout := time.RFC3339
		if L.GetTop() >= 2 && L.Get(2) != lua.LNil {
			layout = goLayoutFromStrftime(L.CheckString(2))
		}
		t, err := time.Parse(layout, text)
		if err != nil {
			L.RaiseError("failed to parse timestamp %q: %v", text, err)
			return 0
		}
		L.Push(lua.LNumber(t.Unix()))
		return 1
	}))

	L.SetGlobal("format_ts", L.NewFunction(func(L *lua.LState) int {
		epoch := L.CheckInt64(1)
		layout := time.RFC3339
		if L.GetTop() >= 2 && L.Get(2) != lua.LNil {
			layout = goLayoutFromStrftime(L.CheckString(2))
		}
		t := time.Unix(epoch, 0).UTC()
		L.Push(lua.LString(t.Format(layout)))
		return 1
	}))

	L.SetGlobal("ts_diff", L.NewFunction(func(L *lua.LState) int {
		a := L.CheckInt64(1)
		b := L.CheckInt64(2)
		L.Push(lua.LNumber(a - b))
		return 1
	}))

	L.SetGlobal("ts_add", L.NewFunction(func(L *lua.LState) int {
		epoch := L.CheckInt64(1)
		delta := L.CheckInt64(2)
		L.Push(lua.LNumber(epoch + delta))
		return 1
	}))

	L.SetGlobal("guess_ts", L.NewFunction(func(L *lua.LState) int {
		text := strings.TrimSpace(L.CheckString(1))
		epoch, ok := guessTimestamp(text, time.Now())
		if !ok {
			L.RaiseError("could not guess timestamp format for %q", text)
			return 0
		}
		L.Push(lua.LNumber(epoch))
		return 1
	}))
}

// guessTimestamp tries each layout in guessTSLayouts in order, splicing the
// current year into year-less layouts (syslog-style "Jan 2 15:04:05")
// before parsing, plus a couple of hand-rolled cases the layout table can't
// express cleanly: Zookeeper's comma-as-decimal-point millis, and
// nanosecond-precision input that needs truncating to something time.Parse
// accepts.
func guessTimestamp(text string, now time.Time) (int64, bool) {
	if zk := strings.Replace(text, ",", ".", 1); zk != text {
		for _, gl := range guessTSLayouts {
			if t, err := time.Parse(gl.layout, zk); err == nil {
				return t.Unix(), true
			}
		}
	}

	if trimmed, changed := truncateToMicros(text); changed {
		text = trimmed
	}

	for _, gl := range guessTSLayouts {
		candidate := text
		if gl.needYear {
			candidate = strconv.Itoa(now.Year()) + " " + text
			if t, err := time.Parse("2006 "+gl.layout, candidate); err == nil {
				return t.Unix(), true
			}
			continue
		}
		if t, err := time.Parse(gl.layout, candidate); err == nil {
			return t.Unix(), true
		}
	}
	return 0, false
}

// truncateToMicros trims a fractional-seconds component down to 6 digits so
// nanosecond-precision input doesn't fail every layout in the table purely
// on fraction length.
func truncateToMicros(text string) (string, bool) {
	dot := strings.IndexByte(text, '.')
	if dot < 0 {
		return text, false
	}
	end := dot + 1
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	if end-(dot+1) <= 6 {
		return text, false
	}
	return text[:dot+7] + text[end:], true
}

// goLayoutFromStrftime accepts either an already-Go reference-time layout
// (recognized by containing a digit from the reference date) or a handful
// of common strftime directives, translating the latter so scripts written
// against strftime-style format strings still work.
func goLayoutFromStrftime(layout string) string {
	if strings.ContainsAny(layout, "0123456789") {
		return layout
	}
	replacer := strings.NewReplacer(
		"%Y", "2006",
		"%y", "06",
		"%m", "01",
		"%d", "02",
		"%H", "15",
		"%M", "04",
		"%S", "05",
		"%z", "-0700",
		"%a", "Mon",
		"%b", "Jan",
	)
	return replacer.Replace(layout)
}
