package skills

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/history"
	lua "github.com/yuin/gopher-lua"
)

// ScriptTimeout bounds how long an unlock script may run.
const ScriptTimeout = 100 * time.Millisecond

// Evaluate reports whether rule is met. all is the full history including
// rec, the encounter that just finished. Every condition set on the rule
// must hold. An empty rule never matches. A script that fails to compile or
// run leaves the rule unmet and is returned as the error.
func Evaluate(rule *content.UnlockRule, all []history.Record, rec history.Record) (bool, error) {
	if rule.IsEmpty() {
		return false, nil
	}
	stats := history.Summarize(all)

	if rule.MinEncounters > 0 && stats.Total < rule.MinEncounters {
		return false, nil
	}
	if rule.MinPeaceful > 0 && stats.ByResult["peaceful"] < rule.MinPeaceful {
		return false, nil
	}
	if rule.Result != "" && rec.Result != rule.Result {
		return false, nil
	}
	if rule.Zone != "" && rec.ZoneID != rule.Zone {
		return false, nil
	}
	if rule.Weather != "" && rec.Weather != rule.Weather {
		return false, nil
	}
	if rule.TimePhase != "" && rec.TimePhase != rule.TimePhase {
		return false, nil
	}
	if rule.Action != "" {
		if rule.MinActionUses > 0 {
			if stats.ByAction[rule.Action] < rule.MinActionUses {
				return false, nil
			}
		} else if !slices.Contains(rec.Actions, rule.Action) {
			return false, nil
		}
	}
	if rule.NoHarm && rec.HarmDone {
		return false, nil
	}
	if rule.MinStreak > 0 {
		streak := stats.CurrentStreak
		if rule.NoHarm {
			streak = stats.HarmlessStreak
		}
		if streak < rule.MinStreak {
			return false, nil
		}
	}
	if rule.Script != "" {
		return EvaluateScript(rule.Script, all, rec)
	}
	return true, nil
}

// EvaluateScript runs a Lua unlock predicate. The script sees the global
// tables `history` (every record, oldest first) and `encounter` (the record
// just added) and must return a boolean. A bare expression is accepted in
// place of a chunk with a return statement.
func EvaluateScript(script string, all []history.Record, rec history.Record) (bool, error) {
	L := newSandbox()
	defer L.Close()

	ctx, cancel := context.WithTimeout(context.Background(), ScriptTimeout)
	defer cancel()
	L.SetContext(ctx)

	records := L.NewTable()
	for _, r := range all {
		records.Append(recordTable(L, r))
	}
	L.SetGlobal("history", records)
	L.SetGlobal("encounter", recordTable(L, rec))

	fn, err := compile(L, script)
	if err != nil {
		return false, err
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return false, fmt.Errorf("unlock script failed: %w", err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	return lua.LVAsBool(ret), nil
}

// CheckScript compiles a script without running it.
func CheckScript(script string) error {
	L := newSandbox()
	defer L.Close()
	_, err := compile(L, script)
	return err
}

// compile accepts either a bare expression or a chunk that returns.
func compile(L *lua.LState, script string) (*lua.LFunction, error) {
	if fn, err := L.LoadString("return " + script); err == nil {
		return fn, nil
	}
	fn, err := L.LoadString(script)
	if err != nil {
		return nil, fmt.Errorf("failed to compile unlock script: %w", err)
	}
	return fn, nil
}

// newSandbox opens the safe subset of the standard library and removes
// anything that can load code or break determinism.
func newSandbox() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "print",
	} {
		L.SetGlobal(name, lua.LNil)
	}
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("random", lua.LNil)
		tbl.RawSetString("randomseed", lua.LNil)
	}
	return L
}

func recordTable(L *lua.LState, r history.Record) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(r.ID))
	t.RawSetString("zone", lua.LString(r.ZoneID))
	t.RawSetString("result", lua.LString(r.Result))
	t.RawSetString("weather", lua.LString(r.Weather))
	t.RawSetString("time_phase", lua.LString(r.TimePhase))
	t.RawSetString("day", lua.LNumber(r.Day))
	t.RawSetString("turns", lua.LNumber(r.Turns))
	t.RawSetString("harm_done", lua.LBool(r.HarmDone))

	actions := L.NewTable()
	for _, a := range r.Actions {
		actions.Append(lua.LString(a))
	}
	t.RawSetString("actions", actions)
	return t
}
