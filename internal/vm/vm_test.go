package vm

import (
	"testing"
)

func TestStringInterningIdentity(t *testing.T) {
	v := New()

	a := v.InternString("hello")
	b := v.InternString("hello")
	c := v.InternString("world")

	if a != b {
		t.Error("same content produced different string objects")
	}
	if a == c {
		t.Error("different content produced the same string object")
	}
}

func TestRegisterModule(t *testing.T) {
	v := New()

	first := v.RegisterModule("mod", "mod.oo")
	second := v.RegisterModule("mod", "elsewhere.oo")

	if first != second {
		t.Error("registering the same name twice created two modules")
	}
	if first.ID == "" {
		t.Error("module has no identity")
	}

	other := v.RegisterModule("other", "other.oo")
	if other.ID == first.ID {
		t.Error("distinct modules share an identity")
	}
}

func TestGlobals(t *testing.T) {
	v := New()
	if v.hasGlobal("print") {
		t.Error("fresh VM has globals")
	}

	v.RegisterBuiltins()
	if !v.hasGlobal("print") || !v.hasGlobal("type") || !v.hasGlobal("len") {
		t.Error("builtins missing after RegisterBuiltins")
	}
}

func TestModuleConstantTable(t *testing.T) {
	v := New()
	v.DefineModuleConstant("pi")

	if !v.isModuleConstant(v.InternString("pi")) {
		t.Error("constant not recorded")
	}

	v.ClearConstants()
	if v.isModuleConstant(v.InternString("pi")) {
		t.Error("constant survived ClearConstants")
	}
}
