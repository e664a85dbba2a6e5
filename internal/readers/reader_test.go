package readers

import (
	"testing"

	"github.com/jlaustill/cnextc/internal/diag"
	"github.com/jlaustill/cnextc/internal/symbols"
)

type fakeReader struct {
	lang      symbols.Language
	collected []string
}

func (f *fakeReader) Language() symbols.Language { return f.lang }

func (f *fakeReader) Collect(file File, _ *symbols.Table, _ *diag.Collector) {
	f.collected = append(f.collected, file.Path)
}

func TestRegistryFor(t *testing.T) {
	reg := NewRegistry()
	c := &fakeReader{lang: symbols.LangC}
	reg.Register(c)

	got, err := reg.For(symbols.LangC)
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if got != Reader(c) {
		t.Error("returned a different reader")
	}

	if _, err := reg.For(symbols.LangCPP); err == nil {
		t.Error("expected an error for an unregistered language")
	}
}

func TestRegistryLastWins(t *testing.T) {
	reg := NewRegistry()
	first := &fakeReader{lang: symbols.LangC}
	second := &fakeReader{lang: symbols.LangC}
	reg.Register(first)
	reg.Register(second)

	got, _ := reg.For(symbols.LangC)
	if got != Reader(second) {
		t.Error("later registration must replace the earlier one")
	}
}
