package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinterRouting(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	p := New(&out, &errOut, false)

	p.Success("wrote %s", "a.json")
	p.Info("files: %d", 3)
	p.Step("forms: 1")
	p.Warn("cache read failed")
	p.Error("boom")
	p.Verbose("hidden")

	assert.Contains(t, out.String(), "✅")
	assert.Contains(t, out.String(), "wrote a.json")
	assert.Contains(t, out.String(), "files: 3")
	assert.Contains(t, out.String(), "forms: 1")
	assert.NotContains(t, out.String(), "boom")

	assert.Contains(t, errOut.String(), "cache read failed")
	assert.Contains(t, errOut.String(), "❌")
	assert.NotContains(t, errOut.String(), "hidden")
}

func TestPrinterVerbose(t *testing.T) {
	t.Parallel()

	var errOut bytes.Buffer
	New(nil, &errOut, true).Verbose("skipped %s", "x.frm")
	assert.Contains(t, errOut.String(), "skipped x.frm")
}

func TestNilPrinterIsSilent(t *testing.T) {
	t.Parallel()

	var p *Printer
	assert.NotPanics(t, func() {
		p.Success("x")
		p.Error("x")
		p.Warn("x")
		p.Info("x")
		p.Step("x")
		p.Verbose("y")
	})
}

func TestPrinterNilWriters(t *testing.T) {
	t.Parallel()

	var errOut bytes.Buffer
	p := New(nil, &errOut, false)
	assert.NotPanics(t, func() { p.Success("muted") })
	p.Warn("still shown")
	assert.Contains(t, errOut.String(), "still shown")
}
