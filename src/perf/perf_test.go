package perf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlocks(t *testing.T) {
	rp := MakeNewRequestPerf("GET [^/login$]", "GET", "/login")

	outer := rp.StartBlock("MIDDLEWARE", "Load session")
	inner := rp.StartBlock("SESSION", "Get")
	inner.End()
	outer.End()
	rp.StartBlock("TEMPLATE", "login.html")
	rp.EndRequest()

	if assert.Len(t, rp.Blocks, 3) {
		for _, b := range rp.Blocks {
			assert.False(t, b.End.IsZero(), "block %s was left open", b.Description)
			assert.GreaterOrEqual(t, b.DurationMs(), 0.0)
		}
	}
	assert.False(t, rp.End.IsZero())
	assert.False(t, rp.EndBlock())
}

func TestNilPerfIsSafe(t *testing.T) {
	var rp *RequestPerf
	assert.NotPanics(t, func() {
		b := rp.StartBlock("SQL", "outside a request")
		b.End()
		rp.EndRequest()
	})
}

func TestExtractPerf(t *testing.T) {
	assert.Nil(t, ExtractPerf(context.Background()))

	rp := MakeNewRequestPerf("", "GET", "/")
	ctx := context.WithValue(context.Background(), PerfContextKey, rp)
	assert.Same(t, rp, ExtractPerf(ctx))
}
