package telemetry

import (
	"bytes"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrajectory(n int, seed uint64) Trajectory {
	r := rand.New(rand.NewPCG(seed, seed+1))
	t := Trajectory{
		Times:      make([]int32, n),
		Positions:  make([]Vec3, n),
		Velocities: make([]Vec3, n),
		SplinePos:  make([]float64, n),
	}
	ts := int32(0)
	for i := range n {
		ts += int32(50 + r.IntN(100))
		t.Times[i] = ts
		t.Positions[i] = Vec3{X: r.Float64()*2000 - 1000, Y: r.Float64() * 50, Z: r.Float64()*3000 - 1500}
		t.Velocities[i] = Vec3{X: r.Float64()*80 - 40, Y: r.Float64() - 0.5, Z: r.Float64()*80 - 40}
		t.SplinePos[i] = float64(i) / float64(n)
	}
	return t
}

func bound(vals []float64) float64 {
	lo, hi := floatRange(vals)
	return (hi - lo) / float64(Resolution)
}

func assertClose(t *testing.T, want, got Trajectory) {
	t.Helper()
	require.Equal(t, want.Times, got.Times)
	require.Len(t, got.Positions, len(want.Positions))
	require.Len(t, got.Velocities, len(want.Velocities))
	require.Len(t, got.SplinePos, len(want.SplinePos))
	check := func(wantCh, gotCh []float64) {
		eps := bound(wantCh)
		for i := range wantCh {
			assert.LessOrEqual(t, math.Abs(wantCh[i]-gotCh[i]), eps, "sample %d", i)
		}
	}
	wp, gp := splitVec(want.Positions), splitVec(got.Positions)
	wv, gv := splitVec(want.Velocities), splitVec(got.Velocities)
	for i := range 3 {
		check(wp[i], gp[i])
		check(wv[i], gv[i])
	}
	check(want.SplinePos, got.SplinePos)
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 17, 1000} {
		orig := sampleTrajectory(n, uint64(n))
		buf, err := Compress(orig)
		require.NoError(t, err)
		got, err := Decompress(buf)
		require.NoError(t, err)
		assertClose(t, orig, got)
	}
}

func TestRoundTripIsStable(t *testing.T) {
	orig := sampleTrajectory(500, 42)
	buf, err := Compress(orig)
	require.NoError(t, err)
	first, err := Decompress(buf)
	require.NoError(t, err)
	buf, err = Compress(first)
	require.NoError(t, err)
	second, err := Decompress(buf)
	require.NoError(t, err)
	assertClose(t, orig, second)
}

func TestEmptyInput(t *testing.T) {
	buf, err := Compress(Trajectory{})
	require.NoError(t, err)
	got, err := Decompress(buf)
	require.NoError(t, err)
	assert.Equal(t, []int32{0}, got.Times)
	assert.Len(t, got.Positions, 1)
	assert.InDelta(t, 0, got.SplinePos[0], 1e-12)
}

func TestDegenerateChannel(t *testing.T) {
	orig := sampleTrajectory(10, 7)
	for i := range orig.Positions {
		orig.Positions[i].Y = 12.5
	}
	buf, err := Compress(orig)
	require.NoError(t, err)
	got, err := Decompress(buf)
	require.NoError(t, err)
	for _, p := range got.Positions {
		assert.InDelta(t, 12.5, p.Y, 1e-9)
	}
}

func TestMinDt(t *testing.T) {
	orig := Trajectory{
		Times:      []int32{0, 10, 20, 100, 105, 210, 215},
		Positions:  make([]Vec3, 7),
		Velocities: make([]Vec3, 7),
		SplinePos:  []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
	}
	buf, err := Compress(orig, WithMinDt(100))
	require.NoError(t, err)
	got, err := Decompress(buf)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 100, 210, 215}, got.Times)
	assert.InDelta(t, 0.6, got.SplinePos[3], 1e-8)
}

func TestLengthMismatch(t *testing.T) {
	orig := sampleTrajectory(5, 1)
	orig.SplinePos = orig.SplinePos[:4]
	_, err := Compress(orig)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestDecodeStrategies(t *testing.T) {
	orig := sampleTrajectory(20, 3)
	compressed, err := Compress(orig)
	require.NoError(t, err)
	legacy := encode(&orig)

	tests := []struct {
		name       string
		buf        []byte
		wantOk     bool
		wantFormat string
	}{
		{name: "current format", buf: compressed, wantOk: true, wantFormat: "zlib"},
		{name: "uncompressed legacy", buf: legacy, wantOk: true, wantFormat: "raw"},
		{name: "garbage", buf: []byte("definitely not telemetry")},
		{name: "truncated", buf: compressed[:len(compressed)/2]},
		{name: "empty", buf: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Decode(tt.buf)
			assert.Equal(t, tt.wantOk, ok)
			_, format, err := DecodeWith(tt.buf, Strategies...)
			if !tt.wantOk {
				assert.ErrorIs(t, err, ErrDecode)
				assert.Equal(t, 0, got.Len())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, format)
			assertClose(t, orig, got)
		})
	}
}

func TestIntDeltasWrap(t *testing.T) {
	var buf bytes.Buffer
	putInts(&buf, []int32{math.MaxInt32, math.MinInt32, 0, -5})
	r := &reader{buf: buf.Bytes()}
	got, err := r.ints()
	require.NoError(t, err)
	assert.Equal(t, []int32{math.MaxInt32, math.MinInt32, 0, -5}, got)
}
