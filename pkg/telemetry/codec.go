// Package telemetry encodes the trajectory of a lap into a compact binary blob.
//
// Layout (little endian, whole buffer zlib compressed):
//
//	int block:   int32 count, int32 first, (count-1) x int32 delta
//	float block: float64 min, float64 max, int32 resolution, int block of quantized values
//
// Channels are written in this order: times (int block), position x/y/z,
// velocity x/y/z, spline position (float blocks).
package telemetry

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
)

// Resolution is the number of quantization steps of a float channel
const Resolution int32 = 1 << 30

// used when min == max
const degenerateWidth = 0.1

var (
	ErrDecode         = errors.New("cannot decode telemetry")
	ErrLengthMismatch = errors.New("telemetry channels differ in length")
)

type Vec3 struct {
	X, Y, Z float64
}

// Trajectory holds the samples of one lap. All channels have the same length.
type Trajectory struct {
	Times      []int32 // ms
	Positions  []Vec3
	Velocities []Vec3
	SplinePos  []float64 // normalized track position
}

func (t *Trajectory) Len() int {
	return len(t.Times)
}

func (t *Trajectory) validate() error {
	n := len(t.Times)
	if len(t.Positions) != n || len(t.Velocities) != n || len(t.SplinePos) != n {
		return fmt.Errorf("%w: times=%d positions=%d velocities=%d spline=%d",
			ErrLengthMismatch, n, len(t.Positions), len(t.Velocities), len(t.SplinePos))
	}
	return nil
}

type compressConfig struct {
	minDt int32
	level int
}

type CompressOption func(cfg *compressConfig)

// WithMinDt drops samples closer than minDt ms to the previously kept sample.
// The first and the last sample are always kept.
func WithMinDt(minDt int32) CompressOption {
	return func(cfg *compressConfig) {
		cfg.minDt = minDt
	}
}

func WithLevel(level int) CompressOption {
	return func(cfg *compressConfig) {
		cfg.level = level
	}
}

func Compress(t Trajectory, opts ...CompressOption) ([]byte, error) {
	cfg := &compressConfig{level: zlib.BestCompression}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		t = Trajectory{
			Times:      []int32{0},
			Positions:  []Vec3{{}},
			Velocities: []Vec3{{}},
			SplinePos:  []float64{0},
		}
	}
	if cfg.minDt > 0 {
		t = thin(t, cfg.minDt)
	}

	var out bytes.Buffer
	zw, err := zlib.NewWriterLevel(&out, cfg.level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(encode(&t)); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Decompress is the inverse of Compress
func Decompress(buf []byte) (Trajectory, error) {
	zr, err := zlib.NewReader(bytes.NewReader(buf))
	if err != nil {
		return Trajectory{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return Trajectory{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return decode(raw)
}

func thin(t Trajectory, minDt int32) Trajectory {
	keep := []int{0}
	last := t.Times[0]
	for i := 1; i < t.Len()-1; i++ {
		if t.Times[i]-last >= minDt {
			keep = append(keep, i)
			last = t.Times[i]
		}
	}
	if t.Len() > 1 {
		keep = append(keep, t.Len()-1)
	}
	ret := Trajectory{
		Times:      make([]int32, len(keep)),
		Positions:  make([]Vec3, len(keep)),
		Velocities: make([]Vec3, len(keep)),
		SplinePos:  make([]float64, len(keep)),
	}
	for i, idx := range keep {
		ret.Times[i] = t.Times[idx]
		ret.Positions[i] = t.Positions[idx]
		ret.Velocities[i] = t.Velocities[idx]
		ret.SplinePos[i] = t.SplinePos[idx]
	}
	return ret
}

func encode(t *Trajectory) []byte {
	var buf bytes.Buffer
	putInts(&buf, t.Times)
	for _, axis := range splitVec(t.Positions) {
		putFloats(&buf, axis)
	}
	for _, axis := range splitVec(t.Velocities) {
		putFloats(&buf, axis)
	}
	putFloats(&buf, t.SplinePos)
	return buf.Bytes()
}

func putInt32(buf *bytes.Buffer, v int32) {
	buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(v)))
}

func putInts(buf *bytes.Buffer, vals []int32) {
	putInt32(buf, int32(len(vals)))
	if len(vals) == 0 {
		return
	}
	putInt32(buf, vals[0])
	for i := 1; i < len(vals); i++ {
		putInt32(buf, vals[i]-vals[i-1])
	}
}

func putFloats(buf *bytes.Buffer, vals []float64) {
	lo, hi := floatRange(vals)
	buf.Write(binary.LittleEndian.AppendUint64(nil, math.Float64bits(lo)))
	buf.Write(binary.LittleEndian.AppendUint64(nil, math.Float64bits(hi)))
	putInt32(buf, Resolution)
	q := make([]int32, len(vals))
	span := hi - lo
	for i, v := range vals {
		q[i] = int32(math.Round((v - lo) / span * float64(Resolution)))
	}
	putInts(buf, q)
}

func floatRange(vals []float64) (lo, hi float64) {
	if len(vals) == 0 {
		return 0, degenerateWidth
	}
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo <= 0 {
		hi = lo + degenerateWidth
	}
	return lo, hi
}

func splitVec(v []Vec3) [3][]float64 {
	var ret [3][]float64
	for i := range ret {
		ret[i] = make([]float64, len(v))
	}
	for i, p := range v {
		ret[0][i], ret[1][i], ret[2][i] = p.X, p.Y, p.Z
	}
	return ret
}

func joinVec(axes [3][]float64) []Vec3 {
	ret := make([]Vec3, len(axes[0]))
	for i := range ret {
		ret[i] = Vec3{X: axes[0][i], Y: axes[1][i], Z: axes[2][i]}
	}
	return ret
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) readInt32() (int32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := int32(binary.LittleEndian.Uint32(r.buf[r.pos:]))
	r.pos += 4
	return v, nil
}

func (r *reader) readFloat64() (float64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(r.buf[r.pos:]))
	r.pos += 8
	return v, nil
}

func (r *reader) ints() ([]int32, error) {
	n, err := r.readInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 || int(n)*4 > len(r.buf)-r.pos {
		return nil, fmt.Errorf("invalid sample count %d", n)
	}
	ret := make([]int32, n)
	for i := range ret {
		d, err := r.readInt32()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			ret[i] = d
		} else {
			ret[i] = ret[i-1] + d
		}
	}
	return ret, nil
}

func (r *reader) floats() ([]float64, error) {
	lo, err := r.readFloat64()
	if err != nil {
		return nil, err
	}
	hi, err := r.readFloat64()
	if err != nil {
		return nil, err
	}
	res, err := r.readInt32()
	if err != nil {
		return nil, err
	}
	if res <= 0 || math.IsNaN(lo) || math.IsNaN(hi) || hi < lo {
		return nil, fmt.Errorf("invalid float block header")
	}
	q, err := r.ints()
	if err != nil {
		return nil, err
	}
	ret := make([]float64, len(q))
	span := hi - lo
	for i, v := range q {
		ret[i] = lo + float64(v)/float64(res)*span
	}
	return ret, nil
}

// decode parses an uncompressed stream
func decode(raw []byte) (Trajectory, error) {
	r := &reader{buf: raw}
	var t Trajectory
	var err error
	wrap := func(err error) (Trajectory, error) {
		return Trajectory{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if t.Times, err = r.ints(); err != nil {
		return wrap(err)
	}
	var channels [7][]float64
	for i := range channels {
		if channels[i], err = r.floats(); err != nil {
			return wrap(err)
		}
	}
	if r.pos != len(raw) {
		return wrap(fmt.Errorf("%d trailing bytes", len(raw)-r.pos))
	}
	t.Positions = joinVecChecked(channels[0:3])
	t.Velocities = joinVecChecked(channels[3:6])
	t.SplinePos = channels[6]
	for _, c := range channels {
		if len(c) != len(t.Times) {
			return wrap(ErrLengthMismatch)
		}
	}
	return t, nil
}

func joinVecChecked(axes [][]float64) []Vec3 {
	n := len(axes[0])
	for _, a := range axes {
		if len(a) < n {
			n = len(a)
		}
	}
	return joinVec([3][]float64{axes[0][:n], axes[1][:n], axes[2][:n]})
}
