package gshade_test

import (
	"testing"

	"github.com/soypat/gshade"
)

func TestWiden(t *testing.T) {
	types := []gshade.ValueType{
		gshade.TypeBool, gshade.TypeInt, gshade.TypeFloat,
		gshade.TypeVec2, gshade.TypeVec3, gshade.TypeVec4, gshade.TypeIVec4,
	}
	for _, t0 := range types {
		for _, t1 := range types {
			got := gshade.Widen(t0, t1)
			want := max(t0.ChannelCount(), t1.ChannelCount())
			if got.ChannelCount() != want {
				t.Errorf("Widen(%s, %s)=%s: want %d channels", t0, t1, got, want)
			}
			if t0.ChannelCount() >= t1.ChannelCount() && got != t0 {
				t.Errorf("Widen(%s, %s)=%s: tie or larger must favor first", t0, t1, got)
			}
		}
	}
}

func TestChannelCount(t *testing.T) {
	for _, test := range []struct {
		t    gshade.ValueType
		want int
	}{
		{gshade.TypeBool, 1},
		{gshade.TypeInt, 1},
		{gshade.TypeFloat, 1},
		{gshade.TypeVec2, 2},
		{gshade.TypeVec3, 3},
		{gshade.TypeVec4, 4},
		{gshade.TypeIVec4, 4},
		{gshade.TypeNone, 1},
	} {
		if got := test.t.ChannelCount(); got != test.want {
			t.Errorf("%s: want %d channels, got %d", test.t, test.want, got)
		}
	}
}

func TestAppendCast(t *testing.T) {
	for _, test := range []struct {
		dst, src gshade.ValueType
		want     string
	}{
		{gshade.TypeVec3, gshade.TypeVec3, ""},
		{gshade.TypeFloat, gshade.TypeVec4, ".x"},
		{gshade.TypeVec3, gshade.TypeFloat, ".xxx"},
		{gshade.TypeVec2, gshade.TypeVec4, ".xy"},
		{gshade.TypeVec4, gshade.TypeVec2, ".xyyy"},
		{gshade.TypeFloat, gshade.TypeInt, ""},
		{gshade.TypeFloat, gshade.TypeBool, ""},
	} {
		got := string(gshade.AppendCast(nil, test.dst, test.src))
		if got != test.want {
			t.Errorf("cast %s to %s: want %q, got %q", test.src, test.dst, test.want, got)
		}
	}
}

func TestAppendZero(t *testing.T) {
	for _, test := range []struct {
		t    gshade.ValueType
		want string
	}{
		{gshade.TypeBool, "false"},
		{gshade.TypeInt, "0"},
		{gshade.TypeFloat, "0.0"},
		{gshade.TypeVec3, "vec3(0.0)"},
		{gshade.TypeIVec4, "ivec4(0)"},
	} {
		if got := string(test.t.AppendZero(nil)); got != test.want {
			t.Errorf("%s: want %q, got %q", test.t, test.want, got)
		}
	}
}
