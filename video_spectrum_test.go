package retrocore

import "testing"

// With the beam at the first dot of the first visible scanline, six
// consecutive single-dot-apart contended reads report 6,5,4,3,2,1 in
// order (the classic ULA contention pattern).
func TestSpectrumVideo_ContentionPattern(t *testing.T) {
	bus := &flatTestBus{}
	v := NewSpectrumVideo(bus)
	v.line = spectrumFirstVisible
	v.dot = 0

	want := []int{6, 5, 4, 3, 2, 1}
	for i, w := range want {
		got := v.ContentionAt(0x4000)
		if got != w {
			t.Fatalf("contention[%d] = %d, want %d", i, got, w)
		}
		v.dot++
	}
}

// Contention only applies to the low-RAM window during the visible part
// of the frame; outside it (vertical blank, or dot >= 128) no wait is
// imposed.
func TestSpectrumVideo_NoContentionOutsideVisibleWindow(t *testing.T) {
	bus := &flatTestBus{}
	v := NewSpectrumVideo(bus)

	v.line = 0 // vertical blank / non-visible
	v.dot = 0
	if got := v.ContentionAt(0x4000); got != 0 {
		t.Fatalf("contention outside visible lines = %d, want 0", got)
	}

	v.line = spectrumFirstVisible
	v.dot = 200 // past the 128-dot contended window
	if got := v.ContentionAt(0x4000); got != 0 {
		t.Fatalf("contention past dot 128 = %d, want 0", got)
	}
}
