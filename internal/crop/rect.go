package crop

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Rect is an active picture area inside a frame.
type Rect struct {
	Width  int
	Height int
	X      int
	Y      int
}

// String renders the rectangle as W:H:X:Y.
func (r Rect) String() string {
	return fmt.Sprintf("%d:%d:%d:%d", r.Width, r.Height, r.X, r.Y)
}

// Filter renders the ffmpeg crop filter expression.
func (r Rect) Filter() string {
	return "crop=" + r.String()
}

var cropPattern = regexp.MustCompile(`crop=(\d+):(\d+):(\d+):(\d+)`)

// ParseRect parses "W:H:X:Y" with or without a "crop=" prefix.
func ParseRect(value string) (Rect, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "crop=")
	parts := strings.Split(value, ":")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("crop rectangle %q: expected W:H:X:Y", value)
	}
	var nums [4]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return Rect{}, fmt.Errorf("crop rectangle %q: invalid component %q", value, part)
		}
		nums[i] = n
	}
	if nums[0] == 0 || nums[1] == 0 {
		return Rect{}, fmt.Errorf("crop rectangle %q: zero size", value)
	}
	return Rect{Width: nums[0], Height: nums[1], X: nums[2], Y: nums[3]}, nil
}

// LastCrop returns the final crop rectangle reported in cropdetect output.
func LastCrop(output string) (Rect, bool) {
	matches := cropPattern.FindAllStringSubmatch(output, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		rect, err := ParseRect(strings.Join(matches[i][1:], ":"))
		if err == nil {
			return rect, true
		}
	}
	return Rect{}, false
}

// Agree returns the common rectangle when every input is identical. An empty
// input never agrees.
func Agree(rects []Rect) (Rect, bool) {
	if len(rects) == 0 {
		return Rect{}, false
	}
	first := rects[0]
	for _, rect := range rects[1:] {
		if rect != first {
			return Rect{}, false
		}
	}
	return first, true
}
