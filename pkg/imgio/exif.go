package imgio

import (
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// AcquisitionTime reads the capture timestamp from a photograph's EXIF
// block. Many delivered formats (PNG, BMP) carry no EXIF at all, so a
// missing or unreadable timestamp is not an error; ok reports whether a
// timestamp was found.
func AcquisitionTime(path string) (t time.Time, ok bool) {
	file, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer file.Close()

	ex, err := exif.Decode(file)
	if err != nil {
		return time.Time{}, false
	}

	t, err = ex.DateTime()
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}
