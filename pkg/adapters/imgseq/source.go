// Package imgseq plays a directory of numbered images as a media source.
// Files are ordered by the number embedded in their name (frame-0001.png,
// 12.jpg, ...) and paced at a configurable frame rate.
package imgseq

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	// Image decoders for the formats we accept.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"

	"github.com/user/vidfeed/pkg/adapters/logger"
	"github.com/user/vidfeed/pkg/ports"
)

// defaultFPS paces sequences with no explicit rate.
const defaultFPS = 30.0

// Dir is a MediaOpener for an image sequence directory.
type Dir struct {
	path string
	fps  float64
	log  ports.Logger
}

// New creates an opener for the directory at path. fps <= 0 selects the
// default rate.
func New(path string, fps float64, log ports.Logger) *Dir {
	if fps <= 0 {
		fps = defaultFPS
	}
	if log == nil {
		log = logger.NewNoop()
	}
	return &Dir{path: path, fps: fps, log: log.WithComponent("imgseq")}
}

// OpenMedia lists and orders the image files. An unreadable or empty
// directory reports ErrSourceUnavailable; picture dimensions come from
// decoding the first frame.
func (d *Dir) OpenMedia() (ports.MediaSource, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w: %v", d.path, ports.ErrSourceUnavailable, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg", ".bmp":
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s: %w", d.path, ports.ErrSourceUnavailable)
	}
	sortByFrameNumber(files)

	interval := time.Duration(float64(time.Second) / d.fps)
	src := &source{
		dir:      d.path,
		files:    files,
		interval: interval,
	}

	// The first frame sets the reported dimensions.
	first, err := src.decode(0)
	if err != nil {
		return nil, fmt.Errorf("first frame: %w", err)
	}
	bounds := first.Bounds()
	src.info = ports.MediaInfo{
		FrameCount:    len(files),
		FrameInterval: interval,
		Duration:      time.Duration(len(files)) * interval,
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Codec:         "image",
	}

	d.log.Debug("opened %d images at %.1f fps", len(files), d.fps)
	return src, nil
}

// sortByFrameNumber orders names by the last run of digits in the stem,
// falling back to lexical order for names without one.
func sortByFrameNumber(files []string) {
	sort.Slice(files, func(i, j int) bool {
		ni, oki := frameNumber(files[i])
		nj, okj := frameNumber(files[j])
		if oki && okj && ni != nj {
			return ni < nj
		}
		if oki != okj {
			return oki
		}
		return files[i] < files[j]
	})
}

func frameNumber(name string) (int, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	end := len(stem)
	for end > 0 && stem[end-1] >= '0' && stem[end-1] <= '9' {
		end--
	}
	if end == len(stem) {
		return 0, false
	}
	n := 0
	for _, c := range stem[end:] {
		n = n*10 + int(c-'0')
	}
	return n, true
}

type source struct {
	dir      string
	files    []string
	interval time.Duration
	info     ports.MediaInfo
	pos      int
	closed   bool
}

func (s *source) Info() ports.MediaInfo {
	return s.info
}

func (s *source) Next() (*ports.Frame, error) {
	if s.closed {
		return nil, fmt.Errorf("source closed: %w", ports.ErrDecode)
	}
	if s.pos >= len(s.files) {
		return nil, io.EOF
	}

	data, err := os.ReadFile(filepath.Join(s.dir, s.files[s.pos]))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %v", s.files[s.pos], ports.ErrDecode, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w: %v", s.files[s.pos], ports.ErrDecode, err)
	}

	bounds := img.Bounds()
	frame := &ports.Frame{
		Data:      data,
		Image:     img,
		Index:     s.pos,
		Timestamp: time.Duration(s.pos) * s.interval,
		Duration:  s.interval,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
	}
	s.pos++
	return frame, nil
}

func (s *source) Seek(target time.Duration) (ports.FramePos, error) {
	if s.closed {
		return ports.FramePos{}, fmt.Errorf("source closed: %w", ports.ErrDecode)
	}
	index := int(target / s.interval)
	if target < 0 {
		index = 0
	}
	if index >= len(s.files) {
		index = len(s.files) - 1
	}
	s.pos = index
	return ports.FramePos{Index: index, Timestamp: time.Duration(index) * s.interval}, nil
}

func (s *source) Close() error {
	s.closed = true
	return nil
}

// decode loads a single frame image without advancing the position.
func (s *source) decode(index int) (image.Image, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, s.files[index]))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %v", s.files[index], ports.ErrDecode, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w: %v", s.files[index], ports.ErrDecode, err)
	}
	return img, nil
}

var _ ports.MediaOpener = (*Dir)(nil)
var _ ports.MediaSource = (*source)(nil)
