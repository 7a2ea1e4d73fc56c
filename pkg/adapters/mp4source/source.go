// Package mp4source opens an MP4 container as a playback media source.
// Samples are indexed up front with their native timestamps and durations;
// Next hands out the raw encoded samples, leaving the codec opaque to the
// playback layer.
package mp4source

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/vidfeed/pkg/adapters/logger"
	"github.com/user/vidfeed/pkg/ports"
)

// sample is one indexed video sample.
type sample struct {
	data     []byte
	ts       time.Duration
	dur      time.Duration
	keyframe bool
}

// File is a MediaOpener for an MP4 file on disk.
type File struct {
	path string
	log  ports.Logger
}

// New creates an opener for the MP4 file at path.
func New(path string, log ports.Logger) *File {
	if log == nil {
		log = logger.NewNoop()
	}
	return &File{path: path, log: log.WithComponent("mp4source")}
}

// OpenMedia parses the container and builds the sample index. A missing or
// unreadable file reports ErrSourceUnavailable; a file that is not a
// fragmented MP4 with a video track reports ErrUnsupportedFormat.
func (f *File) OpenMedia() (ports.MediaSource, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %v", f.path, ports.ErrSourceUnavailable, err)
	}
	defer fh.Close()

	mp4File, err := mp4.DecodeFile(fh)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w: %v", f.path, ports.ErrUnsupportedFormat, err)
	}

	if !mp4File.IsFragmented() {
		// Progressive layouts would need the stbl sample tables; the
		// tooling around this project produces fragmented files only.
		return nil, fmt.Errorf("%s: progressive mp4: %w", f.path, ports.ErrUnsupportedFormat)
	}

	samples, info, err := indexFragmented(mp4File)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", f.path, err)
	}

	f.log.Debug("indexed %d samples, duration %s, codec %s", len(samples), info.Duration, info.Codec)
	return &source{samples: samples, info: info}, nil
}

// indexFragmented walks the moof/traf structure of a fragmented MP4 and
// collects every video sample with its timing.
func indexFragmented(mp4File *mp4.File) ([]sample, ports.MediaInfo, error) {
	var info ports.MediaInfo

	var videoTrackID uint32
	var trex *mp4.TrexBox
	var timescale uint32 = 1000

	if mp4File.Init != nil && mp4File.Init.Moov != nil {
		for _, trak := range mp4File.Init.Moov.Traks {
			if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
				continue
			}
			videoTrackID = trak.Tkhd.TrackID
			if trak.Mdia.Mdhd != nil {
				timescale = trak.Mdia.Mdhd.Timescale
			}
			// Tkhd dimensions are 16.16 fixed point.
			info.Width = int(trak.Tkhd.Width >> 16)
			info.Height = int(trak.Tkhd.Height >> 16)
			if trak.Mdia.Minf != nil && trak.Mdia.Minf.Stbl != nil && trak.Mdia.Minf.Stbl.Stsd != nil {
				if children := trak.Mdia.Minf.Stbl.Stsd.Children; len(children) > 0 {
					info.Codec = children[0].Type()
				}
			}
			break
		}
		if mp4File.Init.Moov.Mvex != nil {
			for _, t := range mp4File.Init.Moov.Mvex.Trexs {
				if t.TrackID == videoTrackID {
					trex = t
					break
				}
			}
		}
	}

	if videoTrackID == 0 {
		return nil, info, fmt.Errorf("no video track: %w", ports.ErrUnsupportedFormat)
	}

	var samples []sample
	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != videoTrackID {
					continue
				}

				var baseDecodeTime uint64
				if traf.Tfdt != nil {
					baseDecodeTime = traf.Tfdt.BaseMediaDecodeTime()
				}

				full, err := frag.GetFullSamples(trex)
				if err != nil {
					return nil, info, fmt.Errorf("read samples: %w: %v", ports.ErrUnsupportedFormat, err)
				}

				current := baseDecodeTime
				for _, fs := range full {
					samples = append(samples, sample{
						data:     fs.Data,
						ts:       ticksToDuration(current, timescale),
						dur:      ticksToDuration(uint64(fs.Dur), timescale),
						keyframe: fs.Flags == mp4.SyncSampleFlags,
					})
					current += uint64(fs.Dur)
				}
			}
		}
	}

	if len(samples) == 0 {
		return nil, info, fmt.Errorf("no video samples: %w", ports.ErrUnsupportedFormat)
	}

	last := samples[len(samples)-1]
	info.FrameCount = len(samples)
	info.Duration = last.ts + last.dur
	info.FrameInterval = info.Duration / time.Duration(len(samples))
	return samples, info, nil
}

func ticksToDuration(ticks uint64, timescale uint32) time.Duration {
	if timescale == 0 {
		timescale = 1000
	}
	return time.Duration(ticks) * time.Second / time.Duration(timescale)
}

// source serves the prebuilt sample index. It is owned by a single engine,
// which serializes all calls, so no locking happens here.
type source struct {
	samples []sample
	info    ports.MediaInfo
	pos     int
	closed  bool
}

func (s *source) Info() ports.MediaInfo {
	return s.info
}

func (s *source) Next() (*ports.Frame, error) {
	if s.closed {
		return nil, fmt.Errorf("source closed: %w", ports.ErrDecode)
	}
	if s.pos >= len(s.samples) {
		return nil, io.EOF
	}
	smp := s.samples[s.pos]
	frame := &ports.Frame{
		Data:      smp.data,
		Index:     s.pos,
		Timestamp: smp.ts,
		Duration:  smp.dur,
		Width:     s.info.Width,
		Height:    s.info.Height,
	}
	s.pos++
	return frame, nil
}

// Seek repositions to the sample with the greatest timestamp at or before
// target, snapped back to the nearest sync sample so decode can restart
// cleanly. Clamps to the first and last sample.
func (s *source) Seek(target time.Duration) (ports.FramePos, error) {
	if s.closed {
		return ports.FramePos{}, fmt.Errorf("source closed: %w", ports.ErrDecode)
	}
	// First sample with ts > target, minus one.
	index := sort.Search(len(s.samples), func(i int) bool {
		return s.samples[i].ts > target
	}) - 1
	if index < 0 {
		index = 0
	}
	for index > 0 && !s.samples[index].keyframe {
		index--
	}
	s.pos = index
	return ports.FramePos{Index: index, Timestamp: s.samples[index].ts}, nil
}

func (s *source) Close() error {
	s.closed = true
	s.samples = nil
	return nil
}

var _ ports.MediaSource = (*source)(nil)
var _ ports.MediaOpener = (*File)(nil)
