//go:build unix

package fbpool

import (
	"context"
	"encoding/binary"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/internal/logx"
)

// DefaultPath is the USB ACM gadget exposing the frame pool.
const DefaultPath = `/dev/app_acm_usb`

// acmRead is _IOR('c', 0, int), it makes the ACM driver pull the latest
// pool state from the host.
const acmRead = 0x80046300

const (
	DefaultPollInterval  = time.Millisecond
	DefaultRetryInterval = time.Second
)

var _ logx.LoggerProvider = (*Source)(nil)

// Source polls a frame pool for new frames.
type Source struct {
	path          string
	file          *os.File
	mem           []byte
	hdr           Header
	last          int32
	refresh       bool
	pollInterval  time.Duration
	retryInterval time.Duration
	logger        *slog.Logger
}

type Option func(*Source)

// SetRefresh issues the ACM refresh ioctl before every header read.
func SetRefresh(refresh bool) Option { return func(s *Source) { s.refresh = refresh } }

func SetPollInterval(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// SetRetryInterval is the delay between attempts to open the pool and to
// find its magic.
func SetRetryInterval(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.retryInterval = d
		}
	}
}

func SetSLogger(logger *slog.Logger) Option { return func(s *Source) { s.logger = logger } }

// Open opens the pool at path, retrying until it exists, waits for the
// producer to publish a valid header and maps the whole pool. Only ctx
// ends the wait for a header that never validates.
func Open(ctx context.Context, path string, opts ...Option) (*Source, error) {
	s := &Source{
		path:          path,
		last:          -1,
		pollInterval:  DefaultPollInterval,
		retryInterval: DefaultRetryInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if err := s.open(ctx); err != nil {
		return nil, err
	}
	if err := s.mapPool(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	logx.Debug(`frame pool`, s, `path`, path, `size`, [2]int32{s.hdr.Width, s.hdr.Height},
		`depth`, s.hdr.Depth, `buffers`, s.hdr.Count, `buffer_size`, s.hdr.BufferSize)
	return s, nil
}

func (s *Source) open(ctx context.Context) error {
	for {
		f, err := os.OpenFile(s.path, os.O_RDWR, 0)
		if err == nil {
			s.file = f
			return nil
		}
		logx.Warn(`open frame pool failed, retrying`, s, `path`, s.path, `error`, err.Error())
		if err := sleep(ctx, s.retryInterval); err != nil {
			return err
		}
	}
}

func (s *Source) mapPool(ctx context.Context) error {
	for !s.sizedFor(HeaderSize) {
		logx.Debug(`frame pool too small for a header`, s, `path`, s.path)
		if err := sleep(ctx, s.retryInterval); err != nil {
			return err
		}
	}
	fd := int(s.file.Fd())
	mem, err := unix.Mmap(fd, 0, HeaderSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return errors.WrapPrefix(err, `mmap header`, 0)
	}
	s.mem = mem
	for {
		s.doRefresh()
		hdr, err := ParseHeader(s.mem)
		if err == nil {
			s.hdr = hdr
			break
		}
		// the producer may still be writing the header
		logx.Debug(`header not ready`, s, `magic`, string(s.mem[:4]), `error`, err.Error())
		if err := sleep(ctx, s.retryInterval); err != nil {
			return err
		}
	}

	if !s.sizedFor(s.hdr.Size()) {
		return errors.WrapPrefix(ErrInvalidHeader, `pool larger than its file`, 0)
	}
	if err := unix.Munmap(s.mem); err != nil {
		return errors.WrapPrefix(err, `munmap header`, 0)
	}
	s.mem = nil
	if s.mem, err = unix.Mmap(fd, 0, s.hdr.Size(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED); err != nil {
		s.mem = nil
		return errors.WrapPrefix(err, `mmap pool`, 0)
	}
	return nil
}

// sizedFor reports whether size bytes can be mapped without faulting.
// Only regular files are checked, devices report no size.
func (s *Source) sizedFor(size int) bool {
	fi, err := s.file.Stat()
	if err != nil || !fi.Mode().IsRegular() {
		return true
	}
	return fi.Size() >= int64(size)
}

func (s *Source) doRefresh() {
	if !s.refresh || s.file == nil {
		return
	}
	if _, err := unix.IoctlGetInt(int(s.file.Fd()), acmRead); err != nil {
		logx.IsErr(err, s, slog.LevelDebug, `ioctl`, `acm read`)
	}
}

// Header returns the pool geometry read at Open.
func (s *Source) Header() Header { return s.hdr }

// Next blocks until the producer publishes an index different from the
// last one returned. A negative index means there is no frame and makes
// the next published index count as new again.
func (s *Source) Next(ctx context.Context) (Frame, error) {
	if s == nil || s.mem == nil {
		return Frame{}, errors.NilReceiver()
	}
	for {
		s.doRefresh()
		idx := int32(binary.LittleEndian.Uint32(s.mem[indexOffset:]))
		switch {
		case idx < 0:
			s.last = -1
		case idx >= s.hdr.Count:
			logx.Debug(`index out of range`, s, `index`, idx, `count`, s.hdr.Count)
		case idx != s.last:
			s.last = idx
			return s.hdr.frame(s.mem, idx), nil
		}
		if err := sleep(ctx, s.pollInterval); err != nil {
			return Frame{}, err
		}
	}
}

func (s *Source) Logger() *slog.Logger {
	if s == nil {
		return nil
	}
	return s.logger
}

func (s *Source) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.mem != nil {
		errs = append(errs, unix.Munmap(s.mem))
		s.mem = nil
	}
	if s.file != nil {
		errs = append(errs, s.file.Close())
		s.file = nil
	}
	return errors.Join(errs...)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
