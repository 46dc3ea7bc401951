//go:build linux && cgo

// Package pipewire runs a video capture stream on a PipeWire remote handed
// out by the ScreenCast portal.
package pipewire

/*
#cgo pkg-config: libpipewire-0.3
#include <stdint.h>
#include <stdlib.h>
#include <unistd.h>
#include <pipewire/pipewire.h>
#include <spa/param/video/format-utils.h>
#include <spa/pod/builder.h>

extern void waydoStreamStateChanged(uintptr_t handle, int state, char *error);

typedef struct {
    struct pw_main_loop *loop;
    struct pw_context *context;
    struct pw_core *core;
    struct pw_stream *stream;
    struct spa_hook listener;
    uintptr_t handle;
} waydo_stream;

static void waydo_on_state_changed(void *data, enum pw_stream_state old,
    enum pw_stream_state state, const char *error) {
    waydo_stream *s = data;
    waydoStreamStateChanged(s->handle, (int)state, (char *)error);
}

// Buffers are recycled untouched; only the stream state matters.
static void waydo_on_process(void *data) {
    waydo_stream *s = data;
    struct pw_buffer *b = pw_stream_dequeue_buffer(s->stream);
    if (b) {
        pw_stream_queue_buffer(s->stream, b);
    }
}

static const struct pw_stream_events waydo_stream_events = {
    PW_VERSION_STREAM_EVENTS,
    .state_changed = waydo_on_state_changed,
    .process = waydo_on_process,
};

static void waydo_stream_free(waydo_stream *s) {
    if (s->stream) pw_stream_destroy(s->stream);
    if (s->core) pw_core_disconnect(s->core);
    if (s->context) pw_context_destroy(s->context);
    if (s->loop) pw_main_loop_destroy(s->loop);
    free(s);
}

static waydo_stream *waydo_stream_new(int fd, uintptr_t handle) {
    waydo_stream *s = calloc(1, sizeof(*s));
    if (!s) {
        close(fd);
        return NULL;
    }
    s->handle = handle;

    s->loop = pw_main_loop_new(NULL);
    if (!s->loop) goto fail;
    s->context = pw_context_new(pw_main_loop_get_loop(s->loop), NULL, 0);
    if (!s->context) goto fail;

    // the core takes the fd
    s->core = pw_context_connect_fd(s->context, fd, NULL, 0);
    fd = -1;
    if (!s->core) goto fail;

    s->stream = pw_stream_new(s->core, "waydo",
        pw_properties_new(
            PW_KEY_MEDIA_TYPE, "Video",
            PW_KEY_MEDIA_CATEGORY, "Capture",
            PW_KEY_MEDIA_ROLE, "Screen",
            NULL));
    if (!s->stream) goto fail;

    pw_stream_add_listener(s->stream, &s->listener, &waydo_stream_events, s);
    return s;

fail:
    if (fd >= 0) close(fd);
    waydo_stream_free(s);
    return NULL;
}

static int waydo_stream_connect(waydo_stream *s, uint32_t max_w, uint32_t max_h) {
    uint8_t buffer[1024];
    struct spa_pod_builder b = SPA_POD_BUILDER_INIT(buffer, sizeof(buffer));
    const struct spa_pod *params[1];

    params[0] = spa_pod_builder_add_object(&b,
        SPA_TYPE_OBJECT_Format, SPA_PARAM_EnumFormat,
        SPA_FORMAT_mediaType, SPA_POD_Id(SPA_MEDIA_TYPE_video),
        SPA_FORMAT_mediaSubtype, SPA_POD_Id(SPA_MEDIA_SUBTYPE_raw),
        SPA_FORMAT_VIDEO_format, SPA_POD_CHOICE_ENUM_Id(7,
            SPA_VIDEO_FORMAT_BGRx,
            SPA_VIDEO_FORMAT_BGRx,
            SPA_VIDEO_FORMAT_BGRA,
            SPA_VIDEO_FORMAT_RGBx,
            SPA_VIDEO_FORMAT_RGBA,
            SPA_VIDEO_FORMAT_RGB,
            SPA_VIDEO_FORMAT_BGR),
        SPA_FORMAT_VIDEO_size, SPA_POD_CHOICE_RANGE_Rectangle(
            &SPA_RECTANGLE(max_w, max_h),
            &SPA_RECTANGLE(1, 1),
            &SPA_RECTANGLE(max_w, max_h)),
        SPA_FORMAT_VIDEO_framerate, SPA_POD_CHOICE_RANGE_Fraction(
            &SPA_FRACTION(30, 1),
            &SPA_FRACTION(1, 1),
            &SPA_FRACTION(1000, 1)));

    return pw_stream_connect(s->stream, PW_DIRECTION_INPUT, PW_ID_ANY,
        PW_STREAM_FLAG_AUTOCONNECT | PW_STREAM_FLAG_MAP_BUFFERS, params, 1);
}

static void waydo_stream_run(waydo_stream *s) {
    pw_main_loop_run(s->loop);
}

static void waydo_stream_quit(waydo_stream *s) {
    pw_main_loop_quit(s->loop);
}

static uint32_t waydo_stream_node_id(waydo_stream *s) {
    return pw_stream_get_node_id(s->stream);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/cgo"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/bnema/waydo/internal/logger"
)

// maxDimension bounds the video size when the caller has no extent.
const maxDimension = 16384

// ErrStopped is returned by Run when Stop came first.
var ErrStopped = errors.New("stream stopped before it ran")

var initOnce sync.Once

// Stream is a single capture stream. It runs at most once.
type Stream struct {
	mu      sync.Mutex
	c       *C.waydo_stream
	stopped bool

	onStreaming func()
	nodeID      atomic.Uint32
	err         error
}

// NewStream returns an idle stream.
func NewStream() *Stream {
	return &Stream{}
}

// Run connects to the PipeWire remote on fd and runs the loop until Stop is
// called or the stream fails. fd is always consumed.
func (s *Stream) Run(fd int, maxWidth, maxHeight uint32, onStreaming func()) error {
	// PipeWire loops are bound to the thread that runs them
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	initOnce.Do(func() { C.pw_init(nil, nil) })

	if maxWidth == 0 || maxHeight == 0 {
		maxWidth, maxHeight = maxDimension, maxDimension
	}
	s.onStreaming = onStreaming

	h := cgo.NewHandle(s)
	defer h.Delete()

	c := C.waydo_stream_new(C.int(fd), C.uintptr_t(h))
	if c == nil {
		return errors.New("failed to create PipeWire stream")
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		C.waydo_stream_free(c)
		return ErrStopped
	}
	s.c = c
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.c = nil
		s.mu.Unlock()
		C.waydo_stream_free(c)
	}()

	if res := C.waydo_stream_connect(c, C.uint32_t(maxWidth), C.uint32_t(maxHeight)); res < 0 {
		return fmt.Errorf("failed to connect PipeWire stream: %w", syscall.Errno(-res))
	}

	logger.Debugf("[PIPEWIRE] stream connected, envelope %dx%d", maxWidth, maxHeight)
	C.waydo_stream_run(c)
	return s.err
}

// NodeID is the node the stream was assigned once streaming.
func (s *Stream) NodeID() uint32 {
	return s.nodeID.Load()
}

// Stop makes Run return. It is safe from any goroutine.
func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.c != nil {
		C.waydo_stream_quit(s.c)
	}
}

//export waydoStreamStateChanged
func waydoStreamStateChanged(handle C.uintptr_t, state C.int, errMsg *C.char) {
	s := cgo.Handle(handle).Value().(*Stream)

	switch int(state) {
	case int(C.PW_STREAM_STATE_STREAMING):
		s.nodeID.Store(uint32(C.waydo_stream_node_id(s.c)))
		if s.onStreaming != nil {
			s.onStreaming()
		}
	case int(C.PW_STREAM_STATE_ERROR):
		msg := "unknown error"
		if errMsg != nil {
			msg = C.GoString(errMsg)
		}
		s.err = fmt.Errorf("PipeWire stream error: %s", msg)
		C.waydo_stream_quit(s.c)
	default:
		logger.Debugf("[PIPEWIRE] stream state %d", int(state))
	}
}
