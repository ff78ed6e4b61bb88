//go:build linux && cgo && rga

package rga

/*
#cgo LDFLAGS: -lrga

#include <string.h>
#include <rga/rga.h>
#include <rga/RgaApi.h>

static int rga_format(int f) {
	switch (f) {
	case 1: return RK_FORMAT_YCbCr_420_SP;
	case 2: return RK_FORMAT_RGB_565;
	case 3: return RK_FORMAT_BGRA_8888;
	}
	return -1;
}

static int rga_blit_virt(void *src, int sw, int sh, int sws, int shs, int sf,
                         void *dst, int dw, int dh, int dws, int dhs, int df) {
	rga_info_t s, d;

	memset(&s, 0, sizeof(s));
	memset(&d, 0, sizeof(d));
	s.fd = -1;
	s.mmuFlag = 1;
	s.virAddr = src;
	d.fd = -1;
	d.mmuFlag = 1;
	d.virAddr = dst;

	rga_set_rect(&s.rect, 0, 0, sw, sh, sws, shs, rga_format(sf));
	rga_set_rect(&d.rect, 0, 0, dw, dh, dws, dhs, rga_format(df));
	return c_RkRgaBlit(&s, &d, NULL);
}
*/
import "C"

import (
	"unsafe"

	"github.com/liyigang86/drm-rga-demo/internal/errors"
)

func engineInit() error {
	if ret := C.c_RkRgaInit(); ret < 0 {
		return errors.Errorf(`c_RkRgaInit: %d`, int(ret))
	}
	return nil
}

func engineBlit(src []byte, sr rect, dst []byte, dr rect) error {
	ret := C.rga_blit_virt(
		unsafe.Pointer(&src[0]), C.int(sr.width), C.int(sr.height), C.int(sr.wstride), C.int(sr.hstride), C.int(sr.format),
		unsafe.Pointer(&dst[0]), C.int(dr.width), C.int(dr.height), C.int(dr.wstride), C.int(dr.hstride), C.int(dr.format),
	)
	if ret != 0 {
		return errors.Errorf(`c_RkRgaBlit: %d`, int(ret))
	}
	return nil
}
