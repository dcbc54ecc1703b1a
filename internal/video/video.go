// Package video adapts OpenCV (gocv) capture, resizing, encoding and window
// rendering to the pipeline collaborator interfaces.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"gocv.io/x/gocv"

	"github.com/anurag-haridas/visual-impaired/internal/face"
	"github.com/anurag-haridas/visual-impaired/internal/pipeline"
)

// ErrNotAFrame is returned when a collaborator receives a frame that was
// not produced by this package.
var ErrNotAFrame = errors.New("frame is not a gocv frame")

// Frame wraps a BGR gocv.Mat.
type Frame struct {
	mat gocv.Mat
}

// NewFrame takes ownership of mat.
func NewFrame(mat gocv.Mat) *Frame {
	return &Frame{mat: mat}
}

func (f *Frame) Width() int  { return f.mat.Cols() }
func (f *Frame) Height() int { return f.mat.Rows() }

// Mat returns the underlying matrix.
func (f *Frame) Mat() *gocv.Mat { return &f.mat }

func (f *Frame) Close() error { return f.mat.Close() }

func asFrame(frame pipeline.Frame) (*Frame, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotAFrame, frame)
	}
	return f, nil
}

// Camera reads frames from a local capture device.
type Camera struct {
	device int
	cap    *gocv.VideoCapture
}

// OpenCamera opens capture device. Width and height are requested from the
// driver when positive.
func OpenCamera(device, width, height int) (*Camera, error) {
	vc, err := gocv.VideoCaptureDevice(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open video capture device %d: %w", device, err)
	}
	if width > 0 && height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	return &Camera{device: device, cap: vc}, nil
}

// Read grabs the next frame. A failed grab or an empty frame ends the stream.
func (c *Camera) Read(_ context.Context) (pipeline.Frame, error) {
	mat := gocv.NewMat()
	if ok := c.cap.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("camera %d returned no frame: %w", c.device, io.EOF)
	}
	return NewFrame(mat), nil
}

func (c *Camera) Close() error {
	return c.cap.Close()
}

// Resizer downsamples frames with bilinear interpolation.
type Resizer struct{}

func (Resizer) Resize(frame pipeline.Frame, factor float64) (pipeline.Frame, error) {
	f, err := asFrame(frame)
	if err != nil {
		return nil, err
	}
	dst := gocv.NewMat()
	gocv.Resize(f.mat, &dst, image.Point{}, factor, factor, gocv.InterpolationLinear)
	if dst.Empty() {
		dst.Close()
		return nil, errors.New("resize produced an empty frame")
	}
	return NewFrame(dst), nil
}

// Detector encodes frames as JPEG and hands them to a face extractor.
type Detector struct {
	Extractor face.Extractor
}

func (d Detector) Detect(ctx context.Context, frame pipeline.Frame) ([]face.Detection, error) {
	f, err := asFrame(frame)
	if err != nil {
		return nil, err
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, f.mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	buf.Close()

	return d.Extractor.Extract(ctx, data)
}

var (
	boxColor   = color.RGBA{R: 255, A: 255}
	labelColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	labelBarHeight = 35
	filled         = -1 // thickness value that fills the shape
)

// Annotate draws a red box around every face with its label on a filled bar
// along the bottom edge.
func Annotate(mat *gocv.Mat, annotations []pipeline.Annotation) {
	for _, a := range annotations {
		r := a.Box.Rect()
		gocv.Rectangle(mat, r, boxColor, 2)
		gocv.Rectangle(mat, image.Rect(r.Min.X, r.Max.Y-labelBarHeight, r.Max.X, r.Max.Y), boxColor, filled)
		gocv.PutText(mat, a.Label, image.Pt(r.Min.X+6, r.Max.Y-6), gocv.FontHersheyDuplex, 1.0, labelColor, 1)
	}
}

// Window shows annotated frames in a desktop window; pressing q asks the
// loop to stop.
type Window struct {
	win  *gocv.Window
	quit bool
}

// NewWindow opens a window titled title.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

func (w *Window) Show(frame pipeline.Frame, annotations []pipeline.Annotation) error {
	f, err := asFrame(frame)
	if err != nil {
		return err
	}
	Annotate(f.Mat(), annotations)
	w.win.IMShow(f.mat)

	switch w.win.WaitKey(1) {
	case 'q', 'Q':
		w.quit = true
	}
	return nil
}

func (w *Window) QuitRequested() bool {
	return w.quit
}

func (w *Window) Close() error {
	return w.win.Close()
}
