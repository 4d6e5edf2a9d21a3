// Package preview keeps the most recent annotated camera frame for display.
package preview

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchpoint/internal/detector"
)

// LandmarkRadius is the radius in pixels of the dot drawn per landmark.
const LandmarkRadius = 5

var landmarkColor = color.RGBA{R: 0, G: 0, B: 255, A: 0}

// Annotate draws a filled dot on frame for every landmark of hand. A nil
// hand leaves the frame untouched.
func Annotate(frame *gocv.Mat, hand *detector.HandLandmarks) {
	if frame == nil || hand == nil {
		return
	}
	geometry := detector.FrameGeometry{Width: frame.Cols(), Height: frame.Rows()}
	for _, p := range hand.Points {
		center := image.Pt(
			int(p.X*float64(geometry.Width)),
			int(p.Y*float64(geometry.Height)),
		)
		gocv.Circle(frame, center, LandmarkRadius, landmarkColor, -1)
	}
}

// Buffer holds the latest published frame as JPEG. Older frames are
// dropped; readers only ever see the newest one.
type Buffer struct {
	mu      sync.RWMutex
	jpeg    []byte
	seq     uint64
	updated chan struct{}
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{updated: make(chan struct{})}
}

// Publish encodes frame as JPEG and replaces the stored frame.
func (b *Buffer) Publish(frame *gocv.Mat) error {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	b.PublishJPEG(data)
	return nil
}

// PublishJPEG stores already encoded JPEG data.
func (b *Buffer) PublishJPEG(data []byte) {
	b.mu.Lock()
	b.jpeg = data
	b.seq++
	ch := b.updated
	b.updated = make(chan struct{})
	b.mu.Unlock()

	close(ch)
}

// Latest returns the newest frame and its sequence number. The sequence is
// zero while nothing has been published.
func (b *Buffer) Latest() ([]byte, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.jpeg, b.seq
}

// Next blocks until a frame newer than after is available or ctx is done.
func (b *Buffer) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		b.mu.RLock()
		data, seq, ch := b.jpeg, b.seq, b.updated
		b.mu.RUnlock()

		if seq > after {
			return data, seq, nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, seq, ctx.Err()
		}
	}
}
