// Package detector provides hand detection interfaces and types for pointer control.
package detector

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D represents a landmark position. X and Y are normalized to [0,1]
// of the frame width and height; Z is relative depth and is not used for
// pointer control.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// FrameGeometry is the size in pixels of the frame the landmarks were
// detected in.
type FrameGeometry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the hand center in frame pixels: the mean of all landmark
// x coordinates scaled by the frame width and of all y coordinates scaled by
// the frame height, each rounded to the nearest pixel. Averaging every
// landmark damps the per-point jitter of the detector.
func (h *HandLandmarks) Center(frame FrameGeometry) image.Point {
	xs := make([]float64, NumLandmarks)
	ys := make([]float64, NumLandmarks)
	for i, p := range h.Points {
		xs[i] = p.X * float64(frame.Width)
		ys[i] = p.Y * float64(frame.Height)
	}

	return image.Point{
		X: int(math.Round(stat.Mean(xs, nil))),
		Y: int(math.Round(stat.Mean(ys, nil))),
	}
}

// PinchDistance returns the planar distance between the thumb tip and the
// index fingertip in normalized landmark units.
func (h *HandLandmarks) PinchDistance() float64 {
	thumb := h.Points[ThumbTip]
	index := h.Points[IndexTip]
	return math.Hypot(thumb.X-index.X, thumb.Y-index.Y)
}

// Translated returns a copy of the hand with every landmark shifted by
// (dx, dy) in normalized units.
func (h HandLandmarks) Translated(dx, dy float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}
