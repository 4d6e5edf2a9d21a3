package app

import (
	"errors"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchpoint/internal/capture"
	"github.com/ayusman/pinchpoint/internal/control"
	"github.com/ayusman/pinchpoint/internal/detector"
	"github.com/ayusman/pinchpoint/internal/preview"
)

// readRetryDelay is how long the loop waits after a failed frame read.
const readRetryDelay = 50 * time.Millisecond

// run is the detection loop. There is no frame queue: each iteration blocks
// on the camera, so slow processing lowers the frame rate instead of
// building a backlog.
//
// Per frame:
// 1. Read a frame (blocking)
// 2. Detect the hand
// 3. Aggregate landmarks into the hand center and pinch distance
// 4. Map the center onto the desktop (layout queried fresh)
// 5. Drive the controller (motion, then pinch)
// 6. Annotate and publish the preview, notify observers
func (a *App) run(det detector.Detector, done chan struct{}) {
	defer close(done)
	defer a.running.Store(false)
	defer a.releaseHeld()

	for a.running.Load() {
		frame, err := a.config.Camera.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrCameraNotOpen) {
				log.Printf("camera closed, leaving detection loop")
				return
			}
			log.Printf("error reading frame: %v", err)
			time.Sleep(readRetryDelay)
			continue
		}

		a.processFrame(det, frame)
		frame.Close()
	}
}

// processFrame runs one captured frame through detection and control.
func (a *App) processFrame(det detector.Detector, frame *gocv.Mat) control.Step {
	now := a.clock()

	hand, err := det.Detect(frame)
	if err != nil {
		log.Printf("error detecting hand: %v", err)
		hand = nil
	}

	geometry := detector.FrameGeometry{Width: frame.Cols(), Height: frame.Rows()}
	step := a.step(hand, geometry, now)

	if hand != nil {
		preview.Annotate(frame, hand)
	}
	if a.config.Sink != nil {
		if err := a.config.Sink.Publish(frame); err != nil {
			log.Printf("error publishing preview: %v", err)
		}
	}

	return step
}

// step feeds one frame's observation to the controller. A nil hand is a
// detection miss. Mapping errors skip the motion update for this frame;
// the pinch is still evaluated.
func (a *App) step(hand *detector.HandLandmarks, geometry detector.FrameGeometry, now time.Time) control.Step {
	a.frames.Add(1)

	var (
		step control.Step
		err  error
	)
	if hand == nil {
		step, err = a.ctrl.Miss(now)
	} else {
		a.detections.Add(1)

		in := control.Input{Now: now, Distance: hand.PinchDistance()}
		target, bounds, mapErr := a.mapper.Map(hand.Center(geometry), geometry)
		if mapErr != nil {
			log.Printf("error mapping hand position: %v", mapErr)
		} else {
			in.Target = &target
			in.Desktop = bounds
		}
		step, err = a.ctrl.Update(in)
	}
	if err != nil {
		log.Printf("error driving cursor: %v", err)
	}

	if step.Button != control.ButtonNone {
		if err := a.recorder.Record(step); err != nil {
			log.Printf("error recording pointer event: %v", err)
		}
	}
	a.notify(step)
	return step
}

// releaseHeld lets go of the button if detection stops mid-pinch.
func (a *App) releaseHeld() {
	state := a.ctrl.State()
	if !state.Pinching {
		return
	}

	if err := a.ctrl.Release(); err != nil {
		log.Printf("error releasing button: %v", err)
	}

	step := control.Step{
		Timestamp: a.clock(),
		Position:  state.Cursor,
		Button:    control.ButtonUp,
		Released:  true,
	}
	if err := a.recorder.Record(step); err != nil {
		log.Printf("error recording pointer event: %v", err)
	}
	a.notify(step)
}
