package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/opd-ai/retrocam"
	"github.com/opd-ai/retrocam/factory"
	"github.com/opd-ai/retrocam/frame"
	"github.com/opd-ai/retrocam/interfaces"
	"github.com/opd-ai/retrocam/pipeline"
	"github.com/opd-ai/retrocam/real"
	simtest "github.com/opd-ai/retrocam/testing"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	closeTimeout  = 5 * time.Second
	drainInterval = 5 * time.Millisecond
)

type runOptions struct {
	simulate      bool
	input         string
	output        string
	width         int
	height        int
	format        string
	fps           int
	facing        string
	orientation   int
	displayWidth  int
	displayHeight int
	filter        string
	duration      time.Duration
	showFPS       bool
	quiet         bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the preview until the input ends, the duration elapses or Ctrl+C",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.Context(), cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.simulate, "simulate", "s", false, "Use a synthetic camera instead of --input")
	f.StringVarP(&opts.input, "input", "i", "", `Raw video input file, "-" for stdin`)
	f.StringVarP(&opts.output, "output", "o", "", `Raw RGBA output file, "-" for stdout; empty discards frames`)
	f.IntVar(&opts.width, "width", 640, "Camera frame width")
	f.IntVar(&opts.height, "height", 480, "Camera frame height")
	f.StringVar(&opts.format, "format", "nv21", "Camera pixel format (nv21, yv12, yuy2)")
	f.IntVar(&opts.fps, "fps", 30, "Camera frame rate, 0 reads input as fast as possible")
	f.StringVar(&opts.facing, "facing", "back", "Camera facing (back, front)")
	f.IntVar(&opts.orientation, "orientation", 0, "Camera sensor orientation in degrees")
	f.IntVar(&opts.displayWidth, "display-width", 960, "Display width")
	f.IntVar(&opts.displayHeight, "display-height", 720, "Display height")
	f.StringVarP(&opts.filter, "filter", "f", "yuv", "Filter ("+strings.Join(retrocam.FilterNames, ", ")+")")
	f.DurationVarP(&opts.duration, "duration", "d", 0, "Stop after this long, 0 runs until the input ends")
	f.BoolVar(&opts.showFPS, "show-fps", false, "Draw the measured framerate over the preview")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Hide the progress bar")

	return cmd
}

func runPreview(ctx context.Context, cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	f, err := newFactory(root.configPath)
	if err != nil {
		return err
	}
	if opts.simulate {
		f.SwitchToSimulation()
	}
	if !f.IsUsingSimulation() && opts.input == "" {
		return errors.New("--input is required unless --simulate is set")
	}

	options, cleanup, err := previewOptions(cmd, opts, f.IsUsingSimulation())
	if err != nil {
		return err
	}
	defer cleanup()

	filter, err := retrocam.FilterByName(opts.filter)
	if err != nil {
		return err
	}

	pv, err := retrocam.NewWithFactory(options, f)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("frames posted"),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(!opts.quiet),
	)
	pv.Pipeline().OnFramePosted(func(uint64) { _ = bar.Add(1) })

	if err := pv.SetFilter(filter); err != nil {
		return err
	}

	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	runErr := pv.Start()
	if runErr == nil {
		runErr = wait(ctx, pv, opts.fps)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	closeErr := pv.Close(closeCtx)
	_ = bar.Finish()

	printStats(cmd.ErrOrStderr(), pv.Stats())

	if runErr != nil {
		return runErr
	}
	return closeErr
}

func newFactory(configPath string) (*factory.PreviewFactory, error) {
	if configPath == "" {
		return factory.NewPreviewFactory(), nil
	}
	return factory.NewPreviewFactoryFromFile(configPath)
}

// previewOptions translates flags into preview options and opens the input
// and output streams. The returned cleanup closes them.
func previewOptions(cmd *cobra.Command, opts *runOptions, simulate bool) (*retrocam.Options, func(), error) {
	format, err := frame.ParseFormat(opts.format)
	if err != nil {
		return nil, nil, err
	}

	var facing interfaces.Facing
	switch strings.ToLower(opts.facing) {
	case "back":
		facing = interfaces.FacingBack
	case "front":
		facing = interfaces.FacingFront
	default:
		return nil, nil, fmt.Errorf("invalid --facing %q", opts.facing)
	}

	options := retrocam.NewOptions()
	options.CameraWidth = opts.width
	options.CameraHeight = opts.height
	options.Format = format
	options.FPS = opts.fps
	options.Facing = facing
	options.Orientation = opts.orientation
	options.DisplayWidth = opts.displayWidth
	options.DisplayHeight = opts.displayHeight
	options.ShowFPS = opts.showFPS

	var closers []io.Closer
	cleanup := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	if !simulate {
		switch opts.input {
		case "-":
			options.Input = cmd.InOrStdin()
		default:
			file, err := os.Open(opts.input)
			if err != nil {
				return nil, nil, fmt.Errorf("open input: %w", err)
			}
			closers = append(closers, file)
			options.Input = file
		}
	}

	switch opts.output {
	case "":
	case "-":
		options.Presenter = real.WriterPresenter(cmd.OutOrStdout())
	default:
		file, err := os.Create(opts.output)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("create output: %w", err)
		}
		closers = append(closers, file)
		options.Presenter = real.WriterPresenter(file)
	}

	return options, cleanup, nil
}

// wait blocks until the input ends or ctx is done. A simulated camera is
// driven from here at fps.
func wait(ctx context.Context, pv *retrocam.Preview, fps int) error {
	switch cam := pv.Camera().(type) {
	case *simtest.SimulatedCamera:
		err := cam.Run(ctx, fps)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	case *real.RawVideoCamera:
		select {
		case <-cam.Done():
			return drain(ctx, pv)
		case <-ctx.Done():
			return nil
		}
	default:
		<-ctx.Done()
		return nil
	}
}

// drain waits for frames already delivered by the camera to be posted or
// dropped.
func drain(ctx context.Context, pv *retrocam.Preview) error {
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for pv.Stats().InFlight > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func printStats(w io.Writer, s pipeline.Stats) {
	fmt.Fprintf(w, "\ningested %d, posted %d, dropped %d (out of order %d, stale source %d, stale filter %d, filter error %d, no canvas %d, post failed %d)\n",
		s.Ingested, s.Posted, s.Dropped(),
		s.DroppedOutOfOrder, s.DroppedStaleSource, s.DroppedStaleFilter,
		s.DroppedFilterError, s.DroppedNoCanvas, s.DroppedPostFailed)
	fmt.Fprintf(w, "undersized %d, tasks allocated %d, peak in flight %d, peak workers %d, last fps %.1f\n",
		s.Undersized, s.TasksAllocated, s.PeakInFlight, s.PeakWorkers, s.FPS)

	logrus.WithFields(logrus.Fields{
		"function": "printStats",
		"posted":   s.Posted,
		"dropped":  s.Dropped(),
	}).Info("Preview finished")
}
