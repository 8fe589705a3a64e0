// linetune inspects and tunes a running line tracer over its HTTP API.
//
//	linetune status
//	linetune get
//	linetune set -kp 0.4 -smoothing 0.6
//	linetune reset
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/teslashibe/go-linetrace/internal/httpc"
	"github.com/teslashibe/go-linetrace/pkg/tracking"
	"github.com/teslashibe/go-linetrace/pkg/web"
)

func main() {
	addr := flag.String("addr", envOr("LINETRACE_ADDR", "http://localhost:5000"), "Tracer base URL")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	base := strings.TrimRight(*addr, "/")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "status":
		err = status(ctx, base)
	case "get":
		err = get(ctx, base)
	case "set":
		err = set(ctx, base, flag.Args()[1:])
	case "reset":
		err = httpc.PostJSON(ctx, base+"/api/reset", struct{}{}, nil)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: linetune [-addr URL] status | get | set [flags] | reset")
	flag.PrintDefaults()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func status(ctx context.Context, base string) error {
	var s web.Status
	if err := httpc.GetJSON(ctx, base+"/api/status", &s); err != nil {
		return err
	}

	t := s.Telemetry
	fmt.Printf("running:  %v (run %s)\n", s.Running, s.RunID)
	fmt.Printf("link:     %s %s\n", s.Link, s.Device)
	fmt.Printf("viewers:  %d video, %d telemetry\n", s.Consumers["camera"], s.Consumers["telemetry"])
	fmt.Printf("cycle:    #%d %.1fms\n", t.Seq, t.CycleMs)
	fmt.Printf("line:     near %s far %s fused %d (%s) smoothed %.1f\n", pos(t.Near), pos(t.Far), t.Fused.X, t.Fused.Source, t.Smoothed)
	fmt.Printf("steering: %+d (%s, error %.1f)\n", t.Steering, t.Law, t.Error)
	return nil
}

func pos(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}

func get(ctx context.Context, base string) error {
	var p tracking.TuningParams
	if err := httpc.GetJSON(ctx, base+"/api/tuning", &p); err != nil {
		return err
	}
	return printJSON(p)
}

func set(ctx context.Context, base string, args []string) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	smoothing := fs.Float64("smoothing", 0, "EMA alpha in (0, 1]")
	law := fs.String("law", "", "Steering law: proportional or pid")
	kp := fs.Float64("kp", 0, "Proportional gain")
	ki := fs.Float64("ki", 0, "Integral gain")
	kd := fs.Float64("kd", 0, "Derivative gain")
	quality := fs.Int("jpeg-quality", 0, "Stream JPEG quality 1-100")
	mirror := fs.String("mirror", "", "Flip frames horizontally: true or false")
	annotate := fs.String("annotate", "", "Draw overlays: true or false")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := tracking.TuningParams{
		Smoothing:   *smoothing,
		Law:         *law,
		JPEGQuality: *quality,
	}
	// Only gains given on the command line are sent, so 0 is a valid value
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "kp":
			p.Kp = kp
		case "ki":
			p.Ki = ki
		case "kd":
			p.Kd = kd
		}
	})
	var err error
	if p.Mirror, err = optionalBool("mirror", *mirror); err != nil {
		return err
	}
	if p.Annotate, err = optionalBool("annotate", *annotate); err != nil {
		return err
	}

	var updated tracking.TuningParams
	if err := httpc.PostJSON(ctx, base+"/api/tuning", p, &updated); err != nil {
		return err
	}
	return printJSON(updated)
}

func optionalBool(name, v string) (*bool, error) {
	switch v {
	case "":
		return nil, nil
	case "true", "on", "1":
		b := true
		return &b, nil
	case "false", "off", "0":
		b := false
		return &b, nil
	default:
		return nil, fmt.Errorf("-%s: want true or false, got %q", name, v)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
