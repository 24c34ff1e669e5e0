//go:build profiling

// Command profile runs repeated pack and unpack cycles under a profiler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strings"
	"time"

	"github.com/felixge/fgprof"
	"github.com/grafana/pyroscope-go"

	"github.com/meigma/parcel"
)

type profileKind string

const (
	profileCPU   profileKind = "cpu"
	profileFG    profileKind = "fgprof"
	profileTrace profileKind = "trace"
	profileNone  profileKind = "none"
)

const (
	modePack   = "pack"
	modeUnpack = "unpack"
	modeBoth   = "both"
)

func main() {
	var (
		payload  = flag.String("payload", "tmp/profiledata", "file or directory to pack")
		workDir  = flag.String("work", "tmp/profilework", "directory for archives and extracted output")
		formatS  = flag.String("format", "tar.gz", "archive format")
		mode     = flag.String("mode", modeBoth, "mode: pack, unpack, or both")
		profile  = flag.String("profile", "cpu", "profile type: cpu, fgprof, trace, none")
		outDir   = flag.String("out", "profiles", "output directory for profiles")
		label    = flag.String("label", "", "label suffix for profile files")
		repeat   = flag.Int("repeat", 1, "number of iterations")
		logLevel = flag.String("log-level", "", "log level: debug, info, warn, error")
		timeout  = flag.Duration("timeout", 15*time.Minute, "overall timeout")
		pyroAddr = flag.String("pyroscope", "", "Pyroscope server URL (enables streaming, disables local profiles)")
	)
	flag.Parse()

	runID := time.Now().UTC().Format("20060102T150405Z")

	f, err := parcel.ParseFormat(*formatS)
	if err != nil {
		log.Fatalf("parse format: %v", err)
	}
	modeValue := strings.ToLower(*mode)
	if modeValue != modePack && modeValue != modeUnpack && modeValue != modeBoth {
		log.Fatalf("invalid mode %q (expected %s, %s, or %s)", *mode, modePack, modeUnpack, modeBoth)
	}
	kind := profileKind(strings.ToLower(*profile))
	if !isValidProfile(kind) {
		log.Fatalf("invalid profile %q (expected cpu, fgprof, trace, none)", *profile)
	}
	if *repeat < 1 {
		log.Fatalf("repeat must be >= 1")
	}

	archivePath := filepath.Join(*workDir, "payload."+f.Extension())
	if modeValue == modeUnpack {
		if _, err := os.Stat(archivePath); err != nil {
			log.Fatalf("archive %q: %v (run with -mode pack first)", archivePath, err)
		}
	} else if _, err := os.Stat(*payload); err != nil {
		log.Fatalf("payload path %q: %v", *payload, err)
	}

	// When Pyroscope is enabled, stream profiles instead of writing locally
	var pyroProfiler *pyroscope.Profiler
	if *pyroAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName:   "parcel-profile",
			ServerAddress:     *pyroAddr,
			BasicAuthUser:     os.Getenv("PYROSCOPE_BASIC_AUTH_USER"),
			BasicAuthPassword: os.Getenv("PYROSCOPE_BASIC_AUTH_PASSWORD"),
			// Runs are brief
			UploadRate: 5 * time.Second,
			Logger:     pyroscope.StandardLogger,
			Tags: map[string]string{
				"mode":    modeValue,
				"format":  f.String(),
				"git_sha": os.Getenv("GITHUB_SHA"),
				"run_id":  runID,
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("start pyroscope: %v", err)
		}
		pyroProfiler = profiler
		log.Printf("streaming profiles to %s", *pyroAddr)
	}

	labelParts := []string{modeValue, sanitizeLabel(f.String())}
	if *label != "" {
		labelParts = append(labelParts, sanitizeLabel(*label))
	}
	labelParts = append(labelParts, runID)
	labelValue := strings.Join(labelParts, "_")

	var stopProfile func() error
	if *pyroAddr == "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Fatalf("create profile output dir: %v", err)
		}
		stopProfile, err = startProfile(kind, *outDir, labelValue)
		if err != nil {
			log.Fatalf("start profile: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var clientOpts []parcel.ClientOption
	if *logLevel != "" {
		level, err := parseLogLevel(*logLevel)
		if err != nil {
			log.Fatalf("parse log level: %v", err)
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		clientOpts = append(clientOpts, parcel.WithLogger(logger))
	}
	client, err := parcel.NewClient(clientOpts...)
	if err != nil {
		log.Fatalf("create client: %v", err)
	}

	if err := os.MkdirAll(*workDir, 0o755); err != nil {
		log.Fatalf("create work dir: %v", err)
	}

	for i := range *repeat {
		if *repeat > 1 {
			log.Printf("iteration %d/%d", i+1, *repeat)
		}
		if modeValue != modeUnpack {
			start := time.Now()
			if _, err := client.Pack(ctx, parcel.PackRequest{
				Source: *payload,
				Target: archivePath,
				Format: f,
			}); err != nil {
				log.Fatalf("pack: %v", err)
			}
			log.Printf("pack complete: %s", time.Since(start))
		}

		if modeValue != modePack {
			destDir := filepath.Join(*workDir, "out")
			if err := recreateDir(destDir); err != nil {
				log.Fatalf("create unpack dir: %v", err)
			}
			start := time.Now()
			paths, err := client.Unpack(ctx, parcel.UnpackRequest{
				Source: archivePath,
				Target: destDir,
				Format: f,
			})
			if err != nil {
				log.Fatalf("unpack: %v", err)
			}
			log.Printf("unpack complete: %d paths in %s", len(paths), time.Since(start))
		}
	}

	if pyroProfiler != nil {
		if err := pyroProfiler.Stop(); err != nil {
			log.Fatalf("stop pyroscope: %v", err)
		}
		log.Printf("pyroscope profiling stopped")
		return
	}
	if stopErr := stopProfile(); stopErr != nil {
		log.Fatalf("stop profile: %v", stopErr)
	}
	if err := writeNamedProfile(*outDir, "heap", labelValue); err != nil {
		log.Fatalf("write heap profile: %v", err)
	}
	if err := writeNamedProfile(*outDir, "allocs", labelValue); err != nil {
		log.Fatalf("write allocs profile: %v", err)
	}
}

func isValidProfile(kind profileKind) bool {
	switch kind {
	case profileCPU, profileFG, profileTrace, profileNone:
		return true
	default:
		return false
	}
}

func startProfile(kind profileKind, outDir, label string) (func() error, error) {
	if kind == profileNone {
		return func() error { return nil }, nil
	}

	ext := ".pprof"
	if kind == profileTrace {
		ext = ".out"
	}
	f, err := os.Create(filepath.Join(outDir, string(kind)+"_"+label+ext))
	if err != nil {
		return nil, err
	}

	switch kind {
	case profileCPU:
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		return func() error {
			pprof.StopCPUProfile()
			return f.Close()
		}, nil
	case profileFG:
		stop := fgprof.Start(f, fgprof.FormatPprof)
		return func() error {
			return errors.Join(stop(), f.Close())
		}, nil
	case profileTrace:
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		return func() error {
			trace.Stop()
			return f.Close()
		}, nil
	default:
		_ = f.Close()
		return nil, fmt.Errorf("unknown profile type: %s", kind)
	}
}

// writeNamedProfile writes the runtime profile called name ("heap", "allocs").
func writeNamedProfile(outDir, name, label string) error {
	f, err := os.Create(filepath.Join(outDir, name+"_"+label+".pprof"))
	if err != nil {
		return err
	}
	defer f.Close()
	if name == "heap" {
		runtime.GC()
	}
	return pprof.Lookup(name).WriteTo(f, 0)
}

func recreateDir(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return err
	}
	return os.MkdirAll(path, 0o755)
}

func sanitizeLabel(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, value)
}

func parseLogLevel(value string) (slog.Leveler, error) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return nil, fmt.Errorf("unknown level %q", value)
	}
}
